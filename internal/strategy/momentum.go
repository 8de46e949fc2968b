package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmreyes/memesnipe/internal/domain"
)

const (
	defaultMomentumChange     = 0.05 // 5% move over 5m
	defaultMomentumMinVolume  = 5_000.0
	defaultMomentumSpikeRatio = 3.0
	defaultMomentumSizeUSD    = 50.0
	defaultMomentumExitChange = -0.03
)

// Momentum buys tokens showing a sustained short-window price move backed by
// real volume, and exits when the move reverses. It consumes both price and
// volume events: price events drive entries and exits, volume spikes drive
// confirmation entries.
type Momentum struct {
	id     string
	params Params
	logger *slog.Logger
	held   map[string]bool
}

// NewMomentum creates a momentum strategy. Params keys: "min_change_5m",
// "min_volume_5m_usd", "spike_ratio", "size_usd", "exit_change_5m".
func NewMomentum(id string, params Params, logger *slog.Logger) *Momentum {
	return &Momentum{
		id:     id,
		params: params,
		logger: logger.With(slog.String("strategy", id)),
		held:   make(map[string]bool),
	}
}

func (m *Momentum) ID() string { return m.id }

func (m *Momentum) Subscriptions() []domain.EventType {
	return FamilySubscriptions(FamilyMomentum)
}

func (m *Momentum) Init(_ context.Context) error { return nil }

func (m *Momentum) OnEvent(_ context.Context, event domain.MarketEvent) (domain.StrategyAction, error) {
	switch event.Type {
	case domain.EventTypePrice:
		return m.onPrice(event), nil
	case domain.EventTypeVolume:
		return m.onVolume(event), nil
	}
	return domain.Hold(), nil
}

func (m *Momentum) onPrice(event domain.MarketEvent) domain.StrategyAction {
	p := event.Price

	if m.held[event.Token] && p.PriceChange5m <= m.params.Float("exit_change_5m", defaultMomentumExitChange) {
		delete(m.held, event.Token)
		reason := fmt.Sprintf("momentum reversal: change_5m=%.4f", p.PriceChange5m)
		m.logger.Info("momentum exit", slog.String("token", event.Token), slog.Float64("change_5m", p.PriceChange5m))
		return domain.Exit(event.Token, reason)
	}

	minChange := m.params.Float("min_change_5m", defaultMomentumChange)
	minVolume := m.params.Float("min_volume_5m_usd", defaultMomentumMinVolume)
	if !m.held[event.Token] && p.PriceChange5m >= minChange && p.VolumeUSD5m >= minVolume {
		m.held[event.Token] = true
		reason := fmt.Sprintf("momentum entry: change_5m=%.4f volume_5m=%.0f", p.PriceChange5m, p.VolumeUSD5m)
		m.logger.Info("momentum entry",
			slog.String("token", event.Token),
			slog.Float64("change_5m", p.PriceChange5m),
			slog.Float64("volume_5m", p.VolumeUSD5m))
		return domain.Enter(event.Token, domain.SideBuy, m.params.Float("size_usd", defaultMomentumSizeUSD), reason)
	}

	return domain.Hold()
}

func (m *Momentum) onVolume(event domain.MarketEvent) domain.StrategyAction {
	v := event.Volume

	spike := m.params.Float("spike_ratio", defaultMomentumSpikeRatio)
	if !m.held[event.Token] && v.SpikeRatio >= spike && v.BuyVolumeUSD > v.SellVolumeUSD {
		m.held[event.Token] = true
		reason := fmt.Sprintf("volume spike: ratio=%.2f buy=%.0f sell=%.0f", v.SpikeRatio, v.BuyVolumeUSD, v.SellVolumeUSD)
		m.logger.Info("momentum volume entry",
			slog.String("token", event.Token),
			slog.Float64("spike_ratio", v.SpikeRatio))
		return domain.Enter(event.Token, domain.SideBuy, m.params.Float("size_usd", defaultMomentumSizeUSD), reason)
	}

	return domain.Hold()
}

func (m *Momentum) Close() error { return nil }

var _ Strategy = (*Momentum)(nil)
