package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmreyes/memesnipe/internal/domain"
)

const (
	defaultBridgeMinVolume = 50_000.0
	defaultBridgeMinUsers  = 25
	defaultBridgeSizeUSD   = 45.0
)

// BridgeInflow enters tokens attracting broad cross-chain inflow: a large
// bridged volume spread over many distinct users signals fresh demand rather
// than a single wallet repositioning.
type BridgeInflow struct {
	id     string
	params Params
	logger *slog.Logger
	held   map[string]bool
}

// NewBridgeInflow creates a bridge-inflow strategy. Params keys:
// "min_volume_usd", "min_unique_users", "size_usd".
func NewBridgeInflow(id string, params Params, logger *slog.Logger) *BridgeInflow {
	return &BridgeInflow{
		id:     id,
		params: params,
		logger: logger.With(slog.String("strategy", id)),
		held:   make(map[string]bool),
	}
}

func (b *BridgeInflow) ID() string { return b.id }

func (b *BridgeInflow) Subscriptions() []domain.EventType {
	return FamilySubscriptions(FamilyBridgeInflow)
}

func (b *BridgeInflow) Init(_ context.Context) error { return nil }

func (b *BridgeInflow) OnEvent(_ context.Context, event domain.MarketEvent) (domain.StrategyAction, error) {
	bf := event.Bridge

	if b.held[event.Token] {
		return domain.Hold(), nil
	}
	if bf.VolumeUSD < b.params.Float("min_volume_usd", defaultBridgeMinVolume) {
		return domain.Hold(), nil
	}
	if bf.UniqueUsers < b.params.Int("min_unique_users", defaultBridgeMinUsers) {
		return domain.Hold(), nil
	}

	b.held[event.Token] = true
	reason := fmt.Sprintf("bridge inflow: %s->%s volume=%.0f users=%d",
		bf.SourceChain, bf.DestinationChain, bf.VolumeUSD, bf.UniqueUsers)
	b.logger.Info("bridge inflow entry",
		slog.String("token", event.Token),
		slog.Float64("volume_usd", bf.VolumeUSD),
		slog.Int("unique_users", bf.UniqueUsers))
	return domain.Enter(event.Token, domain.SideBuy, b.params.Float("size_usd", defaultBridgeSizeUSD), reason), nil
}

func (b *BridgeInflow) Close() error { return nil }

var _ Strategy = (*BridgeInflow)(nil)
