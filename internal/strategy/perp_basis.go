package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmreyes/memesnipe/internal/domain"
)

const (
	defaultBasisEntryRate = -0.01 // shorts paying 1% per interval
	defaultBasisExitRate  = 0.01
	defaultBasisMinOI     = 500_000.0
	defaultBasisSizeUSD   = 55.0
)

// PerpBasis trades the spot leg of a funding-rate squeeze: deeply negative
// funding with real open interest means shorts are paying to stay in, and a
// squeeze unwinds upward through the spot market.
type PerpBasis struct {
	id     string
	params Params
	logger *slog.Logger
	held   map[string]bool
}

// NewPerpBasis creates a perp-basis strategy. Params keys: "entry_rate_pct",
// "exit_rate_pct", "min_open_interest_usd", "size_usd".
func NewPerpBasis(id string, params Params, logger *slog.Logger) *PerpBasis {
	return &PerpBasis{
		id:     id,
		params: params,
		logger: logger.With(slog.String("strategy", id)),
		held:   make(map[string]bool),
	}
}

func (p *PerpBasis) ID() string { return p.id }

func (p *PerpBasis) Subscriptions() []domain.EventType {
	return FamilySubscriptions(FamilyPerpBasis)
}

func (p *PerpBasis) Init(_ context.Context) error { return nil }

func (p *PerpBasis) OnEvent(_ context.Context, event domain.MarketEvent) (domain.StrategyAction, error) {
	fr := event.Funding

	if fr.OpenInterestUSD < p.params.Float("min_open_interest_usd", defaultBasisMinOI) {
		return domain.Hold(), nil
	}

	entryRate := p.params.Float("entry_rate_pct", defaultBasisEntryRate)
	if !p.held[event.Token] && fr.RatePct <= entryRate {
		p.held[event.Token] = true
		reason := fmt.Sprintf("negative funding: rate=%.4f oi=%.0f", fr.RatePct, fr.OpenInterestUSD)
		p.logger.Info("perp basis entry",
			slog.String("token", event.Token),
			slog.Float64("rate_pct", fr.RatePct),
			slog.Float64("open_interest_usd", fr.OpenInterestUSD))
		return domain.Enter(event.Token, domain.SideBuy, p.params.Float("size_usd", defaultBasisSizeUSD), reason), nil
	}

	exitRate := p.params.Float("exit_rate_pct", defaultBasisExitRate)
	if p.held[event.Token] && fr.RatePct >= exitRate {
		delete(p.held, event.Token)
		reason := fmt.Sprintf("funding flipped: rate=%.4f", fr.RatePct)
		p.logger.Info("perp basis exit",
			slog.String("token", event.Token),
			slog.Float64("rate_pct", fr.RatePct))
		return domain.Exit(event.Token, reason), nil
	}

	return domain.Hold(), nil
}

func (p *PerpBasis) Close() error { return nil }

var _ Strategy = (*PerpBasis)(nil)
