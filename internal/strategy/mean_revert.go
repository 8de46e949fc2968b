package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmreyes/memesnipe/internal/domain"
)

const (
	defaultRevertThreshold = 2.0 // standard deviations
	defaultRevertWindow    = time.Hour
	defaultRevertSizeUSD   = 40.0
	defaultRevertMinPoints = 12
)

// MeanRevert buys when the current price sits significantly below the
// trailing mean and exits once it swings back above. "Significantly" is
// measured in multiples of the trailing standard deviation.
type MeanRevert struct {
	id      string
	params  Params
	history *PriceHistory
	logger  *slog.Logger
	held    map[string]bool
}

// NewMeanRevert creates a mean-reversion strategy. Params keys:
// "std_dev_threshold", "lookback_window" (duration string), "size_usd",
// "min_points".
func NewMeanRevert(id string, params Params, logger *slog.Logger) *MeanRevert {
	window := params.Duration("lookback_window", defaultRevertWindow)
	return &MeanRevert{
		id:      id,
		params:  params,
		history: NewPriceHistory(window),
		logger:  logger.With(slog.String("strategy", id)),
		held:    make(map[string]bool),
	}
}

func (mr *MeanRevert) ID() string { return mr.id }

func (mr *MeanRevert) Subscriptions() []domain.EventType {
	return FamilySubscriptions(FamilyMeanRevert)
}

func (mr *MeanRevert) Init(_ context.Context) error { return nil }

func (mr *MeanRevert) OnEvent(_ context.Context, event domain.MarketEvent) (domain.StrategyAction, error) {
	p := event.Price
	mr.history.Track(event.Token, p.PriceUSD, event.Timestamp)

	if mr.history.Count(event.Token) < mr.params.Int("min_points", defaultRevertMinPoints) {
		return domain.Hold(), nil
	}

	avg := mr.history.Average(event.Token)
	vol := mr.history.Volatility(event.Token)
	if avg == 0 || vol == 0 {
		return domain.Hold(), nil
	}

	threshold := mr.params.Float("std_dev_threshold", defaultRevertThreshold)
	deviation := (p.PriceUSD - avg) / vol

	if !mr.held[event.Token] && deviation <= -threshold {
		mr.held[event.Token] = true
		reason := fmt.Sprintf("mean revert entry: price=%.8f avg=%.8f dev=%.2f sigma", p.PriceUSD, avg, deviation)
		mr.logger.Info("mean revert entry",
			slog.String("token", event.Token),
			slog.Float64("deviation", deviation))
		return domain.Enter(event.Token, domain.SideBuy, mr.params.Float("size_usd", defaultRevertSizeUSD), reason), nil
	}

	if mr.held[event.Token] && deviation >= threshold {
		delete(mr.held, event.Token)
		reason := fmt.Sprintf("mean revert exit: price=%.8f avg=%.8f dev=%.2f sigma", p.PriceUSD, avg, deviation)
		mr.logger.Info("mean revert exit",
			slog.String("token", event.Token),
			slog.Float64("deviation", deviation))
		return domain.Exit(event.Token, reason), nil
	}

	return domain.Hold(), nil
}

func (mr *MeanRevert) Close() error { return nil }

var _ Strategy = (*MeanRevert)(nil)
