package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmreyes/memesnipe/internal/domain"
)

const (
	defaultWhaleMinUSD     = 10_000.0
	defaultWhaleMinBalance = 100_000.0
	defaultWhaleSizeUSD    = 60.0
)

// WhaleFollow mirrors large-wallet activity: enters when a sufficiently big
// wallet buys, exits when one sells a token we follow.
type WhaleFollow struct {
	id     string
	params Params
	logger *slog.Logger
	held   map[string]bool
}

// NewWhaleFollow creates a whale-follow strategy. Params keys:
// "min_amount_usd", "min_wallet_balance_usd", "size_usd".
func NewWhaleFollow(id string, params Params, logger *slog.Logger) *WhaleFollow {
	return &WhaleFollow{
		id:     id,
		params: params,
		logger: logger.With(slog.String("strategy", id)),
		held:   make(map[string]bool),
	}
}

func (w *WhaleFollow) ID() string { return w.id }

func (w *WhaleFollow) Subscriptions() []domain.EventType {
	return FamilySubscriptions(FamilyWhaleFollow)
}

func (w *WhaleFollow) Init(_ context.Context) error { return nil }

func (w *WhaleFollow) OnEvent(_ context.Context, event domain.MarketEvent) (domain.StrategyAction, error) {
	mv := event.Whale

	if mv.AmountUSD < w.params.Float("min_amount_usd", defaultWhaleMinUSD) {
		return domain.Hold(), nil
	}
	if mv.WalletBalanceUSD < w.params.Float("min_wallet_balance_usd", defaultWhaleMinBalance) {
		return domain.Hold(), nil
	}

	switch mv.Action {
	case "buy":
		if w.held[event.Token] {
			return domain.Hold(), nil
		}
		w.held[event.Token] = true
		reason := fmt.Sprintf("whale buy: wallet=%s amount=%.0f", mv.Wallet, mv.AmountUSD)
		w.logger.Info("whale follow entry",
			slog.String("token", event.Token),
			slog.String("wallet", mv.Wallet),
			slog.Float64("amount_usd", mv.AmountUSD))
		return domain.Enter(event.Token, domain.SideBuy, w.params.Float("size_usd", defaultWhaleSizeUSD), reason), nil

	case "sell":
		if !w.held[event.Token] {
			return domain.Hold(), nil
		}
		delete(w.held, event.Token)
		reason := fmt.Sprintf("whale sell: wallet=%s amount=%.0f", mv.Wallet, mv.AmountUSD)
		w.logger.Info("whale follow exit",
			slog.String("token", event.Token),
			slog.String("wallet", mv.Wallet))
		return domain.Exit(event.Token, reason), nil
	}

	return domain.Hold(), nil
}

func (w *WhaleFollow) Close() error { return nil }

var _ Strategy = (*WhaleFollow)(nil)
