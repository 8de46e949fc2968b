package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmreyes/memesnipe/internal/domain"
)

const (
	defaultAirdropDumpRecipients = 1_000
	defaultAirdropConcMinUSD     = 250_000.0
	defaultAirdropSizeUSD        = 35.0
)

// AirdropRotation reacts to token distributions. A wide airdrop (many
// recipients, small average allocation) foreshadows sell pressure and exits
// any held position; a concentrated distribution to few wallets reads as
// smart-money rotation and triggers an entry.
type AirdropRotation struct {
	id     string
	params Params
	logger *slog.Logger
	held   map[string]bool
}

// NewAirdropRotation creates an airdrop-rotation strategy. Params keys:
// "dump_recipients", "concentrated_min_usd", "size_usd".
func NewAirdropRotation(id string, params Params, logger *slog.Logger) *AirdropRotation {
	return &AirdropRotation{
		id:     id,
		params: params,
		logger: logger.With(slog.String("strategy", id)),
		held:   make(map[string]bool),
	}
}

func (a *AirdropRotation) ID() string { return a.id }

func (a *AirdropRotation) Subscriptions() []domain.EventType {
	return FamilySubscriptions(FamilyAirdropRotation)
}

func (a *AirdropRotation) Init(_ context.Context) error { return nil }

func (a *AirdropRotation) OnEvent(_ context.Context, event domain.MarketEvent) (domain.StrategyAction, error) {
	ad := event.Airdrop

	dumpRecipients := a.params.Int("dump_recipients", defaultAirdropDumpRecipients)
	if ad.Recipients >= dumpRecipients {
		if !a.held[event.Token] {
			return domain.Hold(), nil
		}
		delete(a.held, event.Token)
		reason := fmt.Sprintf("wide airdrop: recipients=%d avg_per_wallet=%.2f", ad.Recipients, ad.AvgPerWallet)
		a.logger.Info("airdrop dump exit",
			slog.String("token", event.Token),
			slog.Int("recipients", ad.Recipients))
		return domain.Exit(event.Token, reason), nil
	}

	concMin := a.params.Float("concentrated_min_usd", defaultAirdropConcMinUSD)
	if !a.held[event.Token] && ad.TotalAmountUSD >= concMin {
		a.held[event.Token] = true
		reason := fmt.Sprintf("concentrated airdrop: recipients=%d total=%.0f", ad.Recipients, ad.TotalAmountUSD)
		a.logger.Info("airdrop rotation entry",
			slog.String("token", event.Token),
			slog.Float64("total_usd", ad.TotalAmountUSD))
		return domain.Enter(event.Token, domain.SideBuy, a.params.Float("size_usd", defaultAirdropSizeUSD), reason), nil
	}

	return domain.Hold(), nil
}

func (a *AirdropRotation) Close() error { return nil }

var _ Strategy = (*AirdropRotation)(nil)
