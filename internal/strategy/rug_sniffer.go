package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmreyes/memesnipe/internal/domain"
)

// rugKinds are the on-chain observations treated as rug-pull precursors.
var rugKinds = map[string]bool{
	"lp_pull":                  true,
	"mint_authority_enabled":   true,
	"freeze_authority_enabled": true,
	"large_dev_transfer":       true,
}

// RugSniffer is a pure defensive strategy: it never enters, it only fires an
// immediate exit when an on-chain event looks like rug preparation. Exiting
// a token with no open position is harmless downstream.
type RugSniffer struct {
	id     string
	logger *slog.Logger
}

// NewRugSniffer creates a rug-sniffer strategy. It takes no tunable params.
func NewRugSniffer(id string, logger *slog.Logger) *RugSniffer {
	return &RugSniffer{
		id:     id,
		logger: logger.With(slog.String("strategy", id)),
	}
}

func (r *RugSniffer) ID() string { return r.id }

func (r *RugSniffer) Subscriptions() []domain.EventType {
	return FamilySubscriptions(FamilyRugSniffer)
}

func (r *RugSniffer) Init(_ context.Context) error { return nil }

func (r *RugSniffer) OnEvent(_ context.Context, event domain.MarketEvent) (domain.StrategyAction, error) {
	oc := event.OnChain

	if !rugKinds[oc.Kind] {
		return domain.Hold(), nil
	}

	reason := fmt.Sprintf("rug signal: %s", oc.Kind)
	r.logger.Warn("rug signal detected",
		slog.String("token", event.Token),
		slog.String("kind", oc.Kind))
	return domain.Exit(event.Token, reason), nil
}

func (r *RugSniffer) Close() error { return nil }

var _ Strategy = (*RugSniffer)(nil)
