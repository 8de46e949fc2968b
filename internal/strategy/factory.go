package strategy

import (
	"fmt"
	"log/slog"

	"github.com/jmreyes/memesnipe/internal/domain"
)

// Strategy family names. A StrategySpec's Family selects one of these; a
// spec naming an unknown family is rejected at instantiation.
const (
	FamilyMomentum        = "momentum_5m"
	FamilyMeanRevert      = "mean_revert_1h"
	FamilyWhaleFollow     = "whale_follow"
	FamilyBridgeInflow    = "bridge_inflow"
	FamilyAirdropRotation = "airdrop_rotation"
	FamilyPerpBasis       = "perp_basis_arb"
	FamilyRugSniffer      = "rug_pull_sniffer"
)

// familySubscriptions is the fixed subscription table: each family consumes
// exactly these event types, independent of spec params.
var familySubscriptions = map[string][]domain.EventType{
	FamilyMomentum:        {domain.EventTypePrice, domain.EventTypeVolume},
	FamilyMeanRevert:      {domain.EventTypePrice},
	FamilyWhaleFollow:     {domain.EventTypeWhale},
	FamilyBridgeInflow:    {domain.EventTypeBridge},
	FamilyAirdropRotation: {domain.EventTypeAirdrop},
	FamilyPerpBasis:       {domain.EventTypeFunding},
	FamilyRugSniffer:      {domain.EventTypeOnChain},
}

// Families returns the known family names.
func Families() []string {
	return []string{
		FamilyMomentum,
		FamilyMeanRevert,
		FamilyWhaleFollow,
		FamilyBridgeInflow,
		FamilyAirdropRotation,
		FamilyPerpBasis,
		FamilyRugSniffer,
	}
}

// KnownFamily reports whether family is a valid family name.
func KnownFamily(family string) bool {
	_, ok := familySubscriptions[family]
	return ok
}

// FamilySubscriptions returns a copy of the family's fixed subscription set;
// nil for an unknown family.
func FamilySubscriptions(family string) []domain.EventType {
	subs, ok := familySubscriptions[family]
	if !ok {
		return nil
	}
	out := make([]domain.EventType, len(subs))
	copy(out, subs)
	return out
}

// Factory instantiates strategies from specs, keyed by family string. No
// global registration: every constructable family is written out here.
type Factory struct {
	logger *slog.Logger
}

// NewFactory creates a Factory whose strategies log through logger.
func NewFactory(logger *slog.Logger) *Factory {
	return &Factory{logger: logger}
}

// FromSpec builds a Strategy from a spec produced by the strategy factory
// service. The spec id becomes the registry id; params are passed through
// opaquely to the family constructor.
func (f *Factory) FromSpec(spec domain.StrategySpec) (Strategy, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("strategy: spec missing id")
	}
	return f.build(spec.ID, spec.Family, Params(spec.Params))
}

// New builds a strategy with an explicit id, family, and params. Used at
// startup for the configured baseline set.
func (f *Factory) New(id, family string, params map[string]any) (Strategy, error) {
	if id == "" {
		id = family
	}
	return f.build(id, family, Params(params))
}

func (f *Factory) build(id, family string, params Params) (Strategy, error) {
	switch family {
	case FamilyMomentum:
		return NewMomentum(id, params, f.logger), nil
	case FamilyMeanRevert:
		return NewMeanRevert(id, params, f.logger), nil
	case FamilyWhaleFollow:
		return NewWhaleFollow(id, params, f.logger), nil
	case FamilyBridgeInflow:
		return NewBridgeInflow(id, params, f.logger), nil
	case FamilyAirdropRotation:
		return NewAirdropRotation(id, params, f.logger), nil
	case FamilyPerpBasis:
		return NewPerpBasis(id, params, f.logger), nil
	case FamilyRugSniffer:
		return NewRugSniffer(id, f.logger), nil
	}
	return nil, fmt.Errorf("strategy: unknown family %q", family)
}
