// Package strategy holds the strategy contract, the registry that routes
// market events to subscribed strategies, and the built-in strategy families.
package strategy

import (
	"context"
	"time"

	"github.com/jmreyes/memesnipe/internal/domain"
)

// Strategy is the contract every trading strategy implements. A strategy is
// a stateful policy: it declares the event types it wants, receives matching
// events one at a time, and answers each with a single action. Event
// delivery is at-least-once; OnEvent must tolerate duplicates.
type Strategy interface {
	// ID is the stable identifier the strategy is registered under.
	ID() string
	// Subscriptions returns the event types this strategy consumes. The set
	// is fixed for the strategy's lifetime.
	Subscriptions() []domain.EventType
	// Init performs one-time setup before the first event.
	Init(ctx context.Context) error
	// OnEvent evaluates one event and returns an action. The event is
	// read-only; internal state is exclusively owned by the strategy.
	OnEvent(ctx context.Context, event domain.MarketEvent) (domain.StrategyAction, error)
	// Close releases any resources held by the strategy.
	Close() error
}

// Params is the opaque parameter bag carried by a StrategySpec. The typed
// accessors fall back to a default when the key is missing or mistyped, so a
// malformed spec degrades to defaults instead of failing instantiation.
type Params map[string]any

// Float returns the float64 parameter under key, or def.
func (p Params) Float(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		switch f := v.(type) {
		case float64:
			return f
		case int:
			return float64(f)
		case int64:
			return float64(f)
		}
	}
	return def
}

// Int returns the int parameter under key, or def.
func (p Params) Int(key string, def int) int {
	if v, ok := p[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return def
}

// Duration returns the duration parameter under key (a string parseable by
// time.ParseDuration), or def.
func (p Params) Duration(key string, def time.Duration) time.Duration {
	if v, ok := p[key]; ok {
		if s, ok := v.(string); ok {
			if d, err := time.ParseDuration(s); err == nil {
				return d
			}
		}
	}
	return def
}
