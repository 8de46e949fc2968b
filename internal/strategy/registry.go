package strategy

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jmreyes/memesnipe/internal/domain"
)

// DispatchResult is one strategy's outcome for one event. Err and Action are
// mutually exclusive.
type DispatchResult struct {
	StrategyID string
	Action     domain.StrategyAction
	Err        error
}

type entry struct {
	strategy Strategy
	active   bool
}

// Registry owns all strategy instances and routes events to the ones
// subscribed to the event's type. It is safe for concurrent use; dispatch
// order follows registration order so strategy side effects stay
// deterministic per event.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string // registration order of ids
	logger  *slog.Logger
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		logger:  logger.With(slog.String("component", "registry")),
	}
}

// Register inserts or replaces a strategy by id. Last write wins; this is
// how the spec listener hot-reloads new strategy generations. The replaced
// instance is closed under the write lock, which waits for any in-flight
// Dispatch to release its read lock first.
func (r *Registry) Register(id string, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[id]; ok {
		_ = existing.strategy.Close()
		existing.strategy = s
		existing.active = true
		return
	}
	r.entries[id] = &entry{strategy: s, active: true}
	r.order = append(r.order, id)
}

// Deactivate removes a strategy from dispatch without forgetting it.
func (r *Registry) Deactivate(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[id]; ok {
		e.active = false
	}
}

// Dispatch routes the event to every active strategy subscribed to its type,
// strictly sequentially in registration order. One strategy's failure is
// recorded in its DispatchResult and never aborts dispatch to the rest.
//
// The returned error is domain.ErrNoConsumer when no strategy was
// subscribed, domain.ErrAllConsumersFailed when every subscribed strategy
// errored, and nil otherwise; both conditions are recoverable at the event
// loop.
//
// The read lock is held across the OnEvent calls so Register cannot close a
// strategy while it is still handling this event.
func (r *Registry) Dispatch(ctx context.Context, event domain.MarketEvent) ([]DispatchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []Strategy
	for _, id := range r.order {
		e := r.entries[id]
		if !e.active {
			continue
		}
		if subscribed(e.strategy, event.Type) {
			matched = append(matched, e.strategy)
		}
	}

	if len(matched) == 0 {
		return nil, domain.ErrNoConsumer
	}

	results := make([]DispatchResult, 0, len(matched))
	failures := 0
	for _, s := range matched {
		action, err := s.OnEvent(ctx, event)
		if err != nil {
			failures++
			serr := &domain.StrategyError{StrategyID: s.ID(), Err: err}
			r.logger.Warn("strategy failed on event",
				slog.String("strategy", s.ID()),
				slog.String("event_type", string(event.Type)),
				slog.String("token", event.Token),
				slog.String("error", err.Error()))
			results = append(results, DispatchResult{StrategyID: s.ID(), Err: serr})
			continue
		}
		results = append(results, DispatchResult{StrategyID: s.ID(), Action: action})
	}

	if failures == len(matched) {
		return results, domain.ErrAllConsumersFailed
	}
	return results, nil
}

func subscribed(s Strategy, t domain.EventType) bool {
	for _, sub := range s.Subscriptions() {
		if sub == t {
			return true
		}
	}
	return false
}

// Count returns the number of registered strategies, active or not.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// ActiveCount returns the number of strategies participating in dispatch.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, e := range r.entries {
		if e.active {
			n++
		}
	}
	return n
}

// List returns the ids of all registered strategies in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Close closes every registered strategy.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		_ = e.strategy.Close()
	}
}
