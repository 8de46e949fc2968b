package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoConsumer reports that no strategy was subscribed to an event's
	// type. Recoverable and informational.
	ErrNoConsumer = errors.New("no strategy subscribed to event type")
	// ErrAllConsumersFailed reports that every subscribed strategy returned
	// an error for one event. Recoverable.
	ErrAllConsumersFailed = errors.New("all subscribed strategies failed")
	// ErrTransport marks a fatal event-transport failure; the process should
	// exit non-zero so the orchestrator restarts it.
	ErrTransport = errors.New("event transport failure")
	// ErrRiskStore marks a shared risk-store failure. The breaker treats it
	// as fail-closed.
	ErrRiskStore = errors.New("risk store failure")
	// ErrSigner marks a remote-signing failure. Never retried.
	ErrSigner = errors.New("signer failure")
	// ErrRelay marks a bundle-relay failure. Never retried by the router.
	ErrRelay = errors.New("bundle relay failure")
	// ErrHalted reports that trading is halted.
	ErrHalted = errors.New("trading halted")
)

// StrategyError wraps a single strategy's per-event failure so the registry
// can report it without aborting dispatch to the remaining strategies.
type StrategyError struct {
	StrategyID string
	Err        error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy %s: %v", e.StrategyID, e.Err)
}

func (e *StrategyError) Unwrap() error { return e.Err }
