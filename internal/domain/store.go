package domain

import "context"

// EventSource is the market-event transport consumed by the event loop.
// Delivery is at-least-once; strategies must tolerate duplicate events.
type EventSource interface {
	// Initialize establishes the transport connection and fails fast if the
	// transport cannot be reached.
	Initialize(ctx context.Context) error
	// Consume blocks, invoking handle for each event in arrival order with
	// at most one event in flight. It returns only on a fatal transport
	// error or context cancellation.
	Consume(ctx context.Context, handle func(context.Context, MarketEvent)) error
	// Ping checks transport reachability for health reporting.
	Ping(ctx context.Context) error
}

// RiskStore is the shared risk/halt store. The circuit breaker is the single
// writer of the halt flag; every other component only reads.
type RiskStore interface {
	Snapshot(ctx context.Context) (RiskSnapshot, error)
	TradingEnabled(ctx context.Context) (bool, error)
	HaltState(ctx context.Context) (HaltState, error)
	SetHalt(ctx context.Context, state HaltState) error
	Ping(ctx context.Context) error
}

// ControlBus carries halt broadcasts between the breaker and every consumer
// of the control channel.
type ControlBus interface {
	Publish(ctx context.Context, message string) error
	// Subscribe returns a channel of control messages. The channel is closed
	// when ctx is cancelled.
	Subscribe(ctx context.Context) (<-chan string, error)
}

// SpecQueue delivers StrategySpec records produced by the strategy factory.
type SpecQueue interface {
	// Consume blocks, invoking handle for each spec as it arrives.
	Consume(ctx context.Context, handle func(context.Context, StrategySpec)) error
}

// ExecutionStore persists terminal execution outcomes.
type ExecutionStore interface {
	Record(ctx context.Context, outcome ExecutionOutcome) error
	Recent(ctx context.Context, limit int) ([]ExecutionOutcome, error)
}

// PositionStore keeps the minimal open-position state used for paper
// accounting and health reporting.
type PositionStore interface {
	Open(ctx context.Context, p Position) error
	CloseAll(ctx context.Context, token string) error
	CountOpen(ctx context.Context) (int, error)
	ListOpen(ctx context.Context) ([]Position, error)
}

// EventPublisher is the producer side of the event transport, used by the
// market-data gateway.
type EventPublisher interface {
	Publish(ctx context.Context, event MarketEvent) error
}
