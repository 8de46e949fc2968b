package domain

import "time"

// RiskSnapshot is the portfolio risk state sampled by the circuit breaker on
// each tick. It is written by the portfolio-accounting process and only read
// here.
type RiskSnapshot struct {
	DrawdownFraction  float64 // <= 0 while under water, e.g. -0.12 for 12%
	DailyPnLUSD       float64
	OpenPositionCount int
}

// HaltState is the cluster-wide trading halt flag. Once tripped it stays
// tripped until an operator clears it out of band; the breaker never resets
// it.
type HaltState struct {
	Halted    bool
	Reason    string
	TrippedAt time.Time
}

// ControlHalt is the literal broadcast message published on the control
// channel when the breaker trips.
const ControlHalt = "HALT"

// StrategySpec is a strategy blueprint produced by the external strategy
// factory and consumed from the spec queue to hot-register new strategies.
// Fitness is updated out of band; the engine only reads Params at
// instantiation.
type StrategySpec struct {
	ID        string         `json:"id"`
	Family    string         `json:"family"`
	Params    map[string]any `json:"params"`
	Fitness   float64        `json:"fitness"`
	CreatedAt time.Time      `json:"created_at"`
}

// Position is the minimal open-position record kept for risk decisions and
// paper-trading accounting.
type Position struct {
	ID         string
	Token      string
	Side       Side
	SizeUSD    float64
	StrategyID string
	Status     PositionStatus
	OpenedAt   time.Time
	ClosedAt   *time.Time
}

// PositionStatus is the lifecycle state of a Position.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)
