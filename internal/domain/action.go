package domain

import (
	"time"

	"github.com/google/uuid"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ActionKind tags a StrategyAction variant.
type ActionKind string

const (
	ActionHold   ActionKind = "hold"
	ActionEnter  ActionKind = "enter"
	ActionExit   ActionKind = "exit"
	ActionAdjust ActionKind = "adjust"
)

// StrategyAction is the output of one strategy for one event. Exactly one
// strategy produces each action; the registry never merges actions from
// different strategies.
type StrategyAction struct {
	Kind    ActionKind
	Token   string
	Side    Side    // Enter only
	SizeUSD float64 // Enter only
	Delta   float64 // Adjust only: signed USD change to the open position
	Reason  string
}

// Hold is the no-op action.
func Hold() StrategyAction { return StrategyAction{Kind: ActionHold} }

// Enter opens or adds to a position.
func Enter(token string, side Side, sizeUSD float64, reason string) StrategyAction {
	return StrategyAction{Kind: ActionEnter, Token: token, Side: side, SizeUSD: sizeUSD, Reason: reason}
}

// Exit closes the position in token.
func Exit(token string, reason string) StrategyAction {
	return StrategyAction{Kind: ActionExit, Token: token, Reason: reason}
}

// Adjust resizes the position in token by delta USD (negative shrinks).
func Adjust(token string, delta float64, reason string) StrategyAction {
	return StrategyAction{Kind: ActionAdjust, Token: token, Delta: delta, Reason: reason}
}

// TradeIntent is the execution router's input, derived 1:1 from a non-Hold
// StrategyAction. The ID exists so a future retry layer has an idempotency
// key to hang attempts off; the router itself never retries.
type TradeIntent struct {
	ID         string
	Token      string
	Side       Side
	SizeUSD    float64
	StrategyID string
	Kind       ActionKind
	CreatedAt  time.Time
}

// NewTradeIntent builds a TradeIntent from a non-Hold action. Exit maps to a
// sell of the full position; Adjust maps to a buy or sell of |delta|.
func NewTradeIntent(strategyID string, action StrategyAction) TradeIntent {
	intent := TradeIntent{
		ID:         uuid.New().String(),
		Token:      action.Token,
		StrategyID: strategyID,
		Kind:       action.Kind,
		CreatedAt:  time.Now().UTC(),
	}
	switch action.Kind {
	case ActionEnter:
		intent.Side = action.Side
		intent.SizeUSD = action.SizeUSD
	case ActionExit:
		intent.Side = SideSell
	case ActionAdjust:
		if action.Delta >= 0 {
			intent.Side = SideBuy
			intent.SizeUSD = action.Delta
		} else {
			intent.Side = SideSell
			intent.SizeUSD = -action.Delta
		}
	}
	return intent
}

// ExecutionStatus is the terminal state of one execution attempt.
type ExecutionStatus string

const (
	ExecutionExecuted ExecutionStatus = "executed"
	ExecutionRejected ExecutionStatus = "rejected"
	ExecutionFailed   ExecutionStatus = "failed"
)

// ExecutionOutcome is the terminal record of one execution attempt. Outcomes
// are never retried automatically past the router's fixed pipeline.
type ExecutionOutcome struct {
	IntentID            string
	StrategyID          string
	Token               string
	Side                Side
	SizeUSD             float64
	Status              ExecutionStatus
	Reason              string
	RealizedSlippageBps float64
	TxSignature         string
	BundleID            string
	Paper               bool
	CreatedAt           time.Time
}
