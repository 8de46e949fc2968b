// Package domain defines the core data model shared across the engine:
// market events, strategy actions, trade intents, risk state, and the
// store/bus interfaces implemented by the cache and store packages.
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType tags a MarketEvent variant and is the key strategies subscribe by.
type EventType string

const (
	EventTypePrice   EventType = "price"
	EventTypeVolume  EventType = "volume"
	EventTypeOnChain EventType = "onchain"
	EventTypeWhale   EventType = "whale"
	EventTypeBridge  EventType = "bridge"
	EventTypeFunding EventType = "funding"
	EventTypeAirdrop EventType = "airdrop"
)

// AllEventTypes lists every event type in stream order.
var AllEventTypes = []EventType{
	EventTypePrice,
	EventTypeVolume,
	EventTypeOnChain,
	EventTypeWhale,
	EventTypeBridge,
	EventTypeFunding,
	EventTypeAirdrop,
}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventTypePrice, EventTypeVolume, EventTypeOnChain, EventTypeWhale,
		EventTypeBridge, EventTypeFunding, EventTypeAirdrop:
		return true
	}
	return false
}

// PriceUpdate carries a fresh price observation for a token.
type PriceUpdate struct {
	PriceUSD      float64 `json:"price_usd"`
	VolumeUSD1m   float64 `json:"volume_usd_1m"`
	VolumeUSD5m   float64 `json:"volume_usd_5m"`
	PriceChange5m float64 `json:"price_change_5m"`
	LiquidityUSD  float64 `json:"liquidity_usd"`
}

// VolumeUpdate carries aggregated trade-volume statistics.
type VolumeUpdate struct {
	SpikeRatio    float64 `json:"spike_ratio"` // current vs trailing average
	BuyVolumeUSD  float64 `json:"buy_volume_usd"`
	SellVolumeUSD float64 `json:"sell_volume_usd"`
	UniqueTraders int     `json:"unique_traders"`
}

// OnChainEvent carries a raw on-chain observation (LP pulls, mints, freezes).
type OnChainEvent struct {
	Kind    string          `json:"kind"`
	Details json.RawMessage `json:"details,omitempty"`
}

// WhaleMove reports a large wallet acting on a token.
type WhaleMove struct {
	Wallet           string  `json:"wallet"`
	Action           string  `json:"action"` // "buy", "sell", "transfer"
	AmountUSD        float64 `json:"amount_usd"`
	WalletBalanceUSD float64 `json:"wallet_balance_usd"`
}

// BridgeFlow reports cross-chain inflow/outflow for a token.
type BridgeFlow struct {
	SourceChain      string  `json:"source_chain"`
	DestinationChain string  `json:"destination_chain"`
	VolumeUSD        float64 `json:"volume_usd"`
	UniqueUsers      int     `json:"unique_users"`
}

// FundingRate reports the perp funding rate for a token.
type FundingRate struct {
	RatePct         float64 `json:"rate_pct"`
	OpenInterestUSD float64 `json:"open_interest_usd"`
}

// Airdrop reports a token distribution event.
type Airdrop struct {
	Recipients     int     `json:"recipients"`
	TotalAmountUSD float64 `json:"total_amount_usd"`
	AvgPerWallet   float64 `json:"avg_per_wallet"`
}

// MarketEvent is the tagged union consumed by the event loop. Exactly one
// payload field matching Type is non-nil. Events are immutable after
// construction; strategies receive them read-only.
type MarketEvent struct {
	Type      EventType `json:"type"`
	Token     string    `json:"token"`
	Timestamp time.Time `json:"timestamp"`

	Price   *PriceUpdate  `json:"price,omitempty"`
	Volume  *VolumeUpdate `json:"volume,omitempty"`
	OnChain *OnChainEvent `json:"onchain,omitempty"`
	Whale   *WhaleMove    `json:"whale,omitempty"`
	Bridge  *BridgeFlow   `json:"bridge,omitempty"`
	Funding *FundingRate  `json:"funding,omitempty"`
	Airdrop *Airdrop      `json:"airdrop,omitempty"`
}

// Validate checks that the event is well formed: a known type, a token, and
// the payload matching its tag.
func (e MarketEvent) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("market event: unknown type %q", e.Type)
	}
	if e.Token == "" {
		return fmt.Errorf("market event: missing token")
	}
	var ok bool
	switch e.Type {
	case EventTypePrice:
		ok = e.Price != nil
	case EventTypeVolume:
		ok = e.Volume != nil
	case EventTypeOnChain:
		ok = e.OnChain != nil
	case EventTypeWhale:
		ok = e.Whale != nil
	case EventTypeBridge:
		ok = e.Bridge != nil
	case EventTypeFunding:
		ok = e.Funding != nil
	case EventTypeAirdrop:
		ok = e.Airdrop != nil
	}
	if !ok {
		return fmt.Errorf("market event: missing %s payload", e.Type)
	}
	return nil
}

// DecodeMarketEvent parses an event from its stream payload and validates it.
func DecodeMarketEvent(data []byte) (MarketEvent, error) {
	var e MarketEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return MarketEvent{}, fmt.Errorf("market event: decode: %w", err)
	}
	if err := e.Validate(); err != nil {
		return MarketEvent{}, err
	}
	return e, nil
}
