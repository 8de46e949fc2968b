package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequiresMatchingPayload(t *testing.T) {
	base := MarketEvent{Type: EventTypePrice, Token: "MINT", Timestamp: time.Now().UTC()}

	err := base.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing price payload")

	base.Price = &PriceUpdate{PriceUSD: 0.01}
	assert.NoError(t, base.Validate())
}

func TestValidateRejectsUnknownTypeAndMissingToken(t *testing.T) {
	err := MarketEvent{Type: "weather", Token: "MINT"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown type")

	err = MarketEvent{Type: EventTypePrice, Price: &PriceUpdate{}}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing token")
}

func TestDecodeMarketEvent(t *testing.T) {
	payload := []byte(`{
		"type": "whale",
		"token": "MINTxyz",
		"timestamp": "2026-08-01T12:00:00Z",
		"whale": {"wallet": "Wa11et", "action": "buy", "amount_usd": 12000, "wallet_balance_usd": 250000}
	}`)

	e, err := DecodeMarketEvent(payload)
	require.NoError(t, err)

	assert.Equal(t, EventTypeWhale, e.Type)
	assert.Equal(t, "MINTxyz", e.Token)
	require.NotNil(t, e.Whale)
	assert.Equal(t, 12000.0, e.Whale.AmountUSD)
}

func TestDecodeMarketEventRejectsGarbage(t *testing.T) {
	_, err := DecodeMarketEvent([]byte(`{not json`))
	assert.Error(t, err)

	_, err = DecodeMarketEvent([]byte(`{"type":"price","token":"MINT"}`))
	assert.Error(t, err, "decoded events are validated too")
}

func TestNewTradeIntentMapping(t *testing.T) {
	enter := NewTradeIntent("s1", Enter("MINT", SideBuy, 75, "signal"))
	assert.Equal(t, SideBuy, enter.Side)
	assert.Equal(t, 75.0, enter.SizeUSD)
	assert.Equal(t, ActionEnter, enter.Kind)
	assert.NotEmpty(t, enter.ID)

	exit := NewTradeIntent("s1", Exit("MINT", "rug"))
	assert.Equal(t, SideSell, exit.Side)
	assert.Equal(t, ActionExit, exit.Kind)

	grow := NewTradeIntent("s1", Adjust("MINT", 30, "scale in"))
	assert.Equal(t, SideBuy, grow.Side)
	assert.Equal(t, 30.0, grow.SizeUSD)

	shrink := NewTradeIntent("s1", Adjust("MINT", -20, "scale out"))
	assert.Equal(t, SideSell, shrink.Side)
	assert.Equal(t, 20.0, shrink.SizeUSD)
}

func TestIntentIDsAreUnique(t *testing.T) {
	a := NewTradeIntent("s", Enter("MINT", SideBuy, 10, "x"))
	b := NewTradeIntent("s", Enter("MINT", SideBuy, 10, "x"))
	assert.NotEqual(t, a.ID, b.ID)
}
