package jupiter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetQuoteBuildsQueryAndDecodes(t *testing.T) {
	var gotQuery map[string][]string
	var gotAPIKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/quote", r.URL.Path)
		gotQuery = r.URL.Query()
		gotAPIKey = r.Header.Get("x-api-key")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"inputMint":      "USDC",
			"outputMint":     "MINT",
			"inAmount":       "1000000",
			"outAmount":      "532100",
			"priceImpactPct": "0.0042",
			"slippageBps":    50,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "key-123")
	quote, err := c.GetQuote(context.Background(), QuoteRequest{
		InputMint:   "USDC",
		OutputMint:  "MINT",
		Amount:      1_000_000,
		SlippageBps: 50,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"1000000"}, gotQuery["amount"])
	assert.Equal(t, []string{"50"}, gotQuery["slippageBps"])
	assert.NotContains(t, gotQuery, "swapMode", "ExactIn omits the mode param")
	assert.Equal(t, "key-123", gotAPIKey)
	assert.Equal(t, "532100", quote.OutAmount)
	assert.InDelta(t, 0.0042, quote.PriceImpact(), 1e-9)
}

func TestGetQuoteExactOutSetsSwapMode(t *testing.T) {
	var gotMode string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMode = r.URL.Query().Get("swapMode")
		_ = json.NewEncoder(w).Encode(Quote{InAmount: "1", OutAmount: "1"})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.GetQuote(context.Background(), QuoteRequest{
		InputMint: "MINT", OutputMint: "USDC", Amount: 500_000_000, SwapMode: "ExactOut",
	})
	require.NoError(t, err)
	assert.Equal(t, "ExactOut", gotMode)
}

func TestBuildSwapReturnsTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/swap", r.URL.Path)
		var req swapRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Pubkey111", req.UserPublicKey)
		assert.True(t, req.WrapAndUnwrapSol)
		_ = json.NewEncoder(w).Encode(swapResponse{SwapTransaction: "dHhkYXRh"})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	tx, err := c.BuildSwap(context.Background(), Quote{InAmount: "1", OutAmount: "2"}, "Pubkey111")
	require.NoError(t, err)
	assert.Equal(t, "dHhkYXRh", tx)
}

func TestBuildSwapRejectsEmptyTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(swapResponse{})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.BuildSwap(context.Background(), Quote{}, "Pubkey111")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing transaction")
}

func TestErrorStatusIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"no route"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.GetQuote(context.Background(), QuoteRequest{InputMint: "A", OutputMint: "B", Amount: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "no route")
}

func TestPriceImpactUnparsableIsZero(t *testing.T) {
	assert.Zero(t, Quote{PriceImpactPct: "n/a"}.PriceImpact())
	assert.Zero(t, Quote{}.PriceImpact())
}
