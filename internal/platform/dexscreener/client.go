// Package dexscreener is a read-only client for the DexScreener token API,
// used as the liquidity fallback when the ingest pipeline has no fresh pool
// snapshot for a token.
package dexscreener

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client calls the public DexScreener REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a DexScreener client.
//
// baseURL is the API root, e.g. "https://api.dexscreener.com".
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Pair is the subset of DexScreener pair fields the executor consumes.
type Pair struct {
	PairAddress string `json:"pairAddress"`
	DexID       string `json:"dexId"`
	Liquidity   struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	PriceUSD string `json:"priceUsd"`
}

type tokenResponse struct {
	Pairs []Pair `json:"pairs"`
}

// DeepestPair returns the highest-liquidity pair trading the given token
// mint, or an error when the token has no listed pairs.
func (c *Client) DeepestPair(ctx context.Context, tokenMint string) (Pair, error) {
	path := "/latest/dex/tokens/" + url.PathEscape(tokenMint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return Pair{}, fmt.Errorf("dexscreener: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Pair{}, fmt.Errorf("dexscreener: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Pair{}, fmt.Errorf("dexscreener: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Pair{}, fmt.Errorf("dexscreener: unexpected status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return Pair{}, fmt.Errorf("dexscreener: decode response: %w", err)
	}
	if len(tr.Pairs) == 0 {
		return Pair{}, fmt.Errorf("dexscreener: no pairs for token %s", tokenMint)
	}

	deepest := tr.Pairs[0]
	for _, p := range tr.Pairs[1:] {
		if p.Liquidity.USD > deepest.Liquidity.USD {
			deepest = p
		}
	}
	return deepest, nil
}
