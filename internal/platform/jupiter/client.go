// Package jupiter is the REST client for the Jupiter quote/swap aggregator.
package jupiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client calls the Jupiter swap API for quotes and swap-transaction builds.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Jupiter client.
//
// baseURL is the API root, e.g. "https://api.jup.ag/swap/v1".
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// QuoteRequest describes a requested swap route.
type QuoteRequest struct {
	InputMint   string
	OutputMint  string
	Amount      uint64 // base units; input amount, or output amount for ExactOut
	SlippageBps int
	SwapMode    string // "" (ExactIn) or "ExactOut"
}

// Quote is a priced route returned by the aggregator.
type Quote struct {
	InputMint            string          `json:"inputMint"`
	OutputMint           string          `json:"outputMint"`
	InAmount             string          `json:"inAmount"`
	OutAmount            string          `json:"outAmount"`
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	PriceImpactPct       string          `json:"priceImpactPct"`
	SlippageBps          int             `json:"slippageBps"`
	RoutePlan            json.RawMessage `json:"routePlan"`
}

// PriceImpact returns the quoted price impact as a fraction, 0 when unparsable.
func (q Quote) PriceImpact() float64 {
	f, err := strconv.ParseFloat(q.PriceImpactPct, 64)
	if err != nil {
		return 0
	}
	return f
}

// GetQuote fetches a swap quote for the given route.
func (c *Client) GetQuote(ctx context.Context, req QuoteRequest) (Quote, error) {
	params := url.Values{}
	params.Set("inputMint", req.InputMint)
	params.Set("outputMint", req.OutputMint)
	params.Set("amount", strconv.FormatUint(req.Amount, 10))
	params.Set("slippageBps", strconv.Itoa(req.SlippageBps))
	if req.SwapMode != "" {
		params.Set("swapMode", req.SwapMode)
	}

	body, err := c.doGet(ctx, "/quote?"+params.Encode())
	if err != nil {
		return Quote{}, fmt.Errorf("jupiter: get quote: %w", err)
	}

	var quote Quote
	if err := json.Unmarshal(body, &quote); err != nil {
		return Quote{}, fmt.Errorf("jupiter: decode quote: %w", err)
	}
	return quote, nil
}

// swapRequest is the wire shape of the swap-build request.
type swapRequest struct {
	QuoteResponse    json.RawMessage `json:"quoteResponse"`
	UserPublicKey    string          `json:"userPublicKey"`
	WrapAndUnwrapSol bool            `json:"wrapAndUnwrapSol"`
}

// swapResponse is the wire shape of the swap-build response.
type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}

// BuildSwap turns a quote into an unsigned base64-encoded transaction for the
// given wallet.
func (c *Client) BuildSwap(ctx context.Context, quote Quote, userPubkey string) (string, error) {
	rawQuote, err := json.Marshal(quote)
	if err != nil {
		return "", fmt.Errorf("jupiter: encode quote: %w", err)
	}

	payload, err := json.Marshal(swapRequest{
		QuoteResponse:    rawQuote,
		UserPublicKey:    userPubkey,
		WrapAndUnwrapSol: true,
	})
	if err != nil {
		return "", fmt.Errorf("jupiter: encode swap request: %w", err)
	}

	body, err := c.doPost(ctx, "/swap", payload)
	if err != nil {
		return "", fmt.Errorf("jupiter: build swap: %w", err)
	}

	var resp swapResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("jupiter: decode swap response: %w", err)
	}
	if resp.SwapTransaction == "" {
		return "", fmt.Errorf("jupiter: swap response missing transaction")
	}
	return resp.SwapTransaction, nil
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.do(req)
}

func (c *Client) doPost(ctx context.Context, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 256))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
