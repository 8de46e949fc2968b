// Package jito is the client for the Jito block-engine bundle relay.
//
// Bundles go straight to the block builder instead of public broadcast,
// which keeps pending swaps out of front-runners' sight.
package jito

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jmreyes/memesnipe/internal/domain"
)

// Client calls the Jito block-engine HTTP API.
type Client struct {
	baseURL      string
	authIdentity string
	httpClient   *http.Client
}

// New creates a Jito client.
//
// baseURL is the block-engine API root, e.g.
// "https://mainnet.block-engine.jito.wtf/api/v1".
func New(baseURL, authIdentity string) *Client {
	return &Client{
		baseURL:      baseURL,
		authIdentity: authIdentity,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// BundleReceipt is the relay's acknowledgement of a submitted bundle.
type BundleReceipt struct {
	BundleID string `json:"bundle_id"`
	Status   string `json:"status"`
}

type bundleRequest struct {
	Transactions []string `json:"transactions"`
	TipLamports  uint64   `json:"tip_lamports"`
}

// SubmitBundle submits signed base64 transactions as one atomic bundle with
// the given tip.
func (c *Client) SubmitBundle(ctx context.Context, signedTxs []string, tipLamports uint64) (BundleReceipt, error) {
	if len(signedTxs) == 0 {
		return BundleReceipt{}, fmt.Errorf("jito: empty bundle: %w", domain.ErrRelay)
	}

	payload, err := json.Marshal(bundleRequest{
		Transactions: signedTxs,
		TipLamports:  tipLamports,
	})
	if err != nil {
		return BundleReceipt{}, fmt.Errorf("jito: encode bundle: %w", err)
	}

	body, err := c.doPost(ctx, "/bundles", payload)
	if err != nil {
		return BundleReceipt{}, fmt.Errorf("jito: submit bundle: %w: %w", domain.ErrRelay, err)
	}

	var receipt BundleReceipt
	if err := json.Unmarshal(body, &receipt); err != nil {
		return BundleReceipt{}, fmt.Errorf("jito: decode receipt: %w: %w", domain.ErrRelay, err)
	}
	if receipt.BundleID == "" {
		return BundleReceipt{}, fmt.Errorf("jito: receipt missing bundle id: %w", domain.ErrRelay)
	}
	return receipt, nil
}

// BundleStatus polls the relay for the current status of a bundle.
func (c *Client) BundleStatus(ctx context.Context, bundleID string) (BundleReceipt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/bundles/"+bundleID, nil)
	if err != nil {
		return BundleReceipt{}, fmt.Errorf("jito: create request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return BundleReceipt{}, fmt.Errorf("jito: bundle status %s: %w: %w", bundleID, domain.ErrRelay, err)
	}

	var receipt BundleReceipt
	if err := json.Unmarshal(body, &receipt); err != nil {
		return BundleReceipt{}, fmt.Errorf("jito: decode status: %w: %w", domain.ErrRelay, err)
	}
	return receipt, nil
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
	if c.authIdentity != "" {
		req.Header.Set("x-jito-auth", c.authIdentity)
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
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}
