// Package signer is the client for the remote transaction-signing service.
//
// The service holds the hot wallet key; this process never sees key material.
// A signing request is a single round trip with no retry: retrying a
// signature request risks double-signing a funds-moving transaction.
package signer

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

// Client calls the signer sidecar over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a signer client. timeout bounds the full sign round trip;
// zero means 30 seconds.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type signRequest struct {
	TransactionB64 string `json:"transaction_b64"`
}

type signResponse struct {
	SignedTransactionB64 string `json:"signed_transaction_b64"`
}

type pubkeyResponse struct {
	Pubkey string `json:"pubkey"`
}

// Sign submits an unsigned base64 transaction and returns the signed form.
// Any non-2xx status is a hard failure.
func (c *Client) Sign(ctx context.Context, transactionB64 string) (string, error) {
	payload, err := json.Marshal(signRequest{TransactionB64: transactionB64})
	if err != nil {
		return "", fmt.Errorf("signer: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sign", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("signer: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("signer: sign: %w: %w", domain.ErrSigner, err)
	}

	var resp signResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("signer: decode response: %w: %w", domain.ErrSigner, err)
	}
	if resp.SignedTransactionB64 == "" {
		return "", fmt.Errorf("signer: empty signed transaction: %w", domain.ErrSigner)
	}
	return resp.SignedTransactionB64, nil
}

// Pubkey returns the signing wallet's public key.
func (c *Client) Pubkey(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/pubkey", nil)
	if err != nil {
		return "", fmt.Errorf("signer: create request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("signer: get pubkey: %w: %w", domain.ErrSigner, err)
	}

	var resp pubkeyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("signer: decode pubkey: %w: %w", domain.ErrSigner, err)
	}
	return resp.Pubkey, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")

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
