// Package relay talks to the wallet backend that emulates messages for fee
// estimation and submits signed messages to the chains.
package relay

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mrz1836/remit/internal/chain"
	"github.com/mrz1836/remit/internal/fee"
	"github.com/mrz1836/remit/internal/message"
	"github.com/mrz1836/remit/internal/transfer"
	remiterr "github.com/mrz1836/remit/pkg/errors"
)

const (
	httpTimeout     = 30 * time.Second
	maxResponseBody = 1 << 20
	limiterKey      = "relay"

	// IdempotencyHeader carries the per-submission key. Retries of one
	// submission reuse the key so the relay broadcasts at most once.
	IdempotencyHeader = "Idempotency-Key"
)

type emulateRequest struct {
	Message *message.Message `json:"message"`
}

type emulateResponse struct {
	Fee string `json:"fee"`
}

type submitResponse struct {
	TxHash string `json:"tx_hash"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Client is a relay API client.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	rateLimiter *chain.RateLimiter
	retry       chain.RetryConfig
	messages    message.Options
	newKey      func() string
	now         func() time.Time
}

// ClientOptions configures the relay client.
type ClientOptions struct {
	HTTPClient  *http.Client
	RateLimiter *chain.RateLimiter
	Retry       *chain.RetryConfig
	// Messages tunes the token transfer messages sent for emulation.
	Messages *message.Options
}

// NewClient creates a relay client for baseURL.
func NewClient(baseURL, apiKey string, opts *ClientOptions) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: httpTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		rateLimiter: chain.NewRateLimiter(5, 10),
		retry:       chain.DefaultRetryConfig(),
		messages:    message.DefaultOptions(),
		newKey:      func() string { return uuid.NewString() },
		now:         time.Now,
	}

	if opts != nil {
		if opts.HTTPClient != nil {
			c.httpClient = opts.HTTPClient
		}
		if opts.RateLimiter != nil {
			c.rateLimiter = opts.RateLimiter
		}
		if opts.Retry != nil {
			c.retry = *opts.Retry
		}
		if opts.Messages != nil {
			c.messages = *opts.Messages
		}
	}
	return c
}

// EstimateFee builds the unsigned message for req and asks the relay to
// emulate it. The fee is charged in the chain's native asset.
func (c *Client) EstimateFee(ctx context.Context, req fee.Request) (*fee.Estimate, error) {
	msg, err := message.Build(message.Spec{
		From:       req.From,
		To:         req.To,
		Amount:     req.Amount,
		Comment:    req.Comment,
		Bounceable: req.Bounceable,
		Max:        req.Max,
	}, c.messages)
	if err != nil {
		return nil, err
	}

	var resp emulateResponse
	if err := c.post(ctx, "/v1/"+msg.Chain.String()+"/emulate", "", emulateRequest{Message: msg}, &resp); err != nil {
		return nil, err
	}

	wei, ok := new(big.Int).SetString(resp.Fee, 10)
	if !ok || wei.Sign() < 0 {
		return nil, fmt.Errorf("parsing fee %q: %w", resp.Fee, remiterr.ErrNetworkError)
	}
	return &fee.Estimate{Fee: chain.NewAssetAmount(req.Amount.Asset.FeeAsset(), wei)}, nil
}

// Submit broadcasts a signed message. The receipt carries the chain and
// hash; the caller fills in what it knows about the transfer.
func (c *Client) Submit(ctx context.Context, signed *message.Signed) (*transfer.Receipt, error) {
	if signed == nil || signed.Message == nil {
		return nil, remiterr.WithDetails(remiterr.ErrInvalidInput, map[string]string{"reason": "nothing to submit"})
	}

	var resp submitResponse
	path := "/v1/" + signed.Message.Chain.String() + "/submit"
	if err := c.post(ctx, path, c.newKey(), signed, &resp); err != nil {
		return nil, err
	}
	if resp.TxHash == "" {
		return nil, fmt.Errorf("submit response without tx hash: %w", remiterr.ErrNetworkError)
	}

	return &transfer.Receipt{
		Chain:       signed.Message.Chain,
		TxHash:      resp.TxHash,
		SubmittedAt: c.now().UTC(),
	}, nil
}

func (c *Client) post(ctx context.Context, path, idempotencyKey string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	_, err = chain.RetryWithConfig(ctx, c.retry, func() (struct{}, error) {
		return struct{}{}, c.do(ctx, c.baseURL+path, idempotencyKey, body, out)
	})
	return err
}

func (c *Client) do(ctx context.Context, reqURL, idempotencyKey string, body []byte, out any) error {
	if err := c.rateLimiter.Wait(ctx, limiterKey); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if idempotencyKey != "" {
		req.Header.Set(IdempotencyHeader, idempotencyKey)
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL is built from config
	if err != nil {
		return chain.WrapRetryable(fmt.Errorf("sending request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if err := chain.StatusError(resp.StatusCode, errorText(data)); err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// errorText prefers the relay's JSON error field over the raw body.
func errorText(body []byte) string {
	var e errorResponse
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	if len(body) > 512 {
		return string(body[:512]) + "..."
	}
	return string(body)
}
