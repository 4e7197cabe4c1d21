package tron

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mrz1836/remit/internal/chain"
	remiterr "github.com/mrz1836/remit/pkg/errors"
)

const (
	// DefaultBaseURL is the TronGrid mainnet URL.
	DefaultBaseURL = "https://api.trongrid.io"

	// httpTimeout is the default HTTP request timeout.
	httpTimeout = 15 * time.Second

	// maxResponseBody is the maximum response body size to read (1 MB).
	maxResponseBody = 1 << 20

	limiterKey = "trongrid"
)

// AccountInfo holds TRX and TRC-20 balances of an account.
type AccountInfo struct {
	Address string
	// Activated is false for addresses that have never received TRX.
	Activated bool
	Balance   *big.Int
	// TRC20 maps contract address to balance in smallest units.
	TRC20 map[string]*big.Int
}

type accountsResponse struct {
	Success bool `json:"success"`
	Data    []struct {
		Balance json.Number         `json:"balance"`
		TRC20   []map[string]string `json:"trc20"`
	} `json:"data"`
}

// Client is a TronGrid v1 client.
type Client struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	rateLimiter *chain.RateLimiter
	retry       chain.RetryConfig
}

// ClientOptions configures the TronGrid client.
type ClientOptions struct {
	BaseURL     string
	HTTPClient  *http.Client
	RateLimiter *chain.RateLimiter
	Retry       *chain.RetryConfig
}

// NewClient creates a TronGrid client. The API key is optional.
func NewClient(apiKey string, opts *ClientOptions) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: httpTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		rateLimiter: chain.DefaultRateLimiter(),
		retry:       chain.DefaultRetryConfig(),
	}

	if opts != nil {
		if opts.BaseURL != "" {
			c.baseURL = strings.TrimRight(opts.BaseURL, "/")
		}
		if opts.HTTPClient != nil {
			c.httpClient = opts.HTTPClient
		}
		if opts.RateLimiter != nil {
			c.rateLimiter = opts.RateLimiter
		}
		if opts.Retry != nil {
			c.retry = *opts.Retry
		}
	}

	return c
}

// GetAccount fetches balances for a base58 address. An address that has
// never been activated returns a zero-balance, non-activated account.
func (c *Client) GetAccount(ctx context.Context, address string) (*AccountInfo, error) {
	if _, err := DecodeAddress(address); err != nil {
		return nil, remiterr.WithCause(remiterr.ErrInvalidAddress, err)
	}

	resp, err := chain.RetryWithConfig(ctx, c.retry, func() (*accountsResponse, error) {
		return c.fetchAccount(ctx, address)
	})
	if err != nil {
		return nil, err
	}

	info := &AccountInfo{
		Address: address,
		Balance: new(big.Int),
		TRC20:   make(map[string]*big.Int),
	}
	if len(resp.Data) == 0 {
		return info, nil
	}

	info.Activated = true
	data := resp.Data[0]
	if v, ok := new(big.Int).SetString(data.Balance.String(), 10); ok {
		info.Balance = v
	}
	for _, entry := range data.TRC20 {
		for contract, raw := range entry {
			if v, ok := new(big.Int).SetString(raw, 10); ok {
				info.TRC20[contract] = v
			}
		}
	}
	return info, nil
}

// GetBalance returns TRX or TRC-20 balance in smallest units.
func (c *Client) GetBalance(ctx context.Context, owner string, asset chain.Asset) (*big.Int, error) {
	if asset.Chain != chain.TRON {
		return nil, remiterr.WithDetails(remiterr.ErrNotSupported, map[string]string{"chain": asset.Chain.String()})
	}

	acc, err := c.GetAccount(ctx, owner)
	if err != nil {
		return nil, err
	}

	switch asset.Kind {
	case chain.KindNative:
		return acc.Balance, nil
	case chain.KindStablecoin:
		if v, ok := acc.TRC20[asset.Address]; ok {
			return v, nil
		}
		return new(big.Int), nil
	case chain.KindJetton:
		return nil, remiterr.WithDetails(remiterr.ErrUnsupportedKind, map[string]string{"kind": asset.Kind.String()})
	default:
		return nil, remiterr.WithDetails(remiterr.ErrUnsupportedKind, map[string]string{"kind": asset.Kind.String()})
	}
}

func (c *Client) fetchAccount(ctx context.Context, address string) (*accountsResponse, error) {
	if err := c.rateLimiter.Wait(ctx, limiterKey); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := c.baseURL + "/v1/accounts/" + url.PathEscape(address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("TRON-PRO-API-KEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL is built from config and a validated address
	if err != nil {
		return nil, chain.WrapRetryable(fmt.Errorf("sending request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if err := chain.StatusError(resp.StatusCode, truncateBody(string(body), 512)); err != nil {
		return nil, err
	}

	var out accountsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("%w: trongrid reported failure", remiterr.ErrNetworkError)
	}
	return &out, nil
}

// truncateBody truncates a string to maxLen characters.
func truncateBody(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
