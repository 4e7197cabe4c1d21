package ton

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

	"github.com/shopspring/decimal"

	"github.com/mrz1836/remit/internal/chain"
	remiterr "github.com/mrz1836/remit/pkg/errors"
)

const (
	// DefaultBaseURL is the TonAPI v2 base URL.
	DefaultBaseURL = "https://tonapi.io"

	// httpTimeout is the default HTTP request timeout.
	httpTimeout = 15 * time.Second

	// maxResponseBody is the maximum response body size to read (1 MB).
	maxResponseBody = 1 << 20

	limiterKey = "tonapi"
)

// AccountInfo is the subset of a TonAPI account the wallet needs.
type AccountInfo struct {
	Address      string // raw form
	Balance      *big.Int
	Status       string // active, uninit, frozen, nonexist
	Name         string
	MemoRequired bool
	IsWallet     bool
}

// IsActive reports whether the account is deployed and can bounce.
func (a *AccountInfo) IsActive() bool {
	return a.Status == "active"
}

type accountResponse struct {
	Address      string      `json:"address"`
	Balance      json.Number `json:"balance"`
	Status       string      `json:"status"`
	Name         string      `json:"name"`
	MemoRequired bool        `json:"memo_required"`
	IsWallet     bool        `json:"is_wallet"`
}

type dnsResponse struct {
	Wallet *struct {
		Address string `json:"address"`
	} `json:"wallet"`
}

type jettonBalanceResponse struct {
	Balance string `json:"balance"`
}

type ratesResponse struct {
	Rates map[string]struct {
		Prices map[string]decimal.Decimal `json:"prices"`
	} `json:"rates"`
}

// Client is a TonAPI v2 client.
type Client struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	rateLimiter *chain.RateLimiter
	retry       chain.RetryConfig
}

// ClientOptions configures the TonAPI client.
type ClientOptions struct {
	// BaseURL overrides the default TonAPI URL (useful for testing).
	BaseURL string
	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
	// RateLimiter overrides the default limiter.
	RateLimiter *chain.RateLimiter
	// Retry overrides the default retry policy.
	Retry *chain.RetryConfig
}

// NewClient creates a TonAPI client. The API key is optional; without it
// the public rate limit applies.
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

// GetAccount fetches account metadata. Unknown accounts return ErrNotFound.
func (c *Client) GetAccount(ctx context.Context, id string) (*AccountInfo, error) {
	var resp accountResponse
	if err := c.get(ctx, "/v2/accounts/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}

	balance, ok := new(big.Int).SetString(resp.Balance.String(), 10)
	if !ok {
		balance = new(big.Int)
	}

	return &AccountInfo{
		Address:      resp.Address,
		Balance:      balance,
		Status:       resp.Status,
		Name:         resp.Name,
		MemoRequired: resp.MemoRequired,
		IsWallet:     resp.IsWallet,
	}, nil
}

// ResolveDNS resolves a TON DNS identifier to the raw wallet address it points to.
func (c *Client) ResolveDNS(ctx context.Context, domain string) (string, error) {
	var resp dnsResponse
	path := "/v2/dns/" + url.PathEscape(strings.ToLower(domain)) + "/resolve"
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return "", err
	}
	if resp.Wallet == nil || resp.Wallet.Address == "" {
		return "", remiterr.WithDetails(remiterr.ErrNotFound, map[string]string{"domain": domain})
	}
	return resp.Wallet.Address, nil
}

// GetBalance returns the owner's balance of a native or jetton asset in smallest units.
func (c *Client) GetBalance(ctx context.Context, owner string, asset chain.Asset) (*big.Int, error) {
	if asset.Chain != chain.TON {
		return nil, remiterr.WithDetails(remiterr.ErrNotSupported, map[string]string{"chain": asset.Chain.String()})
	}

	switch asset.Kind {
	case chain.KindNative:
		acc, err := c.GetAccount(ctx, owner)
		if remiterr.Is(err, remiterr.ErrNotFound) {
			return new(big.Int), nil
		}
		if err != nil {
			return nil, err
		}
		return acc.Balance, nil
	case chain.KindJetton:
		var resp jettonBalanceResponse
		path := "/v2/accounts/" + url.PathEscape(owner) + "/jettons/" + url.PathEscape(asset.Address)
		err := c.get(ctx, path, nil, &resp)
		if remiterr.Is(err, remiterr.ErrNotFound) {
			return new(big.Int), nil
		}
		if err != nil {
			return nil, err
		}
		balance, ok := new(big.Int).SetString(resp.Balance, 10)
		if !ok {
			return nil, fmt.Errorf("parsing jetton balance %q: %w", resp.Balance, remiterr.ErrNetworkError)
		}
		return balance, nil
	case chain.KindStablecoin:
		return nil, remiterr.WithDetails(remiterr.ErrUnsupportedKind, map[string]string{"kind": asset.Kind.String()})
	default:
		return nil, remiterr.WithDetails(remiterr.ErrUnsupportedKind, map[string]string{"kind": asset.Kind.String()})
	}
}

// GetRates returns the price of each token in the given fiat currency.
// Tokens are "ton" or jetton master addresses; keys of the result are
// the tokens exactly as passed in. Tokens without a quote are omitted.
func (c *Client) GetRates(ctx context.Context, tokens []string, currency string) (map[string]decimal.Decimal, error) {
	q := url.Values{}
	q.Set("tokens", strings.Join(tokens, ","))
	q.Set("currencies", strings.ToLower(currency))

	var resp ratesResponse
	if err := c.get(ctx, "/v2/rates", q, &resp); err != nil {
		return nil, err
	}

	out := make(map[string]decimal.Decimal, len(tokens))
	for _, token := range tokens {
		for key, rate := range resp.Rates {
			if !strings.EqualFold(key, token) {
				continue
			}
			for cur, price := range rate.Prices {
				if strings.EqualFold(cur, currency) {
					out[token] = price
				}
			}
		}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	_, err := chain.RetryWithConfig(ctx, c.retry, func() (struct{}, error) {
		return struct{}{}, c.do(ctx, reqURL, out)
	})
	return err
}

func (c *Client) do(ctx context.Context, reqURL string, out any) error {
	if err := c.rateLimiter.Wait(ctx, limiterKey); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL is built from config and escaped path segments
	if err != nil {
		return chain.WrapRetryable(fmt.Errorf("sending request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return remiterr.WithDetails(remiterr.ErrNotFound, map[string]string{"url": req.URL.Path})
	}
	if err := chain.StatusError(resp.StatusCode, truncateBody(string(body), 512)); err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// truncateBody truncates a string to maxLen characters.
func truncateBody(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
