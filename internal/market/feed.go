// Package market serves fiat prices for wallet assets. The feed polls a
// rate provider in the background and answers Rate from memory, so price
// lookups never block the wizard.
package market

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mrz1836/remit/internal/chain"
)

// DefaultInterval is the default refresh period.
const DefaultInterval = 30 * time.Second

// nativeTONToken is the rate provider's identifier for the TON coin.
const nativeTONToken = "ton"

// RateFetcher returns prices for provider token identifiers in currency.
// Tokens without a price are absent from the result.
type RateFetcher interface {
	GetRates(ctx context.Context, tokens []string, currency string) (map[string]decimal.Decimal, error)
}

// Config configures a Feed.
type Config struct {
	Fetcher  RateFetcher
	Currency string
	Interval time.Duration
	// Assets are the assets to price. Assets the provider cannot quote
	// (TRON) only have a price if listed in Fixed.
	Assets []chain.Asset
	// Fixed maps asset IDs to constant prices, e.g. a USD stable-coin at 1.
	Fixed  map[string]decimal.Decimal
	Logger *zap.Logger
	// OnUpdate is called after every successful refresh.
	OnUpdate func()
}

// Feed caches the latest price of each configured asset.
type Feed struct {
	cfg    Config
	logger *zap.Logger
	tokens map[string]string // provider token -> asset ID

	mu        sync.RWMutex
	rates     map[string]decimal.Decimal
	updatedAt time.Time
}

// NewFeed creates a feed. Fixed prices are available immediately.
func NewFeed(cfg Config) *Feed {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	f := &Feed{
		cfg:    cfg,
		logger: logger,
		tokens: make(map[string]string),
		rates:  make(map[string]decimal.Decimal),
	}
	for id, price := range cfg.Fixed {
		f.rates[strings.ToLower(id)] = price
	}
	for _, a := range cfg.Assets {
		if token, ok := providerToken(a); ok {
			f.tokens[token] = a.ID()
		}
	}
	return f
}

// providerToken maps an asset to the rate provider's identifier.
func providerToken(a chain.Asset) (string, bool) {
	switch a.Kind {
	case chain.KindNative:
		if a.Chain == chain.TON {
			return nativeTONToken, true
		}
		return "", false
	case chain.KindJetton:
		return a.Address, a.Address != ""
	case chain.KindStablecoin:
		return "", false
	default:
		return "", false
	}
}

// Rate returns the latest price of asset, or an invalid NullDecimal when
// none is known.
func (f *Feed) Rate(asset chain.Asset) decimal.NullDecimal {
	f.mu.RLock()
	defer f.mu.RUnlock()

	price, ok := f.rates[asset.ID()]
	if !ok || price.Sign() <= 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(price)
}

// UpdatedAt returns the time of the last successful refresh.
func (f *Feed) UpdatedAt() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.updatedAt
}

// Refresh fetches prices once. On error the previous prices are kept.
func (f *Feed) Refresh(ctx context.Context) error {
	if len(f.tokens) == 0 || f.cfg.Fetcher == nil {
		return nil
	}

	tokens := make([]string, 0, len(f.tokens))
	for token := range f.tokens {
		tokens = append(tokens, token)
	}

	prices, err := f.cfg.Fetcher.GetRates(ctx, tokens, f.cfg.Currency)
	if err != nil {
		return err
	}

	f.mu.Lock()
	for token, price := range prices {
		if id, ok := f.tokens[token]; ok {
			f.rates[id] = price
		}
	}
	f.updatedAt = time.Now()
	f.mu.Unlock()

	if f.cfg.OnUpdate != nil {
		f.cfg.OnUpdate()
	}
	return nil
}

// Run refreshes immediately and then every interval until ctx is done.
// Refresh failures are logged and retried on the next tick.
func (f *Feed) Run(ctx context.Context) {
	ticker := time.NewTicker(f.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := f.Refresh(ctx); err != nil && ctx.Err() == nil {
			f.logger.Warn("rate refresh failed", zap.String("currency", f.cfg.Currency), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
