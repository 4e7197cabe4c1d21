// Package balance reads wallet balances through the chain clients, backed
// by the on-disk balance cache.
package balance

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mrz1836/remit/internal/cache"
	"github.com/mrz1836/remit/internal/chain"
	"github.com/mrz1836/remit/internal/metrics"
	remiterr "github.com/mrz1836/remit/pkg/errors"
)

// Config configures a Source.
type Config struct {
	// Readers maps each chain to its balance client.
	Readers map[chain.ID]chain.BalanceReader
	// Owners maps each chain to the wallet's address on it.
	Owners map[chain.ID]string
	Cache  *cache.BalanceCache
	// Storage persists the cache; nil keeps it in memory only.
	Storage *cache.FileStorage
	// MaxAge is how long a cached balance is served without a refetch.
	MaxAge  time.Duration
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Source serves the wallet's balances.
type Source struct {
	cfg    Config
	logger *zap.Logger
	saveMu sync.Mutex
}

// NewSource creates a Source.
func NewSource(cfg Config) *Source {
	if cfg.Cache == nil {
		cfg.Cache = cache.NewBalanceCache()
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = cache.DefaultStaleness
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{cfg: cfg, logger: logger}
}

// Owner returns the wallet address on id.
func (s *Source) Owner(id chain.ID) (string, bool) {
	owner, ok := s.cfg.Owners[id]
	return owner, ok && owner != ""
}

// Balance returns the wallet's balance of asset, from cache when fresh.
func (s *Source) Balance(ctx context.Context, asset chain.Asset) (chain.AssetAmount, error) {
	owner, ok := s.Owner(asset.Chain)
	if !ok {
		return chain.AssetAmount{}, remiterr.WithDetails(remiterr.ErrNotSupported, map[string]string{
			"chain":  asset.Chain.String(),
			"reason": "wallet has no address on this chain",
		})
	}

	if entry, exists, age := s.cfg.Cache.Get(owner, asset); exists && age <= s.cfg.MaxAge {
		if amt, ok := entry.Amount(); ok {
			s.cfg.Metrics.RecordCacheHit()
			return amt, nil
		}
	}
	s.cfg.Metrics.RecordCacheMiss()

	return s.Fetch(ctx, asset)
}

// Fetch reads the balance from the chain, bypassing the cache, and stores
// the result.
func (s *Source) Fetch(ctx context.Context, asset chain.Asset) (chain.AssetAmount, error) {
	owner, ok := s.Owner(asset.Chain)
	if !ok {
		return chain.AssetAmount{}, remiterr.WithDetails(remiterr.ErrNotSupported, map[string]string{"chain": asset.Chain.String()})
	}
	reader, ok := s.cfg.Readers[asset.Chain]
	if !ok {
		return chain.AssetAmount{}, remiterr.WithDetails(remiterr.ErrNotSupported, map[string]string{"chain": asset.Chain.String()})
	}

	wei, err := reader.GetBalance(ctx, owner, asset)
	if err != nil {
		return chain.AssetAmount{}, err
	}
	amt := chain.NewAssetAmount(asset, wei)

	s.cfg.Cache.Set(owner, amt)
	s.persist()
	return amt, nil
}

// InvalidateAfterTransfer drops the wallet's cached balances on every
// chain so the next read refetches. Persistence is best effort.
func (s *Source) InvalidateAfterTransfer() {
	removed := 0
	for _, owner := range s.cfg.Owners {
		removed += s.cfg.Cache.DeleteOwner(owner)
	}
	s.logger.Debug("balance cache invalidated", zap.Int("entries", removed))
	s.persist()
}

func (s *Source) persist() {
	if s.cfg.Storage == nil {
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if err := s.cfg.Storage.Save(s.cfg.Cache); err != nil {
		s.logger.Warn("saving balance cache", zap.String("path", s.cfg.Storage.Path()), zap.Error(err))
	}
}
