// Package cache provides balance caching functionality.
package cache

import (
	"math/big"
	"sync"
	"time"

	"github.com/mrz1836/remit/internal/chain"
)

// DefaultStaleness is the default duration after which cache entries are considered stale.
const DefaultStaleness = 30 * time.Second

// BalanceCache stores cached balances keyed by owner and asset.
type BalanceCache struct {
	mu      sync.RWMutex                 `json:"-"`
	Entries map[string]BalanceCacheEntry `json:"entries"`
}

// BalanceCacheEntry represents a single cached balance.
type BalanceCacheEntry struct {
	Owner     string      `json:"owner"`
	Asset     chain.Asset `json:"asset"`
	Balance   string      `json:"balance"` // smallest units
	UpdatedAt time.Time   `json:"updated_at"`
}

// Amount parses the cached balance. Corrupt values report false.
func (e *BalanceCacheEntry) Amount() (chain.AssetAmount, bool) {
	wei, ok := new(big.Int).SetString(e.Balance, 10)
	if !ok || wei.Sign() < 0 {
		return chain.AssetAmount{}, false
	}
	return chain.NewAssetAmount(e.Asset, wei), true
}

// NewBalanceCache creates a new empty balance cache.
func NewBalanceCache() *BalanceCache {
	return &BalanceCache{
		Entries: make(map[string]BalanceCacheEntry),
	}
}

// Key generates the cache key for an owner's balance of an asset.
func Key(owner string, asset chain.Asset) string {
	return asset.ID() + ":" + owner
}

// Get retrieves a cached balance entry.
// Returns the entry, whether it exists, and its age.
func (c *BalanceCache) Get(owner string, asset chain.Asset) (*BalanceCacheEntry, bool, time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.Entries[Key(owner, asset)]
	if !exists {
		return nil, false, 0
	}
	return &entry, true, time.Since(entry.UpdatedAt)
}

// Set stores a balance, stamped with the current time.
func (c *BalanceCache) Set(owner string, amount chain.AssetAmount) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Entries[Key(owner, amount.Asset)] = BalanceCacheEntry{
		Owner:     owner,
		Asset:     amount.Asset,
		Balance:   amount.Wei.String(),
		UpdatedAt: time.Now(),
	}
}

// DeleteOwner removes every entry of owner and returns how many were removed.
func (c *BalanceCache) DeleteOwner(owner string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.Entries {
		if entry.Owner == owner {
			delete(c.Entries, key)
			removed++
		}
	}
	return removed
}

// Size returns the number of cache entries.
func (c *BalanceCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.Entries)
}
