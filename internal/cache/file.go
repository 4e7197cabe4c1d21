package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mrz1836/remit/internal/fileutil"
)

const cacheFilePermissions = 0o640

// ErrCorruptCache indicates the cache file is malformed JSON.
var ErrCorruptCache = errors.New("cache file is corrupted")

// FileStorage persists a BalanceCache as JSON.
type FileStorage struct {
	path string
}

// NewFileStorage creates a new file-based cache storage.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Save writes the cache atomically.
func (s *FileStorage) Save(cache *BalanceCache) error {
	cache.mu.RLock()
	data, err := json.MarshalIndent(cache, "", "  ")
	cache.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}

	if err := fileutil.Write(s.path, data, cacheFilePermissions); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	return nil
}

// Load reads the cache. A missing file yields an empty cache; a corrupt
// file is moved aside and also yields an empty cache with ErrCorruptCache.
func (s *FileStorage) Load() (*BalanceCache, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return NewBalanceCache(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache file: %w", err)
	}

	var cache BalanceCache
	if err := json.Unmarshal(data, &cache); err != nil {
		corruptPath, renameErr := fileutil.Quarantine(s.path, time.Now())
		if renameErr != nil {
			return NewBalanceCache(), fmt.Errorf("%w: %w (also failed to move file: %w)", ErrCorruptCache, err, renameErr)
		}
		return NewBalanceCache(), fmt.Errorf("%w: %w (moved to %s)", ErrCorruptCache, err, corruptPath)
	}

	if cache.Entries == nil {
		cache.Entries = make(map[string]BalanceCacheEntry)
	}
	return &cache, nil
}

// Path returns the cache file path.
func (s *FileStorage) Path() string {
	return s.path
}
