// Package storage persists the price cache and the observation ledger.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"steamwatch/internal/logger"
	"steamwatch/internal/models"
)

// Cache is the durable last-known-price document, keyed by item identifier.
// A missing or corrupt file loads as an empty cache; persistence problems
// must never abort a run.
type Cache struct {
	path    string
	entries map[string]models.CacheEntry
}

// OpenCache loads the cache document at path, tolerating absence and
// corruption.
func OpenCache(path string) *Cache {
	c := &Cache{path: path, entries: make(map[string]models.CacheEntry)}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read price cache %s, starting empty: %v", path, err)
		}
		return c
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		logger.Warn("corrupt price cache %s, starting empty: %v", path, err)
		c.entries = make(map[string]models.CacheEntry)
	}
	return c
}

// Get returns the entry for item, if one exists.
func (c *Cache) Get(item string) (models.CacheEntry, bool) {
	entry, ok := c.entries[item]
	return entry, ok
}

// Set overwrites the entry for item.
func (c *Cache) Set(item string, entry models.CacheEntry) {
	c.entries[item] = entry
}

// Len returns the number of cached items.
func (c *Cache) Len() int {
	return len(c.entries)
}

// IsStale reports whether item is eligible for a fresh fetch: no entry, or
// at least refresh has elapsed since its last update.
func (c *Cache) IsStale(item string, now time.Time, refresh time.Duration) bool {
	entry, ok := c.entries[item]
	if !ok {
		return true
	}
	return now.Unix()-entry.LastUpdate >= int64(refresh/time.Second)
}

// Save writes the whole document back to disk, creating the parent
// directory if needed.
func (c *Cache) Save() error {
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal price cache: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write price cache: %w", err)
	}
	return nil
}
