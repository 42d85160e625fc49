// Package store holds decode results: a TTL in-memory cache for hot lookups
// and a SQLite-backed history of past decodes.
package store

import (
	"sync"
	"time"

	"github.com/vinlab/vinlab/engine/domain"
)

// DefaultCacheTTL bounds how long a decoded record is served without a fresh
// upstream lookup.
const DefaultCacheTTL = 24 * time.Hour

type cacheEntry struct {
	vehicle   *domain.DecodedVehicle
	expiresAt time.Time
}

// Cache is a bounded-lifetime VIN → DecodedVehicle map. Expired entries are
// purged lazily on access; there is no background sweep.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time // for testing
}

// NewCache creates a cache with the given TTL (DefaultCacheTTL if zero).
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached record for a VIN, or nil if absent or expired.
func (c *Cache) Get(vin string) *domain.DecodedVehicle {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[vin]
	if !ok {
		return nil
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, vin)
		return nil
	}
	return e.vehicle
}

// Set stores a record with a fresh expiry, overwriting any prior entry.
func (c *Cache) Set(vin string, v *domain.DecodedVehicle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[vin] = cacheEntry{vehicle: v, expiresAt: c.now().Add(c.ttl)}
}

// Len reports the number of entries, including any not yet lazily evicted.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
