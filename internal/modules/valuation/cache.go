package valuation

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/folio/internal/domain"
)

// Cache stores the previous valuation baseline per portfolio with a bounded
// lifetime. Advisory state: entries may vanish at any time and the detector
// degrades to "no prior baseline".
type Cache interface {
	Get(portfolioID string) (decimal.Decimal, bool)
	Set(portfolioID string, value decimal.Decimal)
	Delete(portfolioID string)
}

type cacheEntry struct {
	value     decimal.Decimal
	expiresAt time.Time
}

// MemoryCache is the in-process Cache implementation. Last write wins on
// concurrent sets for the same portfolio, which is fine for advisory data.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	clock   domain.Clock
	entries map[string]cacheEntry
}

// NewMemoryCache creates a cache whose entries live for ttl.
func NewMemoryCache(ttl time.Duration, clock domain.Clock) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached valuation for a portfolio if present and not
// expired. Expired entries are removed on sight so the map does not
// grow with portfolios that stopped being swept.
func (c *MemoryCache) Get(portfolioID string) (decimal.Decimal, bool) {
	c.mu.RLock()
	entry, ok := c.entries[portfolioID]
	c.mu.RUnlock()

	if !ok {
		return decimal.Zero, false
	}
	if c.clock.Now().After(entry.expiresAt) {
		c.mu.Lock()
		// A concurrent Set may have refreshed the entry in between.
		if current, ok := c.entries[portfolioID]; ok && current.expiresAt.Equal(entry.expiresAt) {
			delete(c.entries, portfolioID)
		}
		c.mu.Unlock()
		return decimal.Zero, false
	}
	return entry.value, true
}

// Set stores a valuation baseline, resetting its lifetime.
func (c *MemoryCache) Set(portfolioID string, value decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[portfolioID] = cacheEntry{
		value:     value,
		expiresAt: c.clock.Now().Add(c.ttl),
	}
}

// Delete drops a portfolio's baseline.
func (c *MemoryCache) Delete(portfolioID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, portfolioID)
}
