package valuation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMemoryCache_GetSet(t *testing.T) {
	clock := newFakeClock()
	cache := NewMemoryCache(time.Hour, clock)

	_, ok := cache.Get("p1")
	assert.False(t, ok)

	cache.Set("p1", decimal.NewFromInt(42))

	value, ok := cache.Get("p1")
	assert.True(t, ok)
	assert.True(t, value.Equal(decimal.NewFromInt(42)))
}

func TestMemoryCache_Expiry(t *testing.T) {
	clock := newFakeClock()
	cache := NewMemoryCache(time.Hour, clock)

	cache.Set("p1", decimal.NewFromInt(42))

	clock.Advance(59 * time.Minute)
	_, ok := cache.Get("p1")
	assert.True(t, ok)

	clock.Advance(2 * time.Minute)
	_, ok = cache.Get("p1")
	assert.False(t, ok)
}

func TestMemoryCache_ExpiredGetDropsEntry(t *testing.T) {
	clock := newFakeClock()
	cache := NewMemoryCache(time.Hour, clock)

	cache.Set("p1", decimal.NewFromInt(42))
	cache.Set("p2", decimal.NewFromInt(7))
	clock.Advance(61 * time.Minute)

	_, ok := cache.Get("p1")
	assert.False(t, ok)

	cache.mu.RLock()
	_, p1Kept := cache.entries["p1"]
	_, p2Kept := cache.entries["p2"]
	cache.mu.RUnlock()
	assert.False(t, p1Kept)
	assert.True(t, p2Kept, "entries are dropped lazily, only on Get")
}

func TestMemoryCache_SetResetsLifetime(t *testing.T) {
	clock := newFakeClock()
	cache := NewMemoryCache(time.Hour, clock)

	cache.Set("p1", decimal.NewFromInt(1))
	clock.Advance(45 * time.Minute)
	cache.Set("p1", decimal.NewFromInt(2))
	clock.Advance(45 * time.Minute)

	value, ok := cache.Get("p1")
	assert.True(t, ok)
	assert.True(t, value.Equal(decimal.NewFromInt(2)))
}

func TestMemoryCache_Delete(t *testing.T) {
	clock := newFakeClock()
	cache := NewMemoryCache(time.Hour, clock)

	cache.Set("p1", decimal.NewFromInt(1))
	cache.Delete("p1")

	_, ok := cache.Get("p1")
	assert.False(t, ok)
}
