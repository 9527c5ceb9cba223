// Package store provides the in-memory TTL cache and the persistent lyric
// store backing the resolver and the video locator.
package store

import (
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// TTLCache is a thread-safe bounded cache with per-entry expiry. Size pressure
// evicts least-recently-used entries; a Bloom filter fronts the cache so that
// lookups for never-seen keys return without touching the LRU.
type TTLCache[V any] struct {
	lru       *lru.Cache[string, ttlEntry[V]]
	bloom     *bloom.BloomFilter
	mutex     sync.Mutex
	capacity  int
	fpRate    float64
	insertion int

	now func() time.Time
}

type ttlEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// NewTTLCache creates a cache holding at most capacity entries.
func NewTTLCache[V any](capacity int, bloomFalsePositiveRate float64) *TTLCache[V] {
	cache, _ := lru.New[string, ttlEntry[V]](capacity)

	return &TTLCache[V]{
		lru:      cache,
		bloom:    bloom.NewWithEstimates(uint(capacity), bloomFalsePositiveRate),
		capacity: capacity,
		fpRate:   bloomFalsePositiveRate,
		now:      time.Now,
	}
}

// Get returns the cached value for key if present and not expired.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.bloom.TestString(key) {
		return zero, false
	}

	entry, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}

	if c.now().After(entry.expiresAt) {
		c.lru.Remove(key)
		return zero, false
	}

	return entry.value, true
}

// Set stores a value with its own time-to-live.
func (c *TTLCache[V]) Set(key string, value V, ttl time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.lru.Add(key, ttlEntry[V]{value: value, expiresAt: c.now().Add(ttl)})
	c.bloom.AddString(key)

	// The Bloom filter does not support removal, so it degrades as entries
	// churn; rebuild it once insertions far exceed capacity. Stale positives
	// in the meantime just fall through to the LRU lookup.
	c.insertion++
	if c.insertion > c.capacity*8 {
		c.rebuildBloom()
	}
}

// Evict removes a key immediately.
func (c *TTLCache[V]) Evict(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.lru.Remove(key)
}

// Purge drops every entry.
func (c *TTLCache[V]) Purge() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.lru.Purge()
	c.bloom.ClearAll()
	c.insertion = 0
}

// Len returns the number of entries currently held, expired or not.
func (c *TTLCache[V]) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.lru.Len()
}

func (c *TTLCache[V]) rebuildBloom() {
	c.bloom = bloom.NewWithEstimates(uint(c.capacity), c.fpRate)
	for _, key := range c.lru.Keys() {
		c.bloom.AddString(key)
	}
	c.insertion = c.lru.Len()
}
