package resilience

import (
	"strings"
	"sync"
	"time"
)

// TTLCache is an in-memory cache with per-entry expiry. Safe for concurrent
// use; expired entries are dropped lazily on read.
type TTLCache[V any] struct {
	ttl     time.Duration
	nowFunc func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry[V]
}

type cacheEntry[V any] struct {
	val       V
	expiresAt time.Time
}

// NewTTLCache creates a cache whose entries expire after ttl.
func NewTTLCache[V any](ttl time.Duration) *TTLCache[V] {
	return &TTLCache[V]{
		ttl:     ttl,
		nowFunc: time.Now,
		entries: make(map[string]cacheEntry[V]),
	}
}

// Get returns the cached value and whether it was present and fresh.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		var zero V
		return zero, false
	}
	if c.nowFunc().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		var zero V
		return zero, false
	}
	return e.val, true
}

// Set stores val under key with the cache's TTL.
func (c *TTLCache[V]) Set(key string, val V) {
	c.mu.Lock()
	c.entries[key] = cacheEntry[V]{val: val, expiresAt: c.nowFunc().Add(c.ttl)}
	c.mu.Unlock()
}

// Len returns the number of entries including any not yet evicted.
func (c *TTLCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CacheKey joins the parts of a search-cache key: provider, normalized
// query, country, and window bounds.
func CacheKey(parts ...string) string {
	return strings.Join(parts, "|")
}
