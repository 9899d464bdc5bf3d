package resilience

import (
	"testing"
	"time"
)

func TestTTLCache_HitAndExpiry(t *testing.T) {
	now := time.Now()
	c := NewTTLCache[string](time.Minute)
	c.nowFunc = func() time.Time { return now }

	c.Set("k", "v")
	if v, ok := c.Get("k"); !ok || v != "v" {
		t.Fatalf("expected hit, got %q %v", v, ok)
	}

	now = now.Add(61 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after expiry")
	}
	if c.Len() != 0 {
		t.Error("expired entry should be evicted on read")
	}
}

func TestTTLCache_MissOnUnknownKey(t *testing.T) {
	c := NewTTLCache[int](time.Minute)
	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss")
	}
}

func TestCacheKey_Deterministic(t *testing.T) {
	a := CacheKey("firecrawl", "ai conference", "DE", "2025-03-01", "2025-03-31")
	b := CacheKey("firecrawl", "ai conference", "DE", "2025-03-01", "2025-03-31")
	if a != b {
		t.Error("identical parts must produce identical keys")
	}
	if a == CacheKey("cse", "ai conference", "DE", "2025-03-01", "2025-03-31") {
		t.Error("provider must participate in the key")
	}
}
