// ABOUTME: In-memory cache with TTL-based expiration
// ABOUTME: Thread-safe cache using sync.Map, swept by a context-bound cleanup loop

package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSweepInterval is how often Run removes expired entries.
const DefaultSweepInterval = time.Minute

type entry[V any] struct {
	data      V
	expiresAt time.Time
}

// Cache maps string keys to values that expire after a TTL.
type Cache[V any] struct {
	store sync.Map
	ttl   time.Duration
	now   func() time.Time
}

// New creates a cache whose entries live for ttl.
func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		ttl: ttl,
		now: time.Now,
	}
}

// Get returns the value for key if present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	val, ok := c.store.Load(key)
	if !ok {
		slog.Debug("Cache miss", "key", key)
		return zero, false
	}

	e := val.(entry[V])
	if c.now().After(e.expiresAt) {
		c.store.Delete(key)
		slog.Debug("Cache expired", "key", key)
		return zero, false
	}

	slog.Debug("Cache hit", "key", key)
	return e.data, true
}

// Take returns the value for key and removes it, so a key is handed out at most once.
func (c *Cache[V]) Take(key string) (V, bool) {
	var zero V
	val, ok := c.store.LoadAndDelete(key)
	if !ok {
		return zero, false
	}
	e := val.(entry[V])
	if c.now().After(e.expiresAt) {
		return zero, false
	}
	return e.data, true
}

// Set stores value under key with the cache's TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with a custom TTL
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.store.Store(key, entry[V]{
		data:      value,
		expiresAt: c.now().Add(ttl),
	})
	slog.Debug("Cache set", "key", key, "ttl", ttl)
}

// Clear removes key.
func (c *Cache[V]) Clear(key string) {
	c.store.Delete(key)
}

// Len counts the stored entries, expired or not.
func (c *Cache[V]) Len() int {
	n := 0
	c.store.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Sweep removes every expired entry and returns how many were removed.
func (c *Cache[V]) Sweep() int {
	now := c.now()
	removed := 0
	c.store.Range(func(key, val any) bool {
		if now.After(val.(entry[V]).expiresAt) {
			c.store.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// Run sweeps expired entries every interval until ctx is done.
func (c *Cache[V]) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				slog.Debug("Cache swept", "removed", n)
			}
		}
	}
}
