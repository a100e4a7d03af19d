package store

import (
	"context"
	"sync"
	"time"

	"glowfeed.app/discovery/internal/domain"
)

// MemoryCache is a thread-safe in-memory CacheStore with TTL expiry. It backs
// deployments without a DATABASE_URL and every test.
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]domain.CacheEntry
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	c := &MemoryCache{
		data: make(map[string]domain.CacheEntry),
		ttl:  ttl,
		now:  time.Now,
	}
	go c.cleanupExpired()
	return c
}

func (c *MemoryCache) Fresh(ctx context.Context, query string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[query]
	return ok && freshWithin(entry.CachedAt, c.ttl, c.now())
}

func (c *MemoryCache) Read(ctx context.Context, query string) (*domain.CacheEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[query]
	if !ok || !freshWithin(entry.CachedAt, c.ttl, c.now()) {
		return nil, ErrCacheMiss
	}
	return &entry, nil
}

func (c *MemoryCache) Replace(ctx context.Context, query string, entry domain.CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, query)
	c.data[query] = entry
	return nil
}

func (c *MemoryCache) cleanupExpired() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		now := c.now()
		for key, entry := range c.data {
			if !freshWithin(entry.CachedAt, c.ttl, now) {
				delete(c.data, key)
			}
		}
		c.mu.Unlock()
	}
}
