package store

import (
	"context"
	"errors"
	"time"

	"glowfeed.app/discovery/internal/domain"
)

// ErrCacheMiss is returned when no fresh entry exists for a query key.
var ErrCacheMiss = errors.New("cache miss")

// CacheStore holds completed pipeline outcomes keyed by exact query text.
// Entries are fully replaced on write (delete-then-insert), never patched.
type CacheStore interface {
	// Fresh reports whether a usable entry exists within the TTL.
	Fresh(ctx context.Context, query string) bool

	// Read returns the entry for query, or ErrCacheMiss.
	Read(ctx context.Context, query string) (*domain.CacheEntry, error)

	// Replace atomically swaps the entry for query.
	Replace(ctx context.Context, query string, entry domain.CacheEntry) error
}

// Locker serializes pipeline runs per query key so concurrent identical
// queries do not duplicate work. TryLock returns false when another run
// holds the key; the loser waits on the winner's cache write instead.
type Locker interface {
	TryLock(ctx context.Context, key string) (bool, error)
	Unlock(ctx context.Context, key string)
}

// freshWithin is the shared TTL predicate for cache implementations.
func freshWithin(cachedAt time.Time, ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(cachedAt) < ttl
}
