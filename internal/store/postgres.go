package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"glowfeed.app/discovery/core/db"
	"glowfeed.app/discovery/internal/domain"
)

// PostgresCache persists cache entries in a single jsonb-payload table:
//
//	CREATE TABLE discovery_cache (
//	    query_key  text PRIMARY KEY,
//	    payload    jsonb NOT NULL,
//	    cached_at  timestamptz NOT NULL
//	);
type PostgresCache struct {
	db  *db.DB
	ttl time.Duration
}

func NewPostgresCache(database *db.DB, ttl time.Duration) *PostgresCache {
	return &PostgresCache{db: database, ttl: ttl}
}

func (c *PostgresCache) Fresh(ctx context.Context, query string) bool {
	var cachedAt time.Time
	err := c.db.Pool().QueryRow(ctx,
		`SELECT cached_at FROM discovery_cache WHERE query_key = $1`,
		query,
	).Scan(&cachedAt)
	if err != nil {
		return false
	}
	return freshWithin(cachedAt, c.ttl, time.Now())
}

func (c *PostgresCache) Read(ctx context.Context, query string) (*domain.CacheEntry, error) {
	var payload []byte
	var cachedAt time.Time
	err := c.db.Pool().QueryRow(ctx,
		`SELECT payload, cached_at FROM discovery_cache WHERE query_key = $1`,
		query,
	).Scan(&payload, &cachedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}

	if !freshWithin(cachedAt, c.ttl, time.Now()) {
		return nil, ErrCacheMiss
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, fmt.Errorf("decoding cache entry: %w", err)
	}
	return &entry, nil
}

// Replace deletes then inserts inside one transaction, so readers see either
// the old entry or the new one, never a partial state.
func (c *PostgresCache) Replace(ctx context.Context, query string, entry domain.CacheEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	return c.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM discovery_cache WHERE query_key = $1`, query); err != nil {
			return fmt.Errorf("deleting stale entry: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO discovery_cache (query_key, payload, cached_at) VALUES ($1, $2, $3)`,
			query, payload, entry.CachedAt); err != nil {
			return fmt.Errorf("inserting entry: %w", err)
		}
		return nil
	})
}
