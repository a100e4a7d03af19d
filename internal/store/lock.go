package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// lockTTL caps how long a crashed pipeline run can hold a query key.
const lockTTL = 30 * time.Second

const lockPrefix = "discovery:lock:"

// RedisLocker implements Locker with SET NX EX, giving at-most-one pipeline
// writer per query key across replicas.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockPrefix+key, "1", lockTTL).Result()
	if err != nil {
		// A broken lock backend must not take discovery down; callers
		// proceed unlocked and at worst duplicate one pipeline run.
		slog.WarnContext(ctx, "redis lock unavailable, proceeding without", "error", err)
		return true, nil
	}
	return ok, nil
}

func (l *RedisLocker) Unlock(ctx context.Context, key string) {
	if err := l.client.Del(ctx, lockPrefix+key).Err(); err != nil {
		slog.WarnContext(ctx, "redis unlock failed", "key", key, "error", err)
	}
}

// LocalLocker is the single-process fallback when no REDIS_URL is set.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		held: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (l *LocalLocker) TryLock(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if acquired, ok := l.held[key]; ok && l.now().Sub(acquired) < lockTTL {
		return false, nil
	}
	l.held[key] = l.now()
	return true, nil
}

func (l *LocalLocker) Unlock(_ context.Context, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
}
