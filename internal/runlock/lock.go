package runlock

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lock serializes whole-batch scheduler invocations. Concurrent runs are not
// safe: the natural-key upsert protects instance rows, but overlapping runs
// could double-advance the last-generated watermark.
type Lock interface {
	// TryAcquire returns a release func when the lock was taken, or
	// ok=false when another run holds it.
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
}

type redisLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func (l *redisLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, "1", l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		_ = l.client.Del(context.Background(), l.key).Err()
	}
	return release, true, nil
}

type memoryLock struct {
	mu   sync.Mutex
	held bool
}

func (l *memoryLock) TryAcquire(_ context.Context) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held {
		return nil, false, nil
	}
	l.held = true
	release := func() {
		l.mu.Lock()
		l.held = false
		l.mu.Unlock()
	}
	return release, true, nil
}

// NewMemory returns a process-local lock, for tests and single-process
// deployments.
func NewMemory() Lock {
	return &memoryLock{}
}

// New builds a Redis-backed lock and falls back to in-memory on failure.
// The error reports why the fallback was taken; the returned Lock is always
// usable.
func New(addr, pass string, db int, key string, ttl time.Duration) (Lock, error) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pass,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return NewMemory(), err
	}

	return &redisLock{client: client, key: key, ttl: ttl}, nil
}
