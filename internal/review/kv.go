package review

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKV backs review tokens with Redis; TTL handling comes for free.
type RedisKV struct {
	rdb *redis.Client
}

func NewRedisKV(rdb *redis.Client) *RedisKV { return &RedisKV{rdb: rdb} }

func (r *RedisKV) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.rdb.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKV) Fetch(ctx context.Context, key string) (string, error) {
	v, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	return v, err
}

// MemoryKV is an expiring in-memory KV for tests and local development.
type MemoryKV struct {
	mu    sync.Mutex
	items map[string]memoryItem
	clock func() time.Time
}

type memoryItem struct {
	value     string
	expiresAt time.Time
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{items: make(map[string]memoryItem), clock: time.Now}
}

// WithClock injects a deterministic clock for tests.
func (m *MemoryKV) WithClock(clock func() time.Time) *MemoryKV {
	m.clock = clock
	return m
}

func (m *MemoryKV) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = memoryItem{value: value, expiresAt: m.clock().Add(ttl)}
	return nil
}

func (m *MemoryKV) Fetch(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[key]
	if !ok || m.clock().After(it.expiresAt) {
		delete(m.items, key)
		return "", ErrTokenNotFound
	}
	return it.value, nil
}
