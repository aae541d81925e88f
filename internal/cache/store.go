package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// Defaults for the in-memory store.
const (
	DefaultTTL      = time.Hour
	DefaultCapacity = 1024
)

// Store holds computed values by key. Implementations must be safe for
// concurrent use.
type Store[V any] interface {
	Get(ctx context.Context, key string) (V, bool, error)
	Set(ctx context.Context, key string, value V) error
	Len(ctx context.Context) int
}

// MemoryStore is a process-local LRU whose entries also expire after a TTL.
// Whichever limit is reached first evicts the entry.
type MemoryStore[V any] struct {
	lru *expirable.LRU[string, V]
}

// NewMemoryStore returns an LRU bounded by capacity entries and ttl age.
func NewMemoryStore[V any](capacity int, ttl time.Duration) *MemoryStore[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore[V]{lru: expirable.NewLRU[string, V](capacity, nil, ttl)}
}

func (s *MemoryStore[V]) Get(_ context.Context, key string) (V, bool, error) {
	v, ok := s.lru.Get(key)
	return v, ok, nil
}

func (s *MemoryStore[V]) Set(_ context.Context, key string, value V) error {
	s.lru.Add(key, value)
	return nil
}

func (s *MemoryStore[V]) Len(context.Context) int {
	return s.lru.Len()
}

// RedisStore keeps JSON-encoded values in Redis so replicas share results.
type RedisStore[V any] struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// ConnectRedis parses url and verifies connectivity.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// NewRedisStore stores values under prefix+key with the given ttl.
func NewRedisStore[V any](rdb *redis.Client, prefix string, ttl time.Duration) *RedisStore[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore[V]{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisStore[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	raw, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("redis get: %w", err)
	}
	var v V
	if err := json.Unmarshal(raw, &v); err != nil {
		// A value we cannot decode is treated as a miss and recomputed.
		return zero, false, nil
	}
	return v, true, nil
}

func (s *RedisStore[V]) Set(ctx context.Context, key string, value V) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	if err := s.rdb.Set(ctx, s.prefix+key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Len counts keys under the store's prefix. It scans and is meant for
// diagnostics only.
func (s *RedisStore[V]) Len(ctx context.Context) int {
	n := 0
	iter := s.rdb.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	return n
}
