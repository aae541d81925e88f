// Package cache memoizes expensive computations by key and collapses
// concurrent requests for the same key into a single computation.
package cache

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ComputeFunc produces the value for a key on a miss. It receives a context
// that is not canceled when the triggering caller goes away.
type ComputeFunc[V any] func(ctx context.Context) (V, error)

// Stats are cumulative counters for a Cache.
type Stats struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Computes int64 `json:"computes"`
	Shared   int64 `json:"shared"`
}

// Option configures a Cache.
type Option[V any] func(*Cache[V])

// WithStorePredicate keeps values for which keep returns false out of the
// store. They are still handed to every caller waiting on the computation.
func WithStorePredicate[V any](keep func(V) bool) Option[V] {
	return func(c *Cache[V]) { c.keep = keep }
}

// Cache is a read-through cache with at most one in-flight computation per
// key. Different keys are computed in parallel.
type Cache[V any] struct {
	store Store[V]
	group singleflight.Group
	keep  func(V) bool

	hits, misses, computes, shared atomic.Int64
}

// New wraps store.
func New[V any](store Store[V], opts ...Option[V]) *Cache[V] {
	c := &Cache[V]{store: store}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCompute returns the stored value for key, or runs compute once for
// all concurrent callers asking for the same key.
//
// The computation is detached from ctx: if ctx is canceled the caller gets
// ctx.Err() immediately while the computation carries on and populates the
// store for the remaining waiters. Failed computations are never stored, so
// the next caller starts fresh.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, compute ComputeFunc[V]) (V, error) {
	var zero V
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if v, ok := c.lookup(ctx, key); ok {
		c.hits.Add(1)
		return v, nil
	}
	c.misses.Add(1)

	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		// A flight for this key may have finished between our lookup and
		// joining the group.
		if v, ok := c.lookup(flightCtx, key); ok {
			return v, nil
		}
		c.computes.Add(1)
		v, err := compute(flightCtx)
		if err != nil {
			return nil, err
		}
		if c.keep == nil || c.keep(v) {
			if err := c.store.Set(flightCtx, key, v); err != nil {
				zerolog.Ctx(flightCtx).Warn().Err(err).Str("key", key).Msg("Failed to store computed value")
			}
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.shared.Add(1)
		}
		if res.Err != nil {
			return zero, res.Err
		}
		v, ok := res.Val.(V)
		if !ok {
			return zero, fmt.Errorf("cache: unexpected value type %T", res.Val)
		}
		return v, nil
	}
}

// Stats returns a snapshot of the counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Computes: c.computes.Load(),
		Shared:   c.shared.Load(),
	}
}

// Len reports the number of stored entries.
func (c *Cache[V]) Len(ctx context.Context) int {
	return c.store.Len(ctx)
}

func (c *Cache[V]) lookup(ctx context.Context, key string) (V, bool) {
	v, ok, err := c.store.Get(ctx, key)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("Cache lookup failed, treating as miss")
		var zero V
		return zero, false
	}
	return v, ok
}
