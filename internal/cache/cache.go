// Package cache memoizes computed values per key for a fixed time-to-live.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a computed value stays fresh.
const DefaultTTL = time.Hour

// Clock abstracts the current time so expiry can be tested.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache stores one value per key until its TTL elapses. Concurrent misses
// for the same key share a single computation. Failed computations are not
// stored.
type TTLCache[V any] struct {
	ttl   time.Duration
	clock Clock

	mu      sync.Mutex
	entries map[string]entry[V]
	group   singleflight.Group
}

// Option configures a TTLCache.
type Option func(*options)

type options struct {
	clock Clock
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// New creates a cache whose entries live for ttl. A non-positive ttl falls
// back to DefaultTTL.
func New[V any](ttl time.Duration, opts ...Option) *TTLCache[V] {
	o := options{clock: SystemClock}
	for _, opt := range opts {
		opt(&o)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TTLCache[V]{
		ttl:     ttl,
		clock:   o.clock,
		entries: make(map[string]entry[V]),
	}
}

// TTL returns the configured time-to-live.
func (c *TTLCache[V]) TTL() time.Duration { return c.ttl }

// KeyFor derives the cache key of an ordered symbol list.
func KeyFor(symbols []string) string {
	return strings.Join(symbols, ",")
}

// Get returns the fresh value stored under key.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !c.clock.Now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, replacing any previous entry.
func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.clock.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// GetOrCompute returns the fresh value for key or runs fn to produce it.
// While fn runs, other callers for the same key wait for its result and
// share it. fn keeps the values of the caller that started it but not its
// cancellation; each caller stops waiting when its own ctx is done.
func (c *TTLCache[V]) GetOrCompute(ctx context.Context, key string, fn func(ctx context.Context) (V, error)) (V, error) {
	var zero V
	if v, ok := c.Get(key); ok {
		log.Debug().Str("key", key).Msg("cache hit")
		return v, nil
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		// another caller may have stored it between Get and DoChan
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		start := c.clock.Now()
		v, err := fn(detached)
		if err != nil {
			return v, err
		}
		c.Set(key, v)
		log.Debug().Str("key", key).Dur("duration", c.clock.Now().Sub(start)).Msg("cache filled")
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		out, _ := res.Val.(V)
		return out, nil
	}
}

// Invalidate drops the entry for key.
func (c *TTLCache[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	c.group.Forget(key)
}

// Purge drops expired entries and returns how many were removed.
func (c *TTLCache[V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	n := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired or not.
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
