// Package cache provides a stale-tolerant fetch-or-compute cache for market
// data, with an optional Redis tier used strictly as a cache, never as a
// source of truth.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/keystonelabs/chainkit/internal/metrics"
)

// entry is one cached value with its fetch timestamp and TTL.
type entry[T any] struct {
	value     T
	fetchedAt time.Time
	ttl       time.Duration
}

func (e entry[T]) stale(now time.Time) bool {
	return now.Sub(e.fetchedAt) > e.ttl
}

// FetchFunc produces a fresh value when the cache cannot serve one.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Cache is a keyed fetch-or-compute cache. Concurrent fetches for the same
// stale key are not deduplicated: fetch functions are idempotent reads, so a
// redundant upstream call is a bounded inefficiency, not a defect.
type Cache[T any] struct {
	mu      sync.RWMutex
	entries map[string]entry[T]
	remote  *redis.Client
	log     *zap.Logger
}

// New creates a cache. remote may be nil, in which case only the in-process
// tier is used.
func New[T any](remote *redis.Client, log *zap.Logger) *Cache[T] {
	return &Cache[T]{
		entries: make(map[string]entry[T]),
		remote:  remote,
		log:     log.Named("cache"),
	}
}

// GetOrFetch returns the cached value for key if it is younger than ttl,
// otherwise invokes fetch and stores the result. If fetch fails and any
// cached value exists, the stale value is returned instead of the error;
// with no cached value the error propagates. The lock is never held across
// fetch or a Redis round trip.
func (c *Cache[T]) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc[T]) (T, error) {
	c.mu.RLock()
	cached, exists := c.entries[key]
	c.mu.RUnlock()

	now := time.Now()
	if exists && !cached.stale(now) {
		metrics.CacheRequests.WithLabelValues("hit").Inc()
		return cached.value, nil
	}

	if !exists {
		if value, ok := c.remoteGet(ctx, key); ok {
			metrics.CacheRequests.WithLabelValues("remote_hit").Inc()
			c.store(key, value, ttl)
			return value, nil
		}
	}

	value, err := fetch(ctx)
	if err != nil {
		if exists {
			metrics.CacheRequests.WithLabelValues("stale_fallback").Inc()
			c.log.Warn("fetch failed, serving stale value",
				zap.String("key", key),
				zap.Duration("age", now.Sub(cached.fetchedAt)),
				zap.Error(err))
			return cached.value, nil
		}
		metrics.CacheRequests.WithLabelValues("error").Inc()
		var zero T
		return zero, err
	}

	metrics.CacheRequests.WithLabelValues("miss").Inc()
	c.store(key, value, ttl)
	c.remoteSet(ctx, key, value, ttl)
	return value, nil
}

// Peek returns the cached value regardless of staleness.
func (c *Cache[T]) Peek(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e.value, ok
}

func (c *Cache[T]) store(key string, value T, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry[T]{value: value, fetchedAt: time.Now(), ttl: ttl}
	c.mu.Unlock()
}

// remoteGet reads the Redis tier. Freshness is delegated to the server-side
// expiry set by remoteSet; a missing or unreadable entry is simply a miss.
func (c *Cache[T]) remoteGet(ctx context.Context, key string) (T, bool) {
	var zero T
	if c.remote == nil {
		return zero, false
	}
	raw, err := c.remote.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.Debug("redis get failed", zap.String("key", key), zap.Error(err))
		}
		return zero, false
	}
	var value T
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		c.log.Debug("redis entry unreadable", zap.String("key", key), zap.Error(err))
		return zero, false
	}
	return value, true
}

func (c *Cache[T]) remoteSet(ctx context.Context, key string, value T, ttl time.Duration) {
	if c.remote == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.log.Debug("redis marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.remote.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.log.Debug("redis set failed", zap.String("key", key), zap.Error(err))
	}
}
