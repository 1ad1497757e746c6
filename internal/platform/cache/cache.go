// Package cache provides TTL cache-aside lookups over a byte-oriented
// provider (Redis in deployed environments, in-process memory otherwise).
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Provider stores opaque values with a TTL. Get reports a miss with ok=false.
type Provider interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
}

type Cache struct {
	provider Provider
	prefix   string
	logger   zerolog.Logger
	group    singleflight.Group
}

func New(provider Provider, prefix string, logger zerolog.Logger) *Cache {
	return &Cache{provider: provider, prefix: prefix, logger: logger}
}

func (c *Cache) key(k string) string { return c.prefix + k }

// Remove invalidates key.
func (c *Cache) Remove(ctx context.Context, key string) error {
	return c.provider.Remove(ctx, c.key(key))
}

// GetOrSet returns the cached value for key, or calls load and caches its
// result for ttl. A ttl <= 0 disables caching for the call. Provider failures
// degrade to calling load; load errors are returned and never cached.
// Concurrent misses for the same key share a single load.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	if c == nil || ttl <= 0 {
		return load(ctx)
	}

	full := c.key(key)
	if raw, ok, err := c.provider.Get(ctx, full); err != nil {
		c.logger.Warn().Err(err).Str("key", full).Msg("cache get failed")
	} else if ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		c.logger.Warn().Str("key", full).Msg("discarding undecodable cache entry")
	}

	v, err, _ := c.group.Do(full, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		if raw, merr := json.Marshal(v); merr == nil {
			if serr := c.provider.Set(ctx, full, raw, ttl); serr != nil {
				c.logger.Warn().Err(serr).Str("key", full).Msg("cache set failed")
			}
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	res, _ := v.(T)
	return res, nil
}
