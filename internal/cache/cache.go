// Package cache provides the TTL key-value cache that fronts every
// provider-fetching operation. Entries expire lazily: an expired read is
// treated as a miss and purged on the spot. There is no background sweep;
// entry volume is low and values are idempotently recomputable.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultTTL applies when Set is called with a non-positive TTL.
const DefaultTTL = time.Hour

// Store is the underlying key-value backend. Implementations are dumb byte
// stores; expiry bookkeeping lives in Cache.
type Store interface {
	// Get returns the stored bytes and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set overwrites any prior value. The TTL is advisory: backends with
	// native expiry (Redis) may use it, others ignore it.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// envelope wraps a cached value with its expiry so lazy expiration works
// identically across backends.
type envelope struct {
	Value     json.RawMessage `json:"value"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Cache is a TTL cache over a Store. Concurrent Sets on the same key are
// last-write-wins; no locking is needed because values are recomputable from
// the same inputs.
type Cache struct {
	store  Store
	logger *slog.Logger
	clock  clockwork.Clock
}

// New creates a Cache over the given backend.
func New(store Store, logger *slog.Logger) *Cache {
	return &Cache{store: store, logger: logger, clock: clockwork.NewRealClock()}
}

// WithClock swaps the time source, for tests.
func (c *Cache) WithClock(clk clockwork.Clock) *Cache {
	c.clock = clk
	return c
}

// Get unmarshals the cached value for key into dest and returns true on a
// hit. Expired or malformed entries are purged and reported as misses.
// Backend failures are logged and reported as misses, never raised.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.logger.Warn("cache entry malformed, purging", "key", key, "error", err)
		c.purge(ctx, key)
		return false
	}

	if c.clock.Now().After(env.ExpiresAt) {
		c.purge(ctx, key)
		return false
	}

	if err := json.Unmarshal(env.Value, dest); err != nil {
		c.logger.Warn("cache value unmarshal failed, purging", "key", key, "error", err)
		c.purge(ctx, key)
		return false
	}
	return true
}

// Set stores value under key with the given TTL, overwriting any prior entry.
// Returns false on failure; the caller treats that as "not cached" and the
// next request simply recomputes.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache value marshal failed", "key", key, "error", err)
		return false
	}

	env, err := json.Marshal(envelope{Value: raw, ExpiresAt: c.clock.Now().Add(ttl)})
	if err != nil {
		c.logger.Warn("cache envelope marshal failed", "key", key, "error", err)
		return false
	}

	if err := c.store.Set(ctx, key, env, ttl); err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
		return false
	}
	return true
}

func (c *Cache) purge(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Warn("cache purge failed", "key", key, "error", err)
	}
}
