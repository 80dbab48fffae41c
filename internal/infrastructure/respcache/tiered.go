package respcache

import (
	"context"
	"log/slog"
	"time"

	"IPOWatcher/internal/ports"
)

var _ ports.ResponseCache = (*Tiered)(nil)

// Tiered serves responses from Redis when it is configured and reachable
// and from the in-process cache otherwise. The local tier also takes the
// writes that Redis cannot, so a Redis outage degrades to per-instance
// caching instead of none.
type Tiered struct {
	local  *Local
	redis  *Redis
	logger *slog.Logger
}

// NewTiered combines the two tiers. redis may be nil when no address is
// configured; the cache is then purely local.
func NewTiered(local *Local, redis *Redis, logger *slog.Logger) *Tiered {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tiered{local: local, redis: redis, logger: logger}
}

// Get returns a cached response. A healthy Redis answers authoritatively,
// including misses; only a Redis failure consults the local tier.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool) {
	if t.redis != nil {
		value, found, err := t.redis.Get(ctx, key)
		if err == nil {
			return value, found
		}
	}
	return t.local.Get(key)
}

// Set stores a response in the active tier.
func (t *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if t.redis != nil {
		if err := t.redis.Set(ctx, key, value, ttl); err == nil {
			return
		}
	}
	t.local.Set(key, value, ttl)
}

// Clear empties both tiers. A Redis failure is logged, not returned: the
// local tier is already clean and entries in an unreachable Redis expire
// on their own ttl.
func (t *Tiered) Clear(ctx context.Context) error {
	t.local.Clear()
	if t.redis != nil {
		if err := t.redis.Clear(ctx); err != nil {
			t.logger.Warn("redis cache clear failed", "error", err)
		}
	}
	return nil
}
