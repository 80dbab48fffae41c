package respcache

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores rendered responses in a shared Redis so multiple instances
// serve from one tier. Every operation runs under its own short timeout;
// failures flip a degraded flag that is logged only on transitions, not on
// every request.
type Redis struct {
	client   *redis.Client
	prefix   string
	timeout  time.Duration
	logger   *slog.Logger
	degraded atomic.Bool
}

// NewRedis connects lazily to the given address. The connection is not
// probed here; the first operation reports availability.
func NewRedis(addr, password string, db int, prefix string, timeout time.Duration, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Redis{
		client:  redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}),
		prefix:  prefix,
		timeout: timeout,
		logger:  logger,
	}
}

// Get fetches a response. A missing key is (nil, false, nil); an error
// means the tier itself is unreachable.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	value, err := r.client.Get(opCtx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.markHealthy()
		return nil, false, nil
	}
	if err != nil {
		r.markDegraded(err)
		return nil, false, err
	}
	r.markHealthy()
	return value, true, nil
}

// Set stores a response with the given ttl.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	opCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.client.Set(opCtx, key, value, ttl).Err(); err != nil {
		r.markDegraded(err)
		return err
	}
	r.markHealthy()
	return nil
}

// Clear deletes every key under the cache prefix, scanning in batches so
// large namespaces do not block the server.
func (r *Redis) Clear(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var cursor uint64
	for {
		keys, next, err := r.client.Scan(opCtx, cursor, r.prefix+":*", 100).Result()
		if err != nil {
			r.markDegraded(err)
			return err
		}
		if len(keys) > 0 {
			if err := r.client.Del(opCtx, keys...).Err(); err != nil {
				r.markDegraded(err)
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	r.markHealthy()
	return nil
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) markDegraded(err error) {
	if r.degraded.CompareAndSwap(false, true) {
		r.logger.Warn("redis unavailable, serving from local cache", "error", err)
	}
}

func (r *Redis) markHealthy() {
	if r.degraded.CompareAndSwap(true, false) {
		r.logger.Info("redis connection restored")
	}
}
