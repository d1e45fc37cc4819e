package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// counter is the subset of redis.Cmdable the window limiter needs.
type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	PExpire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	PTTL(ctx context.Context, key string) *redis.DurationCmd
}

// RedisRateLimiter caps navigations per window across every process that
// shares the Redis key. When Redis is unreachable it falls back to a local
// limiter so scraping keeps its pace.
type RedisRateLimiter struct {
	client   counter
	key      string
	limit    int64
	window   time.Duration
	fallback RateLimiter
	logger   *slog.Logger
}

func NewRedisRateLimiter(client counter, key string, limit int, window time.Duration, fallback RateLimiter, logger *slog.Logger) *RedisRateLimiter {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisRateLimiter{
		client:   client,
		key:      key,
		limit:    int64(limit),
		window:   window,
		fallback: fallback,
		logger:   logger.With("component", "ratelimit"),
	}
}

func (r *RedisRateLimiter) Wait(ctx context.Context) error {
	for {
		wait, err := r.reserve(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Warn("redis rate limit unavailable, using local limiter", "error", err)
			if r.fallback == nil {
				return nil
			}
			return r.fallback.Wait(ctx)
		}
		if wait <= 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve counts one navigation against the current window and returns how
// long to wait before trying again when the window is full.
func (r *RedisRateLimiter) reserve(ctx context.Context) (time.Duration, error) {
	n, err := r.client.Incr(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", r.key, err)
	}
	if n == 1 {
		if err := r.client.PExpire(ctx, r.key, r.window).Err(); err != nil {
			return 0, fmt.Errorf("failed to set window on %s: %w", r.key, err)
		}
	}
	if n <= r.limit {
		return 0, nil
	}

	ttl, err := r.client.PTTL(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read window on %s: %w", r.key, err)
	}
	if ttl <= 0 {
		// Key lost its expiry; start a fresh window.
		if err := r.client.PExpire(ctx, r.key, r.window).Err(); err != nil {
			return 0, fmt.Errorf("failed to set window on %s: %w", r.key, err)
		}
		ttl = r.window
	}
	return ttl, nil
}
