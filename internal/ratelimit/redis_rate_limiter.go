package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mortiscope/mortiscope-web-sub011/internal/config"
)

// Result reports the outcome of a rate-limit check.
type Result struct {
	Success   bool
	Remaining int
}

// Limiter gates an operation per principal key. It is consulted
// synchronously before any state mutation.
type Limiter interface {
	Limit(ctx context.Context, key string) (Result, error)
}

type redisLimiter struct {
	client *redis.Client
	cfg    config.RateLimitConfig
	logger *zap.Logger
	limit  int
	window time.Duration
}

// NewRedisLimiter creates a fixed-window Redis limiter allowing limit
// requests per window for each key.
func NewRedisLimiter(client *redis.Client, cfg config.RateLimitConfig, limit int, window time.Duration, logger *zap.Logger) Limiter {
	return &redisLimiter{client: client, cfg: cfg, logger: logger, limit: limit, window: window}
}

// Limit increments the window counter for key and reports whether the
// request is admitted. On Redis failure the limiter fails open: blocking
// every authentication action on a cache outage is worse than briefly
// losing brute-force protection.
func (r *redisLimiter) Limit(ctx context.Context, key string) (Result, error) {
	if !r.cfg.Enabled || r.limit <= 0 {
		return Result{Success: true, Remaining: r.limit}, nil
	}

	var count *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		count = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, r.window)
		return nil
	})
	if err != nil {
		r.logger.Error("Redis pipeline for rate limiting failed", zap.String("key", key), zap.Error(err))
		return Result{Success: true, Remaining: 0}, nil
	}

	current := count.Val()
	if current > int64(r.limit) {
		r.logger.Warn("Rate limit exceeded",
			zap.String("key", key),
			zap.Int64("count", current),
			zap.Int("limit", r.limit),
		)
		return Result{Success: false, Remaining: 0}, nil
	}

	remaining := r.limit - int(current)
	if remaining < 0 {
		remaining = 0
	}
	return Result{Success: true, Remaining: remaining}, nil
}

var _ Limiter = (*redisLimiter)(nil)
