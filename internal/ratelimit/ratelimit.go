// Package ratelimit throttles scanner devices with a fixed-window counter
// kept in Redis, so the budget is shared by every server instance.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Limiter struct {
	redis  redis.Cmdable
	prefix string
	limit  int64
	window time.Duration
}

func NewLimiter(client redis.Cmdable, prefix string, limit int64, window time.Duration) *Limiter {
	return &Limiter{redis: client, prefix: prefix, limit: limit, window: window}
}

// Allow counts one request against key. When Redis cannot be reached the
// request is allowed and the error returned for logging.
//
// The TTL is set with EXPIRE NX on every hit, so a window whose first
// EXPIRE failed still expires once a later request gets through.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	k := fmt.Sprintf("ratelimit:%s:%s", l.prefix, key)

	count, err := l.redis.Incr(ctx, k).Result()
	if err != nil {
		return true, fmt.Errorf("incr %s: %w", k, err)
	}
	if err := l.redis.ExpireNX(ctx, k, l.window).Err(); err != nil {
		return true, fmt.Errorf("expire %s: %w", k, err)
	}
	return count <= l.limit, nil
}

func (l *Limiter) Window() time.Duration {
	return l.window
}
