package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/LutfiBK25/qulron/internal/storage"
)

// Redis-backed fixed window counter for login attempts, keyed by phone
// number. Unlike the admission buckets this one is shared across gateway
// instances, because every attempt it admits can cost an outbound SMS.
type AttemptLimiter struct {
	redis  *storage.RedisClient
	limit  int
	window time.Duration
}

func NewAttemptLimiter(redis *storage.RedisClient, limit int, window time.Duration) *AttemptLimiter {
	return &AttemptLimiter{
		redis:  redis,
		limit:  limit,
		window: window,
	}
}

// Records one attempt and reports whether the caller is still under the
// limit. The first attempt in a window starts the window's expiry.
func (a *AttemptLimiter) Allow(ctx context.Context, phone string) (bool, error) {
	key := a.key(phone)

	count, err := a.redis.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		if err := a.redis.Expire(ctx, key, a.window); err != nil {
			return false, err
		}
	}

	return count <= int64(a.limit), nil
}

// Clears the attempt counter, used after a successful login.
func (a *AttemptLimiter) Reset(ctx context.Context, phone string) error {
	return a.redis.Del(ctx, a.key(phone))
}

func (a *AttemptLimiter) key(phone string) string {
	return fmt.Sprintf("auth:attempts:%s", phone)
}
