package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter enforces a fixed-window request cap per key. Counters live in
// Redis so limits hold across instances; when Redis is unreachable the limiter
// fails open.
type RateLimiter struct {
	window time.Duration
}

func NewRateLimiter(window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{window: window}
}

// Allow increments the counter for key and reports whether it is still within
// limit. The first increment in a window sets the window's expiry.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int) (bool, error) {
	if limit <= 0 {
		return true, nil
	}

	c := GetClient()
	if c == nil {
		return true, nil
	}

	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().UnixNano()/int64(r.window))

	pipe := c.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		if err == redis.Nil {
			return true, nil
		}
		// Fail open: a rate limiter outage must not take down credential auth.
		return true, err
	}

	return incr.Val() <= int64(limit), nil
}
