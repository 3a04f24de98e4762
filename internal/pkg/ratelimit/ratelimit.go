package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window counter kept in Redis so every API instance
// shares the same budget.
type Limiter struct {
	redis  *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// New creates a limiter allowing limit hits per window for each id
func New(redisClient *redis.Client, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{
		redis:  redisClient,
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

// Allow records one hit for id. Without Redis every hit is allowed; on a
// Redis error the caller gets the error together with allowed=true and
// decides how strict to be.
func (l *Limiter) Allow(ctx context.Context, id string) (bool, error) {
	if l == nil || l.redis == nil {
		return true, nil
	}

	key := fmt.Sprintf("ratelimit:%s:%s", l.prefix, id)

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		l.redis.Expire(ctx, key, l.window)
	}

	return count <= int64(l.limit), nil
}

// Reset clears the counter for id, e.g. after a successful login
func (l *Limiter) Reset(ctx context.Context, id string) {
	if l == nil || l.redis == nil {
		return
	}
	l.redis.Del(ctx, fmt.Sprintf("ratelimit:%s:%s", l.prefix, id))
}
