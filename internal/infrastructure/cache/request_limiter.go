package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const requestLimitPrefix = "merit:ratelimit:"

// RedisRequestLimiter is a fixed-window request counter shared by every
// API instance
type RedisRequestLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedisRequestLimiter allows limit requests per key in each window
func NewRedisRequestLimiter(client *redis.Client, limit int, window time.Duration) *RedisRequestLimiter {
	return &RedisRequestLimiter{client: client, limit: limit, window: window, now: time.Now}
}

// Limit returns the per-window allowance
func (l *RedisRequestLimiter) Limit() int {
	return l.limit
}

// Allow counts one request for key and reports whether it fits the window
func (l *RedisRequestLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	redisKey := l.windowKey(key)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, l.limit, fmt.Errorf("failed to count request: %w", err)
	}

	count := int(incr.Val())
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= l.limit, remaining, nil
}

func (l *RedisRequestLimiter) windowKey(key string) string {
	slot := l.now().UnixNano() / int64(l.window)
	return fmt.Sprintf("%s%s:%d", requestLimitPrefix, key, slot)
}
