package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRequestLimiter_WindowKey(t *testing.T) {
	now := time.Unix(120, 0)
	l := NewRedisRequestLimiter(nil, 10, time.Minute)
	l.now = func() time.Time { return now }

	assert.Equal(t, "merit:ratelimit:10.0.0.1:2", l.windowKey("10.0.0.1"))

	now = now.Add(59 * time.Second)
	assert.Equal(t, "merit:ratelimit:10.0.0.1:2", l.windowKey("10.0.0.1"), "same window")

	now = now.Add(time.Second)
	assert.Equal(t, "merit:ratelimit:10.0.0.1:3", l.windowKey("10.0.0.1"))
	assert.Equal(t, 10, l.Limit())
}

func TestRedisRequestLimiter_FailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	l := NewRedisRequestLimiter(client, 5, time.Minute)
	allowed, remaining, err := l.Allow(context.Background(), "client")

	require.Error(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 5, remaining)
}
