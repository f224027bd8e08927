package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRateKey is the Redis key holding the cached inflation rate
const DefaultRateKey = "merit:inflation:rate"

// RateCache stores the last fetched inflation rate
type RateCache interface {
	// Get returns the cached rate and whether one was present
	Get(ctx context.Context) (float64, bool, error)
	Set(ctx context.Context, rate float64, ttl time.Duration) error
}

// RedisRateCache keeps the rate in Redis so every instance shares one
// market lookup per TTL
type RedisRateCache struct {
	client *redis.Client
	key    string
}

// NewRedisRateCache creates a Redis-backed rate cache
func NewRedisRateCache(client *redis.Client, key string) *RedisRateCache {
	if key == "" {
		key = DefaultRateKey
	}
	return &RedisRateCache{client: client, key: key}
}

// Get implements RateCache
func (c *RedisRateCache) Get(ctx context.Context) (float64, bool, error) {
	val, err := c.client.Get(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read cached rate: %w", err)
	}
	rate, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid cached rate %q: %w", val, err)
	}
	return rate, true, nil
}

// Set implements RateCache
func (c *RedisRateCache) Set(ctx context.Context, rate float64, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key, strconv.FormatFloat(rate, 'f', -1, 64), ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache rate: %w", err)
	}
	return nil
}

// InMemoryRateCache is the single-process RateCache used when Redis is disabled
type InMemoryRateCache struct {
	mu        sync.RWMutex
	rate      float64
	expiresAt time.Time
	now       func() time.Time
}

// NewInMemoryRateCache creates an empty in-memory rate cache
func NewInMemoryRateCache() *InMemoryRateCache {
	return &InMemoryRateCache{now: time.Now}
}

// Get implements RateCache
func (c *InMemoryRateCache) Get(_ context.Context) (float64, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.expiresAt.IsZero() || !c.now().Before(c.expiresAt) {
		return 0, false, nil
	}
	return c.rate, true, nil
}

// Set implements RateCache. A non-positive ttl clears the cache.
func (c *InMemoryRateCache) Set(_ context.Context, rate float64, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ttl <= 0 {
		c.expiresAt = time.Time{}
		return nil
	}
	c.rate = rate
	c.expiresAt = c.now().Add(ttl)
	return nil
}

var (
	_ RateCache = (*RedisRateCache)(nil)
	_ RateCache = (*InMemoryRateCache)(nil)
)
