package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meritledger/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("allows requests within limit", func(t *testing.T) {
		limiter := NewRateLimiter(5, time.Minute)
		for i := 0; i < 5; i++ {
			allowed, remaining, err := limiter.Allow(ctx, "client1")
			require.NoError(t, err)
			assert.True(t, allowed, "request %d should be allowed", i+1)
			assert.Equal(t, 4-i, remaining)
		}
	})

	t.Run("blocks requests exceeding limit", func(t *testing.T) {
		limiter := NewRateLimiter(3, time.Minute)
		for i := 0; i < 3; i++ {
			allowed, _, _ := limiter.Allow(ctx, "client2")
			assert.True(t, allowed)
		}
		allowed, remaining, _ := limiter.Allow(ctx, "client2")
		assert.False(t, allowed)
		assert.Zero(t, remaining)
	})

	t.Run("separate limits per client", func(t *testing.T) {
		limiter := NewRateLimiter(1, time.Minute)
		a, _, _ := limiter.Allow(ctx, "clientA")
		a2, _, _ := limiter.Allow(ctx, "clientA")
		b, _, _ := limiter.Allow(ctx, "clientB")
		assert.True(t, a)
		assert.False(t, a2)
		assert.True(t, b)
	})

	t.Run("resets after window", func(t *testing.T) {
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		limiter := NewRateLimiter(1, time.Minute)
		limiter.now = func() time.Time { return now }

		allowed, _, _ := limiter.Allow(ctx, "client3")
		assert.True(t, allowed)
		allowed, _, _ = limiter.Allow(ctx, "client3")
		assert.False(t, allowed)

		now = now.Add(time.Minute)
		allowed, _, _ = limiter.Allow(ctx, "client3")
		assert.True(t, allowed)
	})

	t.Run("concurrent access", func(t *testing.T) {
		limiter := NewRateLimiter(100, time.Minute)
		var wg sync.WaitGroup
		var mu sync.Mutex
		granted := 0
		for i := 0; i < 150; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, _, _ := limiter.Allow(ctx, "shared"); ok {
					mu.Lock()
					granted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 100, granted)
	})
}

func TestRateLimiter_Sweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(1, time.Minute)
	limiter.now = func() time.Time { return now }

	_, _, _ = limiter.Allow(context.Background(), "old")
	now = now.Add(30 * time.Second)
	_, _, _ = limiter.Allow(context.Background(), "fresh")
	now = now.Add(30 * time.Second)

	limiter.Sweep()
	assert.NotContains(t, limiter.clients, "old")
	assert.Contains(t, limiter.clients, "fresh")
}

func TestRateLimitMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), RateLimit(NewRateLimiter(2, time.Minute), nil))
	router.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeRateLimited, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.RequestID)
}

func TestRateLimitByKey(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitByKey(NewRateLimiter(1, time.Minute), nil, func(c *gin.Context) string {
		return c.GetHeader("X-Client")
	}))
	router.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	send := func(client string) int {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Client", client)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("a"))
	assert.Equal(t, http.StatusTooManyRequests, send("a"))
	assert.Equal(t, http.StatusOK, send("b"))
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, int, error) {
	return false, 0, errors.New("redis down")
}

func (brokenLimiter) Limit() int { return 1 }

func TestRateLimit_FailsOpen(t *testing.T) {
	router := gin.New()
	router.Use(RateLimit(brokenLimiter{}, nil))
	router.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}
