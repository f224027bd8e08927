package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bsm/redislock"
	"github.com/meritledger/backend/internal/application/reconciliation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeObtainer struct {
	err    error
	gotKey string
	gotTTL time.Duration
}

func (f *fakeObtainer) Obtain(_ context.Context, key string, ttl time.Duration, _ *redislock.Options) (*redislock.Lock, error) {
	f.gotKey = key
	f.gotTTL = ttl
	return nil, f.err
}

func TestRedisBatchLock_HeldElsewhere(t *testing.T) {
	f := &fakeObtainer{err: redislock.ErrNotObtained}
	lock := newRedisBatchLock(f, "merit:batch:lock", 10*time.Minute, zap.NewNop())

	_, err := lock.Acquire(context.Background())
	assert.ErrorIs(t, err, reconciliation.ErrBatchInProgress)
	assert.Equal(t, "merit:batch:lock", f.gotKey)
	assert.Equal(t, 10*time.Minute, f.gotTTL)
}

func TestRedisBatchLock_RedisError(t *testing.T) {
	f := &fakeObtainer{err: errors.New("connection refused")}
	lock := newRedisBatchLock(f, "k", time.Minute, zap.NewNop())

	_, err := lock.Acquire(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, reconciliation.ErrBatchInProgress)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestLocalBatchLock(t *testing.T) {
	ctx := context.Background()
	lock := NewLocalBatchLock()

	release, err := lock.Acquire(ctx)
	require.NoError(t, err)

	_, err = lock.Acquire(ctx)
	assert.ErrorIs(t, err, reconciliation.ErrBatchInProgress)

	require.NoError(t, release(ctx))
	require.NoError(t, release(ctx), "release is idempotent")

	release, err = lock.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}
