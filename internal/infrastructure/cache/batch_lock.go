package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/meritledger/backend/internal/application/reconciliation"
	"go.uber.org/zap"
)

// lockObtainer is the subset of *redislock.Client used by RedisBatchLock
type lockObtainer interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

// RedisBatchLock serializes batch runs across processes with a Redis lock.
// The lock is not retried: a second run fails fast with ErrBatchInProgress.
type RedisBatchLock struct {
	locker lockObtainer
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisBatchLock creates a batch lock on top of a redislock client
func NewRedisBatchLock(locker *redislock.Client, key string, ttl time.Duration, logger *zap.Logger) *RedisBatchLock {
	return newRedisBatchLock(locker, key, ttl, logger)
}

func newRedisBatchLock(locker lockObtainer, key string, ttl time.Duration, logger *zap.Logger) *RedisBatchLock {
	return &RedisBatchLock{locker: locker, key: key, ttl: ttl, logger: logger}
}

// Acquire implements reconciliation.BatchLocker
func (l *RedisBatchLock) Acquire(ctx context.Context) (func(context.Context) error, error) {
	lock, err := l.locker.Obtain(ctx, l.key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		l.logger.Warn("Batch lock held by another process", zap.String("key", l.key))
		return nil, reconciliation.ErrBatchInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("obtain batch lock: %w", err)
	}
	l.logger.Debug("Batch lock obtained", zap.String("key", l.key), zap.Duration("ttl", l.ttl))

	return func(ctx context.Context) error {
		err := lock.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			// expired during a long run
			l.logger.Warn("Batch lock expired before release", zap.String("key", l.key))
			return nil
		}
		return err
	}, nil
}

// LocalBatchLock serializes batch runs inside one process
type LocalBatchLock struct {
	mu sync.Mutex
}

// NewLocalBatchLock creates a process-local batch lock
func NewLocalBatchLock() *LocalBatchLock {
	return &LocalBatchLock{}
}

// Acquire implements reconciliation.BatchLocker
func (l *LocalBatchLock) Acquire(_ context.Context) (func(context.Context) error, error) {
	if !l.mu.TryLock() {
		return nil, reconciliation.ErrBatchInProgress
	}
	var once sync.Once
	return func(context.Context) error {
		once.Do(l.mu.Unlock)
		return nil
	}, nil
}

var (
	_ reconciliation.BatchLocker = (*RedisBatchLock)(nil)
	_ reconciliation.BatchLocker = (*LocalBatchLock)(nil)
)
