package keylock

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"backoffice/internal/core/apperror"
	"backoffice/pkg/logger"
)

const (
	DefaultTTL        = 30 * time.Second
	DefaultRetryDelay = 50 * time.Millisecond
)

// Redis implements Locker on top of redislock.
// Keys are namespaced with a prefix so several environments can share one Redis.
type Redis struct {
	client     *redislock.Client
	prefix     string
	ttl        time.Duration
	retryDelay time.Duration
}

// RedisOption configures a Redis locker.
type RedisOption func(*Redis)

// WithTTL sets the lock expiry. A crashed holder releases its keys after ttl.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = ttl }
}

// WithPrefix sets the key namespace.
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = prefix }
}

// WithRetryDelay sets the polling interval while waiting for a held key.
func WithRetryDelay(d time.Duration) RedisOption {
	return func(r *Redis) { r.retryDelay = d }
}

// NewRedis creates a Redis-backed locker.
func NewRedis(rdb redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{
		client:     redislock.New(rdb),
		prefix:     "backoffice:lock:",
		ttl:        DefaultTTL,
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lock implements Locker. Retries until ctx is done; if ctx has no deadline
// the wait is bounded by the lock TTL.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	waitCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, r.ttl)
		defer cancel()
	}

	lock, err := r.client.Obtain(waitCtx, r.prefix+key, r.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(r.retryDelay),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, apperror.NewConcurrencyConflict(key).WithCause(err)
		}
		return nil, apperror.NewInternal(err)
	}

	return func() {
		// Release with a fresh context: the caller's ctx may already be cancelled.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logger.Warn(ctx, "failed to release lock", "key", key, "error", err)
		}
	}, nil
}
