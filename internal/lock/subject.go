package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

var ErrLockTimeout = errors.New("lock_timeout")

const keyEvaluateLock = "gamification:evaluate:lock:%s:%d"

// SubjectLocker serializes work on one subject, in process and, when a redis
// locker is configured, across processes.
type SubjectLocker struct {
	local  *KeyedMutex
	remote *RedisLocker
	ttl    time.Duration
	wait   time.Duration
	log    *zap.Logger
}

type SubjectLockerConfig struct {
	TTL  time.Duration
	Wait time.Duration
}

func NewSubjectLocker(remote *RedisLocker, cfg SubjectLockerConfig, log *zap.Logger) *SubjectLocker {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.Wait <= 0 {
		cfg.Wait = 3 * time.Second
	}
	return &SubjectLocker{
		local:  NewKeyedMutex(),
		remote: remote,
		ttl:    cfg.TTL,
		wait:   cfg.Wait,
		log:    log.Named("lock.subject"),
	}
}

// Key is the lock key shared by every process evaluating role/id.
func Key(role string, id int64) string {
	return fmt.Sprintf(keyEvaluateLock, role, id)
}

// Acquire takes the lock for key. The returned func releases it and is safe to call once.
func (l *SubjectLocker) Acquire(ctx context.Context, key string) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	if err := l.local.Lock(waitCtx, key); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
		return nil, err
	}

	if l.remote == nil {
		return func() { l.local.Unlock(key) }, nil
	}

	token, err := l.acquireRemote(waitCtx, key)
	if err != nil {
		l.local.Unlock(key)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := l.remote.Release(releaseCtx, key, token); err != nil {
			l.log.Warn("failed to release redis lock", zap.String("key", key), zap.Error(err))
		}
		l.local.Unlock(key)
	}, nil
}

func (l *SubjectLocker) acquireRemote(ctx context.Context, key string) (string, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 25 * time.Millisecond
	policy.MaxInterval = 500 * time.Millisecond

	token, err := backoff.Retry(ctx, func() (string, error) {
		token, ok, err := l.remote.TryLock(ctx, key, l.ttl)
		if err != nil {
			return "", backoff.Permanent(err)
		}
		if !ok {
			return "", errLockHeld
		}
		return token, nil
	}, backoff.WithBackOff(policy), backoff.WithMaxElapsedTime(l.wait))
	if err != nil {
		if errors.Is(err, errLockHeld) || errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
		return "", err
	}
	return token, nil
}

var errLockHeld = errors.New("lock held")
