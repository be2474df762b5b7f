package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultLockTTL = 55 * time.Minute
	minLockTTL     = time.Minute
	lockTTLMargin  = 5 * time.Minute
)

// Lock keeps a scheduler cycle to one worker per environment.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// holderReporter is implemented by locks that can name their current owner.
type holderReporter interface {
	Holder(ctx context.Context) (string, error)
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock is a SETNX lock whose value is "<instance>/<token>". The token is
// fresh per acquisition so a worker never releases a lock it lost to expiry.
type RedisLock struct {
	client   lockStore
	key      string
	ttl      time.Duration
	instance string
	value    string
}

// LockTTL sizes the lock for a scheduler interval: it expires a few minutes
// before the next tick so a crashed holder cannot block the following cycle.
func LockTTL(interval time.Duration) time.Duration {
	if interval <= 0 {
		return defaultLockTTL
	}
	ttl := interval - lockTTLMargin
	if ttl < minLockTTL {
		ttl = minLockTTL
	}
	return ttl
}

// NewRedisLock builds the cycle lock for key. A non-positive ttl uses the
// default for the hourly schedule.
func NewRedisLock(client lockStore, key string, ttl time.Duration, instanceID string) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if instanceID = strings.TrimSpace(instanceID); instanceID == "" {
		instanceID = "unknown"
	}
	return &RedisLock{client: client, key: key, ttl: ttl, instance: instanceID}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	value := l.instance + "/" + uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, value, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if ok {
		l.value = value
	}
	return ok, nil
}

// Holder returns the instance id currently holding the lock, or "" when free.
func (l *RedisLock) Holder(ctx context.Context) (string, error) {
	value, err := l.client.Get(ctx, l.key)
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", l.key, err)
	}
	holder, _, _ := strings.Cut(value, "/")
	return holder, nil
}

// Release deletes the lock if this worker still owns it. A lock that expired
// or was taken over is left alone.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.value == "" {
		return nil
	}
	held := l.value
	l.value = ""

	current, err := l.client.Get(ctx, l.key)
	switch {
	case errors.Is(err, redis.Nil):
		return nil
	case err != nil:
		return fmt.Errorf("read %s: %w", l.key, err)
	case current != held:
		return nil
	}
	if err := l.client.Del(ctx, l.key); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
