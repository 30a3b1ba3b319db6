package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrLockTimeout is returned when the lock could not be acquired in time
var ErrLockTimeout = errors.New("timed out waiting for game lock")

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Locker is a distributed mutex built on SET NX PX
type Locker struct {
	client    *redis.Client
	logger    *zap.SugaredLogger
	ttl       time.Duration
	wait      time.Duration
	retryStep time.Duration
}

// NewLocker creates a new Locker. ttl bounds how long a crashed holder blocks others,
// wait bounds how long Acquire polls before giving up.
func NewLocker(client *redis.Client, ttl, wait time.Duration, logger *zap.SugaredLogger) *Locker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &Locker{
		client:    client,
		logger:    logger,
		ttl:       ttl,
		wait:      wait,
		retryStep: 25 * time.Millisecond,
	}
}

// Acquire blocks until the lock on key is held, ctx is done or the wait elapses
func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := "lock:" + key
	token := uuid.New().String()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", lockKey, err)
		}
		if ok {
			return func() { l.release(lockKey, token) }, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, lockKey)
		}

		select {
		case <-time.After(l.retryStep):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (l *Locker) release(lockKey, token string) {
	// The caller's context may already be cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{lockKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		l.logger.Errorf("Failed to release lock %s: %v", lockKey, err)
	}
}
