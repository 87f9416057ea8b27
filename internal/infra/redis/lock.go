package redis

import (
	"context"
	"errors"
	"time"

	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/domain/ports/adapter"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var _ adapter.Locker = (*RedisLocker)(nil)

// ErrLockLost is returned by Unlock when the key expired or was taken over
// before release.
var ErrLockLost = errors.New("lock no longer held")

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker guards short critical sections such as one listing's payment
// initiation. It targets a single Redis primary.
type RedisLocker struct {
	cli      *redis.Client
	attempts int
	wait     time.Duration
}

func NewLocker(c *Client) *RedisLocker {
	return &RedisLocker{cli: c.cli, attempts: 3, wait: 50 * time.Millisecond}
}

// TryLock makes a few quick attempts and gives up with
// domain.ErrPaymentInProgress while someone else holds key.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	var lastErr error
	for attempt := 1; attempt <= l.attempts; attempt++ {
		acquired, err := l.cli.SetNX(ctx, key, token, ttl).Result()
		switch {
		case err != nil:
			lastErr = err
		case acquired:
			return token, nil
		}
		if attempt == l.attempts {
			break
		}
		t := time.NewTimer(time.Duration(attempt) * l.wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return "", ctx.Err()
		case <-t.C:
		}
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", domain.ErrPaymentInProgress
}

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	n, err := releaseScript.Run(ctx, l.cli, []string{key}, token).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockLost
	}
	return nil
}
