package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// RateLimiter counts requests per key in aligned time buckets, one Redis key
// per bucket.
type RateLimiter struct {
	client RedisClient
	now    func() time.Time
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// Allow records one hit for key and reports whether it is within limit for
// the current window.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if window <= 0 {
		window = time.Minute
	}
	bucketKey := bucketFor(key, r.now(), window)
	count, err := r.client.Incr(ctx, bucketKey)
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, bucketKey, 2*window); err != nil {
			return false, err
		}
	}
	return count <= int64(limit), nil
}

func bucketFor(key string, at time.Time, window time.Duration) string {
	return key + ":" + strconv.FormatInt(at.UnixNano()/int64(window), 10)
}

// AccountRouteKey scopes a limit to one account and one route group.
func AccountRouteKey(accountID, group string) string {
	return fmt.Sprintf("rate_limit:%s:%s", accountID, group)
}
