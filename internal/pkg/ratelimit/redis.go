package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

// RedisLimiter keeps the window counters in Redis so the limit holds
// across processes. INCR is atomic, which serializes concurrent checks on
// the same identifier; the key's TTL is the window boundary and Redis
// itself evicts expired entries.
type RedisLimiter struct {
	client *redis.Client
}

// NewRedisLimiter creates a limiter backed by the given Redis client.
func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

// Check implements Limiter.
func (l *RedisLimiter) Check(ctx context.Context, identifier string, max int, window time.Duration) (Result, error) {
	key := redisKeyPrefix + identifier

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return Result{}, err
	}
	if count == 1 {
		// First action in the window sets the boundary
		if err := l.client.PExpire(ctx, key, window).Err(); err != nil {
			return Result{}, err
		}
	}

	resetIn, err := l.client.PTTL(ctx, key).Result()
	if err != nil {
		return Result{}, err
	}
	if resetIn < 0 {
		// Key lost its TTL (e.g. PExpire raced a crash); repair it so the
		// counter cannot deny forever.
		resetIn = window
		_ = l.client.PExpire(ctx, key, window).Err()
	}

	if count > int64(max) {
		return Result{Allowed: false, Remaining: 0, ResetIn: resetIn}, nil
	}
	return Result{Allowed: true, Remaining: max - int(count), ResetIn: resetIn}, nil
}
