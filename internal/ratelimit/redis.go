package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/realtreasury/rt-gate/internal/metrics"
)

type redisRateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// Counting and window setup must be atomic so two concurrent requests
// cannot both claim the last slot. The script returns the post-increment
// count and the remaining window in milliseconds.
var fixedWindowScript = redis.NewScript(`
	local current = redis.call('INCR', KEYS[1])
	if current == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('PTTL', KEYS[1])
	return {current, ttl}
`)

// NewRedisRateLimiter builds a fixed-window limiter on a shared redis
// counter store. The window TTL caps counter growth: a bucket never
// outlives its window.
func NewRedisRateLimiter(redisURL string, limit int, window time.Duration) (RateLimiter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &redisRateLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
	}, nil
}

// NewRedisRateLimiterWithClient wraps an existing client; used by tests.
func NewRedisRateLimiterWithClient(client *redis.Client, limit int, window time.Duration) RateLimiter {
	return &redisRateLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
	}
}

func (r *redisRateLimiter) Allow(ctx context.Context, clientKey, routeKey string) (Decision, error) {
	key := "rtg:rl:" + bucketKey(clientKey, routeKey)

	res, err := fixedWindowScript.Run(ctx, r.client, []string{key}, r.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit check failed: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("rate limit check returned %d values, want 2", len(res))
	}

	count, ttlMillis := res[0], res[1]
	if count > r.limit {
		retryAfter := r.window
		if ttlMillis > 0 {
			retryAfter = time.Duration(ttlMillis) * time.Millisecond
		}
		metrics.RateLimitHits.WithLabelValues(routeKey).Inc()
		return Decision{Allowed: false, RetryAfter: retryAfter}, nil
	}

	return Decision{Allowed: true}, nil
}

func (r *redisRateLimiter) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
