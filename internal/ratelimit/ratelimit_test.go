package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoOpRateLimiter(t *testing.T) {
	limiter := &NoOpRateLimiter{}
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		d, err := limiter.Allow(ctx, "client", "/rtg/v1/submit")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}

	assert.NoError(t, limiter.Close())
}

func TestMemoryRateLimiter_FixedWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter := newMemoryRateLimiterAt(10, time.Minute, func() time.Time { return now })
	ctx := context.Background()

	// Exactly 10 admissions succeed within the window.
	for i := 0; i < 10; i++ {
		d, err := limiter.Allow(ctx, "client-a", "/rtg/v1/submit")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d should be admitted", i+1)
	}

	// The 11th is rejected with a retry hint of the remaining window.
	now = now.Add(15 * time.Second)
	d, err := limiter.Allow(ctx, "client-a", "/rtg/v1/submit")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 45*time.Second, d.RetryAfter)

	// After the window lapses the bucket is recreated.
	now = now.Add(46 * time.Second)
	d, err = limiter.Allow(ctx, "client-a", "/rtg/v1/submit")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestMemoryRateLimiter_IndependentKeys(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter := newMemoryRateLimiterAt(1, time.Minute, func() time.Time { return now })
	ctx := context.Background()

	d, err := limiter.Allow(ctx, "client-a", "/rtg/v1/submit")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// Same client, different route: separate bucket.
	d, err = limiter.Allow(ctx, "client-a", "/rtg/v1/validate")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// Different client, same route: separate bucket.
	d, err = limiter.Allow(ctx, "client-b", "/rtg/v1/submit")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// Original pair is now at its ceiling.
	d, err = limiter.Allow(ctx, "client-a", "/rtg/v1/submit")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestMemoryRateLimiter_Concurrent(t *testing.T) {
	limiter := NewMemoryRateLimiter(10, time.Minute)
	defer limiter.Close()
	ctx := context.Background()

	results := make(chan bool, 50)
	for i := 0; i < 50; i++ {
		go func() {
			d, err := limiter.Allow(ctx, "client", "/rtg/v1/submit")
			if err != nil {
				results <- false
				return
			}
			results <- d.Allowed
		}()
	}

	admitted := 0
	for i := 0; i < 50; i++ {
		if <-results {
			admitted++
		}
	}

	assert.Equal(t, 10, admitted, "exactly the ceiling should be admitted under contention")
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func TestRedisRateLimiter_FixedWindow(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()

	limiter := NewRedisRateLimiterWithClient(client, 10, time.Minute)
	defer limiter.Close()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		d, err := limiter.Allow(ctx, "client-a", "/rtg/v1/event")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d should be admitted", i+1)
	}

	d, err := limiter.Allow(ctx, "client-a", "/rtg/v1/event")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, d.RetryAfter, time.Minute)

	// Window expiry resets the counter.
	mr.FastForward(time.Minute + time.Second)

	d, err = limiter.Allow(ctx, "client-a", "/rtg/v1/event")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisRateLimiter_IndependentKeys(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()

	limiter := NewRedisRateLimiterWithClient(client, 1, time.Minute)
	defer limiter.Close()
	ctx := context.Background()

	d, err := limiter.Allow(ctx, "client-a", "/rtg/v1/submit")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = limiter.Allow(ctx, "client-b", "/rtg/v1/submit")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = limiter.Allow(ctx, "client-a", "/rtg/v1/submit")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestNewRedisRateLimiter_InvalidURL(t *testing.T) {
	_, err := NewRedisRateLimiter("not-a-valid-url", 10, time.Minute)
	assert.Error(t, err)
}
