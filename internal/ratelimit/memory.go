package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/realtreasury/rt-gate/internal/metrics"
)

type bucket struct {
	count     int
	windowEnd time.Time
}

// memoryRateLimiter is a mutex-guarded fixed-window limiter for
// single-instance deployments without redis. Buckets reset lazily when
// their window lapses; a janitor sweeps abandoned keys.
type memoryRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	limit  int
	window time.Duration
	now    func() time.Time
	stop   chan struct{}
}

// NewMemoryRateLimiter builds an in-process fixed-window limiter.
func NewMemoryRateLimiter(limit int, window time.Duration) RateLimiter {
	l := &memoryRateLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.janitor()
	return l
}

// newMemoryRateLimiterAt is the test constructor with an injectable clock.
// It starts no janitor; tests control time explicitly.
func newMemoryRateLimiterAt(limit int, window time.Duration, now func() time.Time) *memoryRateLimiter {
	return &memoryRateLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
		now:     now,
		stop:    make(chan struct{}),
	}
}

func (l *memoryRateLimiter) Allow(ctx context.Context, clientKey, routeKey string) (Decision, error) {
	key := bucketKey(clientKey, routeKey)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || !now.Before(b.windowEnd) {
		l.buckets[key] = &bucket{count: 1, windowEnd: now.Add(l.window)}
		return Decision{Allowed: true}, nil
	}

	if b.count >= l.limit {
		metrics.RateLimitHits.WithLabelValues(routeKey).Inc()
		return Decision{Allowed: false, RetryAfter: b.windowEnd.Sub(now)}, nil
	}

	b.count++
	return Decision{Allowed: true}, nil
}

func (l *memoryRateLimiter) Close() error {
	select {
	case <-l.stop:
	default:
		close(l.stop)
	}
	return nil
}

// janitor drops buckets whose window has lapsed so the map does not grow
// with one entry per client forever.
func (l *memoryRateLimiter) janitor() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			now := l.now()
			l.mu.Lock()
			for key, b := range l.buckets {
				if !now.Before(b.windowEnd) {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		}
	}
}
