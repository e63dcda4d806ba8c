// Package ratelimit implements the fixed-window request limiter that
// fronts the gate endpoints. Counters are keyed by (client key, route)
// where the client key is already a hash of the source IP; raw IPs never
// reach this package.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one admission check. RetryAfter carries the
// remaining window on rejection so handlers can hint when to retry.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RateLimiter admits or rejects a request for a (client, route) pair.
// Implementations must be safe for concurrent use.
type RateLimiter interface {
	Allow(ctx context.Context, clientKey, routeKey string) (Decision, error)
	Close() error
}

// NoOpRateLimiter always allows requests (for testing or disabled limiting).
type NoOpRateLimiter struct{}

func (n *NoOpRateLimiter) Allow(ctx context.Context, clientKey, routeKey string) (Decision, error) {
	return Decision{Allowed: true}, nil
}

func (n *NoOpRateLimiter) Close() error {
	return nil
}

func bucketKey(clientKey, routeKey string) string {
	return clientKey + "|" + routeKey
}
