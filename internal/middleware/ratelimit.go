package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/realtreasury/rt-gate/internal/hash"
	"github.com/realtreasury/rt-gate/internal/httputil"
	"github.com/realtreasury/rt-gate/internal/ratelimit"
)

// RateLimit wraps next with per-client admission control for routes under
// pathPrefix. The client key is a hash of the source IP, so raw addresses
// never become counter keys. A counter-store failure fails open: abuse
// control degrades but the gate stays available.
func RateLimit(limiter ratelimit.RateLimiter, pathPrefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, pathPrefix) {
				next.ServeHTTP(w, r)
				return
			}

			clientKey := hash.IP(ClientIP(r))
			decision, err := limiter.Allow(r.Context(), clientKey, r.URL.Path)
			if err != nil {
				slog.WarnContext(r.Context(), "rate limit check failed, admitting request",
					slog.String("route", r.URL.Path),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !decision.Allowed {
				retrySecs := int(decision.RetryAfter.Seconds())
				if retrySecs < 1 {
					retrySecs = 1
				}
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retrySecs))
				httputil.WriteError(w, http.StatusTooManyRequests, "rtg_rate_limited",
					fmt.Sprintf("Too many requests. Please retry in %d seconds.", retrySecs))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the requester address, preferring proxy headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}
