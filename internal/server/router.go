package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/realtreasury/rt-gate/internal/handlers"
	"github.com/realtreasury/rt-gate/internal/middleware"
	"github.com/realtreasury/rt-gate/internal/ratelimit"
)

// APIPrefix is the versioned base path for gate endpoints. Rate
// limiting applies only under this prefix, never to health or metrics.
const APIPrefix = "/rtg/v1/"

// NewRouter constructs a ServeMux with gate API routes registered and
// wraps it in the middleware chain: request ID, CORS, rate limiting.
func NewRouter(h *handlers.GateHandler, guard *middleware.OriginGuard, limiter ratelimit.RateLimiter) http.Handler {
	mux := http.NewServeMux()

	// Gate endpoints
	mux.HandleFunc(APIPrefix+"submit", h.Submit)
	mux.HandleFunc(APIPrefix+"validate", h.Validate)
	mux.HandleFunc(APIPrefix+"event", h.Event)

	// Health endpoints
	mux.HandleFunc("/healthz", h.Healthz)
	mux.HandleFunc("/readyz", h.Readyz)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = middleware.RateLimit(limiter, APIPrefix)(handler)
	handler = guard.Handler(handler)
	return middleware.RequestID(handler)
}
