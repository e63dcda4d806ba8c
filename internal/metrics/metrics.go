package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Submission metrics
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rtgate_submissions_total",
			Help: "Total number of form submissions processed",
		},
		[]string{"status"},
	)

	// Token metrics
	TokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rtgate_tokens_issued_total",
			Help: "Total number of access tokens issued",
		},
	)

	TokenValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rtgate_token_validations_total",
			Help: "Total number of token validation checks",
		},
		[]string{"result"},
	)

	// Event metrics
	EventsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rtgate_events_recorded_total",
			Help: "Total number of engagement events recorded",
		},
		[]string{"event_type"},
	)

	// Rate limiting metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rtgate_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"route"},
	)

	// Webhook metrics
	WebhookDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rtgate_webhook_dispatches_total",
			Help: "Total number of webhook dispatch attempts",
		},
		[]string{"channel", "status"},
	)
)
