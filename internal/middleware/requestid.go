package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const requestIDKey = contextKey("rtg-request-id")

// RequestID tags every gate request with an identifier so a submission
// and the log lines it produced can be correlated. An inbound
// X-Request-ID from a trusted proxy is reused; otherwise a fresh UUID
// is minted. The ID is echoed in the response header and stored in the
// request context for the logging layer.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", id)

		next.ServeHTTP(w, r.WithContext(
			context.WithValue(r.Context(), requestIDKey, id),
		))
	})
}

// GetRequestID returns the request ID stored by RequestID, or "" when
// the context never passed through the middleware.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
