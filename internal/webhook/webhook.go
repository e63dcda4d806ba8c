// Package webhook notifies downstream systems about gate activity.
// Delivery is best effort: a slow or broken endpoint never delays or
// fails the request that triggered it.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/realtreasury/rt-gate/internal/metrics"
)

// Channel defines the interface for event notification delivery.
type Channel interface {
	Send(ctx context.Context, event string, payload map[string]any) error
	Type() string
}

// HTTPChannel posts signed event notifications to a single URL.
type HTTPChannel struct {
	URL     string
	Secret  string
	Timeout time.Duration
	client  *http.Client
}

// NewHTTPChannel creates an HTTP notification channel. When secret is
// non-empty, requests carry an X-RTG-Signature header with the
// hex-encoded HMAC-SHA256 of the body.
func NewHTTPChannel(url, secret string, timeout time.Duration) *HTTPChannel {
	return &HTTPChannel{
		URL:     url,
		Secret:  secret,
		Timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (h *HTTPChannel) Type() string {
	return "http"
}

func (h *HTTPChannel) Send(ctx context.Context, event string, payload map[string]any) error {
	body := map[string]any{
		"event":      event,
		"occurredAt": time.Now().UTC().Format(time.RFC3339),
		"payload":    payload,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "RT-Gate/1.0")
	if h.Secret != "" {
		req.Header.Set("X-RTG-Signature", Sign(h.Secret, jsonData))
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// LogChannel writes event notifications to the structured log.
type LogChannel struct {
	logger *slog.Logger
}

func NewLogChannel(logger *slog.Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

func (l *LogChannel) Type() string {
	return "log"
}

func (l *LogChannel) Send(ctx context.Context, event string, payload map[string]any) error {
	l.logger.InfoContext(ctx, "webhook event",
		slog.String("event", event),
		slog.Any("payload", payload),
	)
	return nil
}

// Dispatcher fans events out to channels, filtered by an enabled set.
type Dispatcher struct {
	channels []Channel
	enabled  map[string]bool
	timeout  time.Duration
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher that delivers only the events
// listed in enabledEvents. An empty list disables delivery entirely.
func NewDispatcher(channels []Channel, enabledEvents []string, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	enabled := make(map[string]bool, len(enabledEvents))
	for _, e := range enabledEvents {
		enabled[e] = true
	}
	return &Dispatcher{
		channels: channels,
		enabled:  enabled,
		timeout:  timeout,
		logger:   logger,
	}
}

// Dispatch delivers the event asynchronously and returns immediately.
// The background delivery gets its own context so it survives the
// request that triggered it, bounded by the dispatcher timeout.
func (d *Dispatcher) Dispatch(event string, payload map[string]any) {
	if !d.enabled[event] || len(d.channels) == 0 {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		for _, ch := range d.channels {
			if err := ch.Send(ctx, event, payload); err != nil {
				metrics.WebhookDispatches.WithLabelValues(ch.Type(), "error").Inc()
				d.logger.Warn("webhook delivery failed",
					slog.String("channel", ch.Type()),
					slog.String("event", event),
					slog.String("error", err.Error()),
				)
				continue
			}
			metrics.WebhookDispatches.WithLabelValues(ch.Type(), "ok").Inc()
		}
	}()
}
