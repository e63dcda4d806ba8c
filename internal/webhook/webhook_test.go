package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPChannel_Send(t *testing.T) {
	var (
		mu       sync.Mutex
		gotBody  []byte
		gotSig   string
		gotCType string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotBody = body
		gotSig = r.Header.Get("X-RTG-Signature")
		gotCType = r.Header.Get("Content-Type")
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewHTTPChannel(srv.URL, "topsecret", 3*time.Second)
	err := ch.Send(context.Background(), "form_submit", map[string]any{
		"lead_id": float64(42),
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, "application/json", gotCType)
	assert.Equal(t, Sign("topsecret", gotBody), gotSig, "signature covers the exact body bytes")

	var envelope struct {
		Event      string         `json:"event"`
		OccurredAt string         `json:"occurredAt"`
		Payload    map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(gotBody, &envelope))
	assert.Equal(t, "form_submit", envelope.Event)
	assert.Equal(t, float64(42), envelope.Payload["lead_id"])

	_, err = time.Parse(time.RFC3339, envelope.OccurredAt)
	assert.NoError(t, err)
}

func TestHTTPChannel_Send_NoSecretNoSignature(t *testing.T) {
	var gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-RTG-Signature")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ch := NewHTTPChannel(srv.URL, "", 3*time.Second)
	require.NoError(t, ch.Send(context.Background(), "asset_event", nil))
	assert.Empty(t, gotSig)
}

func TestHTTPChannel_Send_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ch := NewHTTPChannel(srv.URL, "", 3*time.Second)
	err := ch.Send(context.Background(), "form_submit", nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestDispatcher_FiltersDisabledEvents(t *testing.T) {
	received := make(chan string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var envelope struct {
			Event string `json:"event"`
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &envelope)
		received <- envelope.Event
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ch := NewHTTPChannel(srv.URL, "", 3*time.Second)
	d := NewDispatcher([]Channel{ch}, []string{"form_submit"}, 3*time.Second, logger)

	d.Dispatch("asset_event", map[string]any{"k": "v"})
	d.Dispatch("form_submit", map[string]any{"k": "v"})

	select {
	case event := <-received:
		assert.Equal(t, "form_submit", event)
	case <-time.After(2 * time.Second):
		t.Fatal("enabled event was never delivered")
	}

	select {
	case event := <-received:
		t.Fatalf("disabled event %q was delivered", event)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestDispatcher_NoChannels(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := NewDispatcher(nil, []string{"form_submit"}, time.Second, logger)

	// Must not panic or block.
	d.Dispatch("form_submit", nil)
}

func TestLogChannel_Send(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ch := NewLogChannel(logger)

	assert.Equal(t, "log", ch.Type())
	assert.NoError(t, ch.Send(context.Background(), "form_submit", map[string]any{"lead_id": 1}))
}
