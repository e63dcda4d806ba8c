package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/realtreasury/rt-gate/internal/httputil"
	"github.com/realtreasury/rt-gate/internal/middleware"
	"github.com/realtreasury/rt-gate/internal/models"
	"github.com/realtreasury/rt-gate/internal/service"
	"github.com/realtreasury/rt-gate/internal/tokens"
)

// ReadinessChecker reports whether a backing dependency is usable.
type ReadinessChecker func(ctx context.Context) error

type GateHandler struct {
	service   *service.GateService
	readiness []ReadinessChecker
}

func NewGateHandler(svc *service.GateService, readiness ...ReadinessChecker) *GateHandler {
	return &GateHandler{
		service:   svc,
		readiness: readiness,
	}
}

func (h *GateHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "rtg_method_not_allowed", "Method not allowed")
		return
	}

	var req models.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "rtg_invalid_submit", "Invalid request body")
		return
	}

	resp, err := h.service.Submit(r.Context(), &req, requestMeta(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *GateHandler) Validate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "rtg_method_not_allowed", "Method not allowed")
		return
	}

	var req models.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Validation never errors; an unreadable body is just invalid.
		httputil.WriteJSON(w, http.StatusOK, &models.ValidateResponse{Valid: false})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, h.service.Validate(r.Context(), &req))
}

func (h *GateHandler) Event(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "rtg_method_not_allowed", "Method not allowed")
		return
	}

	var req models.EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "rtg_invalid_event", "Invalid request body")
		return
	}

	resp, err := h.service.RecordEvent(r.Context(), &req, requestMeta(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *GateHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *GateHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	for _, check := range h.readiness {
		if err := check(r.Context()); err != nil {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"reason": err.Error(),
			})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// writeServiceError maps service sentinel errors onto the gate's wire
// error codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidSubmission):
		httputil.WriteError(w, http.StatusBadRequest, "rtg_invalid_submit", "Invalid submission")
	case errors.Is(err, service.ErrMissingEmail):
		httputil.WriteError(w, http.StatusBadRequest, "rtg_missing_email", "Email is required")
	case errors.Is(err, service.ErrInvalidEmail):
		httputil.WriteError(w, http.StatusBadRequest, "rtg_invalid_email", "Email is not valid")
	case errors.Is(err, service.ErrFormNotFound):
		httputil.WriteError(w, http.StatusNotFound, "rtg_form_not_found", "Form not found")
	case errors.Is(err, service.ErrLeadUpsertFailed):
		httputil.WriteError(w, http.StatusInternalServerError, "rtg_lead_upsert_failed", "Failed to save submission")
	case errors.Is(err, service.ErrInvalidEvent):
		httputil.WriteError(w, http.StatusBadRequest, "rtg_invalid_event", "Invalid event")
	case errors.Is(err, service.ErrInvalidProgress):
		httputil.WriteError(w, http.StatusBadRequest, "rtg_invalid_progress", "Invalid progress value")
	case errors.Is(err, service.ErrAssetNotFound):
		httputil.WriteError(w, http.StatusNotFound, "rtg_asset_not_found", "Asset not found")
	case errors.Is(err, service.ErrInvalidToken):
		httputil.WriteError(w, http.StatusUnauthorized, "rtg_invalid_token", "Invalid or expired token")
	case errors.Is(err, service.ErrEventSaveFailed):
		httputil.WriteError(w, http.StatusInternalServerError, "rtg_event_save_failed", "Failed to save event")
	case errors.Is(err, tokens.ErrGenerationFailed):
		httputil.WriteError(w, http.StatusInternalServerError, "rtg_token_generation_failed", "Failed to generate access token")
	case errors.Is(err, tokens.ErrPersistFailed):
		httputil.WriteError(w, http.StatusInternalServerError, "rtg_token_persist_failed", "Failed to store access token")
	default:
		httputil.WriteError(w, http.StatusInternalServerError, "rtg_internal", "Internal error")
	}
}

func requestMeta(r *http.Request) service.RequestMeta {
	return service.RequestMeta{
		IP:        middleware.ClientIP(r),
		UserAgent: r.Header.Get("User-Agent"),
	}
}
