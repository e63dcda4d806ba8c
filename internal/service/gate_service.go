package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/realtreasury/rt-gate/internal/hash"
	"github.com/realtreasury/rt-gate/internal/logging"
	"github.com/realtreasury/rt-gate/internal/metrics"
	"github.com/realtreasury/rt-gate/internal/models"
	"github.com/realtreasury/rt-gate/internal/repository"
	"github.com/realtreasury/rt-gate/internal/tokens"
	"github.com/realtreasury/rt-gate/internal/webhook"
)

var (
	ErrInvalidSubmission = errors.New("invalid submission")
	ErrMissingEmail      = errors.New("email is required")
	ErrInvalidEmail      = errors.New("email is not valid")
	ErrFormNotFound      = errors.New("form not found")
	ErrLeadUpsertFailed  = errors.New("failed to save lead")
	ErrInvalidEvent      = errors.New("invalid event")
	ErrInvalidProgress   = errors.New("invalid progress value")
	ErrAssetNotFound     = errors.New("asset not found")
	ErrInvalidToken      = errors.New("invalid token")
	ErrEventSaveFailed   = errors.New("failed to save event")
)

// endpointEvents are the event types clients may report directly.
// form_submit is recorded by the gate itself during submission.
var endpointEvents = map[string]bool{
	models.EventPageView:      true,
	models.EventDownloadClick: true,
	models.EventVideoPlay:     true,
	models.EventVideoProgress: true,
}

// RequestMeta carries per-request client attributes the service hashes
// before they reach storage.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// GateService implements the lead-capture gate: submissions, token
// validation and engagement events.
type GateService struct {
	repo     repository.Repository
	catalog  repository.Catalog
	issuer   *tokens.Issuer
	webhooks *webhook.Dispatcher
	honeypot string
	logger   *logging.Logger
}

func NewGateService(
	repo repository.Repository,
	catalog repository.Catalog,
	issuer *tokens.Issuer,
	webhooks *webhook.Dispatcher,
	honeypotField string,
	logger *logging.Logger,
) *GateService {
	return &GateService{
		repo:     repo,
		catalog:  catalog,
		issuer:   issuer,
		webhooks: webhooks,
		honeypot: honeypotField,
		logger:   logger,
	}
}

// Submit captures a lead and issues one access token per asset mapped
// to the form. Assets whose token could not be issued are skipped; the
// submission itself still succeeds once the lead is stored.
func (s *GateService) Submit(ctx context.Context, req *models.SubmitRequest, meta RequestMeta) (*models.SubmitResponse, error) {
	// Consent is a hard gate: without it nothing may be stored.
	if req == nil || req.FormID <= 0 || !req.Consent {
		metrics.SubmissionsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidSubmission
	}

	// A filled honeypot field means a bot. Answer with an empty success
	// and touch nothing, so the bot cannot tell it was caught.
	if s.honeypot != "" && strings.TrimSpace(req.Fields[s.honeypot]) != "" {
		metrics.SubmissionsTotal.WithLabelValues("honeypot").Inc()
		return &models.SubmitResponse{Assets: []models.AssetGrant{}}, nil
	}

	email := strings.TrimSpace(req.Fields["email"])
	if email == "" {
		metrics.SubmissionsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrMissingEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidEmail
	}
	email = strings.ToLower(email)

	exists, err := s.catalog.FormExists(ctx, req.FormID)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrFormNotFound, err)
	}
	if !exists {
		metrics.SubmissionsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrFormNotFound
	}

	lead := &models.Lead{
		Email:    email,
		FormData: req.Fields,
		IPHash:   hash.IP(meta.IP),
		UAHash:   hash.UserAgent(meta.UserAgent),
	}
	leadID, err := s.repo.UpsertLead(ctx, lead)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrLeadUpsertFailed, err)
	}

	mapped, err := s.catalog.MappedAssets(ctx, req.FormID)
	if err != nil {
		// The lead is already stored; deliver what we can.
		s.logger.ErrorContext(ctx, "failed to load mapped assets",
			logging.FormID(req.FormID), logging.Error(err))
		mapped = nil
	}

	grants := make([]models.AssetGrant, 0, len(mapped))
	var issueErr error
	for _, m := range mapped {
		secret, token, err := s.issuer.Issue(ctx, leadID, m.AssetID)
		if err != nil {
			s.logger.ErrorContext(ctx, "token issuance failed, skipping asset",
				logging.AssetID(m.AssetID), logging.AssetSlug(m.Slug), logging.Error(err))
			issueErr = err
			continue
		}
		grants = append(grants, models.AssetGrant{
			Slug:        m.Slug,
			RedirectURL: renderRedirect(m.RedirectTemplate, m.Slug, secret),
			ExpiresAt:   token.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}

	// One dead asset is skipped silently, but when the form has assets
	// and not a single token could be issued the client must hear it.
	if len(mapped) > 0 && len(grants) == 0 && issueErr != nil {
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		return nil, issueErr
	}

	// The submission event is attributed to the form's first mapped
	// asset; zero only when the form has none.
	var firstAssetID int64
	if len(mapped) > 0 {
		firstAssetID = mapped[0].AssetID
	}

	event := &models.Event{
		LeadID:    leadID,
		FormID:    req.FormID,
		AssetID:   firstAssetID,
		EventType: models.EventFormSubmit,
		Meta: map[string]any{
			"consent":         req.Consent,
			"request_ip_hash": lead.IPHash,
			"request_ua_hash": lead.UAHash,
		},
	}
	if err := s.repo.InsertEvent(ctx, event); err != nil {
		// Analytics loss is not worth failing a captured lead.
		s.logger.ErrorContext(ctx, "failed to record submission event",
			logging.LeadID(leadID), logging.Error(err))
	} else {
		metrics.EventsRecorded.WithLabelValues(models.EventFormSubmit).Inc()
	}

	s.webhooks.Dispatch(models.EventFormSubmit, map[string]any{
		"lead_id": leadID,
		"form_id": req.FormID,
		"email":   email,
		"assets":  len(grants),
	})

	metrics.SubmissionsTotal.WithLabelValues("ok").Inc()

	resp := &models.SubmitResponse{Assets: grants}
	if len(grants) > 0 {
		resp.PrimaryRedirectURL = grants[0].RedirectURL
	}
	return resp, nil
}

// Validate checks a token against an asset slug. Every failure mode,
// including backend errors, yields valid=false; the response never
// reveals why a token was rejected.
func (s *GateService) Validate(ctx context.Context, req *models.ValidateRequest) *models.ValidateResponse {
	invalid := &models.ValidateResponse{Valid: false}

	if req == nil || req.Token == "" || req.AssetSlug == "" {
		return invalid
	}

	asset, err := s.catalog.AssetBySlug(ctx, req.AssetSlug)
	if err != nil {
		if !errors.Is(err, repository.ErrAssetNotFound) {
			s.logger.ErrorContext(ctx, "asset lookup failed during validation",
				logging.AssetSlug(req.AssetSlug), logging.Error(err))
		}
		return invalid
	}

	token, err := s.issuer.Validate(ctx, req.Token, asset.ID)
	if err != nil {
		return invalid
	}

	return &models.ValidateResponse{
		Valid: true,
		Asset: &models.AssetInfo{
			Type:   asset.Type,
			Config: asset.Config,
		},
		ExpiresAt: token.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// RecordEvent stores an engagement event reported by an asset page.
// The caller must hold a valid token for the asset.
func (s *GateService) RecordEvent(ctx context.Context, req *models.EventRequest, meta RequestMeta) (*models.EventResponse, error) {
	if req == nil || req.Token == "" || req.AssetSlug == "" || !endpointEvents[req.EventType] {
		return nil, ErrInvalidEvent
	}

	if req.EventType == models.EventVideoProgress {
		progress, ok := progressValue(req.Meta)
		if !ok || !models.VideoProgressMilestones[progress] {
			return nil, ErrInvalidProgress
		}
	}

	asset, err := s.catalog.AssetBySlug(ctx, req.AssetSlug)
	if err != nil {
		if errors.Is(err, repository.ErrAssetNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrAssetNotFound, err)
	}

	token, err := s.issuer.Validate(ctx, req.Token, asset.ID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	formID, err := s.catalog.FirstFormForAsset(ctx, asset.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to resolve form for asset",
			logging.AssetID(asset.ID), logging.Error(err))
		formID = 0
	}

	eventMeta := make(map[string]any, len(req.Meta)+2)
	for k, v := range req.Meta {
		eventMeta[k] = v
	}
	eventMeta["request_ip_hash"] = hash.IP(meta.IP)
	eventMeta["request_ua_hash"] = hash.UserAgent(meta.UserAgent)

	event := &models.Event{
		LeadID:    token.LeadID,
		FormID:    formID,
		AssetID:   asset.ID,
		EventType: req.EventType,
		Meta:      eventMeta,
	}
	if err := s.repo.InsertEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEventSaveFailed, err)
	}

	metrics.EventsRecorded.WithLabelValues(req.EventType).Inc()

	s.webhooks.Dispatch("asset_event", map[string]any{
		"event_type": req.EventType,
		"asset_slug": asset.Slug,
		"asset_id":   asset.ID,
		"lead_id":    token.LeadID,
	})

	return &models.EventResponse{Recorded: true}, nil
}

// renderRedirect fills the {asset_slug} and {token} placeholders of a
// redirect template. Both values are URL encoded.
func renderRedirect(template, slug, secret string) string {
	out := strings.ReplaceAll(template, "{asset_slug}", url.QueryEscape(slug))
	return strings.ReplaceAll(out, "{token}", url.QueryEscape(secret))
}

// progressValue extracts meta.progress, accepting the numeric forms a
// JSON decoder can produce.
func progressValue(meta map[string]any) (int, bool) {
	raw, ok := meta["progress"]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}
