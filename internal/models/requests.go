package models

type SubmitRequest struct {
	FormID  int64             `json:"form_id"`
	Fields  map[string]string `json:"fields"`
	Consent bool              `json:"consent"`
}

type AssetGrant struct {
	Slug        string `json:"slug"`
	RedirectURL string `json:"redirect_url"`
	ExpiresAt   string `json:"expires_at"`
}

type SubmitResponse struct {
	PrimaryRedirectURL string       `json:"primary_redirect_url"`
	Assets             []AssetGrant `json:"assets"`
}

type ValidateRequest struct {
	Token     string `json:"token"`
	AssetSlug string `json:"asset_slug"`
}

type AssetInfo struct {
	Type   string         `json:"type"`
	Config map[string]any `json:"config"`
}

type ValidateResponse struct {
	Valid     bool       `json:"valid"`
	Asset     *AssetInfo `json:"asset,omitempty"`
	ExpiresAt string     `json:"expires_at,omitempty"`
}

type EventRequest struct {
	Token     string         `json:"token"`
	AssetSlug string         `json:"asset_slug"`
	EventType string         `json:"event_type"`
	Meta      map[string]any `json:"meta"`
}

type EventResponse struct {
	Recorded bool `json:"recorded"`
}
