package models

import "time"

// Asset types understood by the rendering frontend.
const (
	AssetTypeDownload = "download"
	AssetTypeVideo    = "video"
	AssetTypeLink     = "link"
)

// Event types accepted by the event endpoint.
const (
	EventFormSubmit    = "form_submit"
	EventPageView      = "page_view"
	EventDownloadClick = "download_click"
	EventVideoPlay     = "video_play"
	EventVideoProgress = "video_progress"
)

// VideoProgressMilestones are the only accepted values for
// meta.progress on a video_progress event.
var VideoProgressMilestones = map[int]bool{
	25:  true,
	50:  true,
	75:  true,
	90:  true,
	100: true,
}

// Lead is a captured contact, unique by email. Repeat submissions with
// the same email update the existing record.
type Lead struct {
	ID        int64             `json:"id"`
	Email     string            `json:"email"`
	FormData  map[string]string `json:"form_data"`
	IPHash    string            `json:"ip_hash"`
	UAHash    string            `json:"ua_hash"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Token is a time-bounded access grant for one (lead, asset) pair.
// Only the SHA-256 digest of the secret is ever stored; the plaintext
// exists solely in the issuance response.
type Token struct {
	ID        int64     `json:"id"`
	LeadID    int64     `json:"lead_id"`
	AssetID   int64     `json:"asset_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Asset is admin-managed configuration; the gate only reads it.
type Asset struct {
	ID     int64          `json:"id"`
	Name   string         `json:"name"`
	Slug   string         `json:"slug"`
	Type   string         `json:"type"`
	Config map[string]any `json:"config"`
}

// MappedAsset is one row of a form's asset mapping, in mapping-creation
// order. RedirectTemplate contains {asset_slug} and {token} placeholders.
type MappedAsset struct {
	AssetID          int64
	Slug             string
	RedirectTemplate string
}

// Event is an append-only engagement fact.
type Event struct {
	ID        int64          `json:"id"`
	LeadID    int64          `json:"lead_id"`
	FormID    int64          `json:"form_id"`
	AssetID   int64          `json:"asset_id"`
	EventType string         `json:"event_type"`
	Meta      map[string]any `json:"meta"`
	CreatedAt time.Time      `json:"created_at"`
}
