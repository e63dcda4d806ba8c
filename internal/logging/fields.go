package logging

import "log/slog"

// Common field names for consistent logging across the service.
const (
	FieldService   = "service"
	FieldFormID    = "form_id"
	FieldAssetID   = "asset_id"
	FieldAssetSlug = "asset_slug"
	FieldLeadID    = "lead_id"
	FieldEventType = "event_type"
	FieldRoute     = "route"
	FieldStatus    = "status"
	FieldError     = "error"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// FormID returns a slog attribute for a form ID.
func FormID(id int64) slog.Attr {
	return slog.Int64(FieldFormID, id)
}

// AssetID returns a slog attribute for an asset ID.
func AssetID(id int64) slog.Attr {
	return slog.Int64(FieldAssetID, id)
}

// AssetSlug returns a slog attribute for an asset slug.
func AssetSlug(slug string) slog.Attr {
	return slog.String(FieldAssetSlug, slug)
}

// LeadID returns a slog attribute for a lead ID.
func LeadID(id int64) slog.Attr {
	return slog.Int64(FieldLeadID, id)
}

// EventType returns a slog attribute for an event type.
func EventType(t string) slog.Attr {
	return slog.String(FieldEventType, t)
}

// Route returns a slog attribute for an HTTP route.
func Route(route string) slog.Attr {
	return slog.String(FieldRoute, route)
}

// Status returns a slog attribute for an HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}
