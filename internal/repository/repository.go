package repository

import (
	"context"
	"errors"

	"github.com/realtreasury/rt-gate/internal/models"
)

var (
	ErrLeadNotFound  = errors.New("lead not found")
	ErrAssetNotFound = errors.New("asset not found")
	ErrTokenNotFound = errors.New("token not found")
)

// Repository is the gate-owned persistence surface: leads, tokens, events.
type Repository interface {
	// UpsertLead inserts a lead or, when the email already exists,
	// updates its fields and request hashes. Returns the lead ID.
	UpsertLead(ctx context.Context, lead *models.Lead) (int64, error)
	GetLeadByEmail(ctx context.Context, email string) (*models.Lead, error)

	// InsertToken persists a token record (digest only, never the secret).
	InsertToken(ctx context.Context, token *models.Token) error
	// LatestTokenByHash returns the most recently created unexpired token
	// matching the digest, scoped to an asset. ErrTokenNotFound otherwise.
	LatestTokenByHash(ctx context.Context, tokenHash string, assetID int64) (*models.Token, error)

	InsertEvent(ctx context.Context, event *models.Event) error
}

// Catalog is the admin-managed configuration surface. The gate only
// reads it; forms, assets and mappings are owned by the admin tooling.
type Catalog interface {
	FormExists(ctx context.Context, formID int64) (bool, error)
	// MappedAssets lists the assets mapped to a form in mapping-creation order.
	MappedAssets(ctx context.Context, formID int64) ([]models.MappedAsset, error)
	AssetBySlug(ctx context.Context, slug string) (*models.Asset, error)
	// FirstFormForAsset resolves a best-effort form ID for an asset from
	// its earliest mapping; returns 0 when the asset is unmapped.
	FirstFormForAsset(ctx context.Context, assetID int64) (int64, error)
}
