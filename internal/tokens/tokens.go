// Package tokens issues and validates time-bounded asset access tokens.
// The plaintext secret exists only in the issuance return value; storage
// and lookup work exclusively on the SHA-256 digest.
package tokens

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/realtreasury/rt-gate/internal/hash"
	"github.com/realtreasury/rt-gate/internal/metrics"
	"github.com/realtreasury/rt-gate/internal/models"
)

const secretBytes = 32

var (
	ErrInvalidRequest   = errors.New("lead and asset are required")
	ErrGenerationFailed = errors.New("failed to generate token")
	ErrPersistFailed    = errors.New("failed to persist token")

	// ErrInvalidToken covers every validation failure: unknown digest,
	// expired token, wrong asset. Callers must not distinguish the cases.
	ErrInvalidToken = errors.New("invalid token")
)

// Store is the persistence the issuer needs.
type Store interface {
	InsertToken(ctx context.Context, token *models.Token) error
	LatestTokenByHash(ctx context.Context, tokenHash string, assetID int64) (*models.Token, error)
}

// Issuer mints and checks tokens for (lead, asset) pairs.
type Issuer struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewIssuer(store Store, ttl time.Duration) *Issuer {
	return &Issuer{store: store, ttl: ttl, now: time.Now}
}

// Issue mints a fresh token for the lead and asset and persists its
// digest. Returns the plaintext secret and the stored record.
func (i *Issuer) Issue(ctx context.Context, leadID, assetID int64) (string, *models.Token, error) {
	// A non-positive TTL would mint born-expired tokens.
	if leadID <= 0 || assetID <= 0 || i.ttl <= 0 {
		return "", nil, ErrInvalidRequest
	}

	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	secret := hex.EncodeToString(buf)

	token := &models.Token{
		LeadID:    leadID,
		AssetID:   assetID,
		TokenHash: hash.Value(secret),
		ExpiresAt: i.now().Add(i.ttl),
	}
	if err := i.store.InsertToken(ctx, token); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	metrics.TokensIssued.Inc()
	return secret, token, nil
}

// Validate checks a plaintext secret against an asset. Any failure
// mode collapses into ErrInvalidToken so responses cannot be used to
// probe which tokens exist.
func (i *Issuer) Validate(ctx context.Context, secret string, assetID int64) (*models.Token, error) {
	if secret == "" || assetID <= 0 {
		metrics.TokenValidations.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidToken
	}

	// Store errors fail closed: a flaky lookup must not admit anyone.
	token, err := i.store.LatestTokenByHash(ctx, hash.Value(secret), assetID)
	if err != nil {
		metrics.TokenValidations.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidToken
	}

	// The store already filters expired rows; re-check against the
	// issuer clock so a stale read still fails closed.
	if !token.ExpiresAt.After(i.now()) {
		metrics.TokenValidations.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidToken
	}

	metrics.TokenValidations.WithLabelValues("valid").Inc()
	return token, nil
}
