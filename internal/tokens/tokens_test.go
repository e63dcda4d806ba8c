package tokens

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realtreasury/rt-gate/internal/models"
	"github.com/realtreasury/rt-gate/internal/repository"
)

func newTestIssuer(t *testing.T, ttl time.Duration) (*Issuer, *repository.MemoryRepository) {
	t.Helper()
	repo := repository.NewMemoryRepository()
	return NewIssuer(repo, ttl), repo
}

func TestIssuer_IssueAndValidate(t *testing.T) {
	issuer, _ := newTestIssuer(t, time.Hour)
	ctx := context.Background()

	secret, token, err := issuer.Issue(ctx, 1, 7)
	require.NoError(t, err)
	assert.Len(t, secret, 64, "secret is 32 random bytes hex encoded")
	assert.NotEqual(t, secret, token.TokenHash, "plaintext is never stored")

	got, err := issuer.Validate(ctx, secret, 7)
	require.NoError(t, err)
	assert.Equal(t, token.ID, got.ID)
	assert.Equal(t, int64(1), got.LeadID)
}

func TestIssuer_Validate_WrongAsset(t *testing.T) {
	issuer, _ := newTestIssuer(t, time.Hour)
	ctx := context.Background()

	secret, _, err := issuer.Issue(ctx, 1, 7)
	require.NoError(t, err)

	_, err = issuer.Validate(ctx, secret, 8)
	assert.ErrorIs(t, err, ErrInvalidToken, "tokens are scoped to one asset")
}

func TestIssuer_Validate_Expired(t *testing.T) {
	issuer, _ := newTestIssuer(t, time.Hour)
	ctx := context.Background()

	now := time.Now()
	issuer.now = func() time.Time { return now }

	secret, _, err := issuer.Issue(ctx, 1, 7)
	require.NoError(t, err)

	// Still valid just before the boundary.
	issuer.now = func() time.Time { return now.Add(time.Hour - time.Second) }
	_, err = issuer.Validate(ctx, secret, 7)
	require.NoError(t, err)

	// Expiry is exclusive: at the boundary the token is dead.
	issuer.now = func() time.Time { return now.Add(time.Hour) }
	_, err = issuer.Validate(ctx, secret, 7)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_Validate_UniformFailures(t *testing.T) {
	issuer, _ := newTestIssuer(t, time.Hour)
	ctx := context.Background()

	// Unknown, empty and malformed secrets all collapse into the same error.
	for _, secret := range []string{"", "deadbeef", "not-even-hex"} {
		_, err := issuer.Validate(ctx, secret, 7)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}

	_, err := issuer.Validate(ctx, "anything", 0)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_Issue_InvalidRequest(t *testing.T) {
	issuer, _ := newTestIssuer(t, time.Hour)
	ctx := context.Background()

	_, _, err := issuer.Issue(ctx, 0, 7)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, _, err = issuer.Issue(ctx, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestIssuer_Issue_NonPositiveTTL(t *testing.T) {
	ctx := context.Background()

	// A zero or negative TTL would mint tokens that are dead on arrival.
	for _, ttl := range []time.Duration{0, -time.Minute} {
		issuer, repo := newTestIssuer(t, ttl)
		_, _, err := issuer.Issue(ctx, 1, 7)
		assert.ErrorIs(t, err, ErrInvalidRequest)
		assert.Equal(t, 0, repo.TokenCount(), "nothing is persisted for a rejected TTL")
	}
}

type brokenStore struct{ err error }

func (s *brokenStore) InsertToken(context.Context, *models.Token) error { return s.err }

func (s *brokenStore) LatestTokenByHash(context.Context, string, int64) (*models.Token, error) {
	return nil, s.err
}

func TestIssuer_Issue_PersistFailure(t *testing.T) {
	issuer := NewIssuer(&brokenStore{err: errors.New("connection reset")}, time.Hour)

	secret, token, err := issuer.Issue(context.Background(), 1, 7)
	assert.ErrorIs(t, err, ErrPersistFailed)
	assert.Empty(t, secret, "no secret leaves the issuer on persist failure")
	assert.Nil(t, token)
}

func TestIssuer_Validate_StoreFailureFailsClosed(t *testing.T) {
	issuer := NewIssuer(&brokenStore{err: errors.New("connection reset")}, time.Hour)

	_, err := issuer.Validate(context.Background(), "secret", 7)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_MostRecentTokenWins(t *testing.T) {
	issuer, repo := newTestIssuer(t, time.Hour)
	ctx := context.Background()

	// Two leads issued tokens for the same asset; each secret resolves
	// to its own record.
	secretA, tokenA, err := issuer.Issue(ctx, 1, 7)
	require.NoError(t, err)
	secretB, tokenB, err := issuer.Issue(ctx, 2, 7)
	require.NoError(t, err)

	gotA, err := issuer.Validate(ctx, secretA, 7)
	require.NoError(t, err)
	assert.Equal(t, tokenA.ID, gotA.ID)

	gotB, err := issuer.Validate(ctx, secretB, 7)
	require.NoError(t, err)
	assert.Equal(t, tokenB.ID, gotB.ID)

	assert.Equal(t, 2, repo.TokenCount())
}
