package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/realtreasury/rt-gate/internal/models"
)

// PostgresRepository implements Repository and Catalog on a pgx pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

// Ping reports whether the database is reachable. Used by readiness checks.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) UpsertLead(ctx context.Context, lead *models.Lead) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	formData, err := json.Marshal(lead.FormData)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal lead fields: %w", err)
	}

	// The unique constraint on email makes concurrent submissions for the
	// same address converge on one row instead of failing.
	query := `
		INSERT INTO rtg_leads (email, form_data, ip_hash, ua_hash)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE
		SET form_data = EXCLUDED.form_data,
		    ip_hash = EXCLUDED.ip_hash,
		    ua_hash = EXCLUDED.ua_hash,
		    updated_at = NOW()
		RETURNING id
	`

	var id int64
	err = r.pool.QueryRow(ctx, query, lead.Email, formData, lead.IPHash, lead.UAHash).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert lead: %w", err)
	}

	return id, nil
}

func (r *PostgresRepository) GetLeadByEmail(ctx context.Context, email string) (*models.Lead, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT id, email, form_data, ip_hash, ua_hash, created_at, updated_at
		FROM rtg_leads
		WHERE email = $1
	`

	var lead models.Lead
	var formData []byte
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&lead.ID, &lead.Email, &formData, &lead.IPHash, &lead.UAHash,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}

	if len(formData) > 0 {
		if err := json.Unmarshal(formData, &lead.FormData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal lead fields: %w", err)
		}
	}

	return &lead, nil
}

func (r *PostgresRepository) InsertToken(ctx context.Context, token *models.Token) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		INSERT INTO rtg_tokens (lead_id, asset_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		token.LeadID, token.AssetID, token.TokenHash, token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert token: %w", err)
	}

	return nil
}

func (r *PostgresRepository) LatestTokenByHash(ctx context.Context, tokenHash string, assetID int64) (*models.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// Re-issued tokens can leave several rows per (hash, asset); the most
	// recent unexpired one wins. Expired rows are retained and filtered
	// here rather than deleted.
	query := `
		SELECT id, lead_id, asset_id, token_hash, expires_at, created_at
		FROM rtg_tokens
		WHERE token_hash = $1 AND asset_id = $2 AND expires_at > NOW()
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var token models.Token
	err := r.pool.QueryRow(ctx, query, tokenHash, assetID).Scan(
		&token.ID, &token.LeadID, &token.AssetID, &token.TokenHash,
		&token.ExpiresAt, &token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	return &token, nil
}

func (r *PostgresRepository) InsertEvent(ctx context.Context, event *models.Event) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	meta, err := json.Marshal(event.Meta)
	if err != nil {
		return fmt.Errorf("failed to marshal event meta: %w", err)
	}

	query := `
		INSERT INTO rtg_events (lead_id, form_id, asset_id, event_type, meta)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err = r.pool.QueryRow(ctx, query,
		event.LeadID, event.FormID, event.AssetID, event.EventType, meta,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}

func (r *PostgresRepository) FormExists(ctx context.Context, formID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM rtg_forms WHERE id = $1)`, formID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check form: %w", err)
	}

	return exists, nil
}

func (r *PostgresRepository) MappedAssets(ctx context.Context, formID int64) ([]models.MappedAsset, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT a.id, a.slug, m.redirect_template
		FROM rtg_mappings m
		INNER JOIN rtg_assets a ON a.id = m.asset_id
		WHERE m.form_id = $1
		ORDER BY m.id ASC
	`

	rows, err := r.pool.Query(ctx, query, formID)
	if err != nil {
		return nil, fmt.Errorf("failed to list mapped assets: %w", err)
	}
	defer rows.Close()

	var mapped []models.MappedAsset
	for rows.Next() {
		var m models.MappedAsset
		if err := rows.Scan(&m.AssetID, &m.Slug, &m.RedirectTemplate); err != nil {
			return nil, fmt.Errorf("failed to scan mapped asset: %w", err)
		}
		mapped = append(mapped, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mapped assets: %w", err)
	}

	return mapped, nil
}

func (r *PostgresRepository) AssetBySlug(ctx context.Context, slug string) (*models.Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT id, name, slug, type, config
		FROM rtg_assets
		WHERE slug = $1
	`

	var asset models.Asset
	var config []byte
	err := r.pool.QueryRow(ctx, query, slug).Scan(
		&asset.ID, &asset.Name, &asset.Slug, &asset.Type, &config,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}

	if len(config) > 0 {
		if err := json.Unmarshal(config, &asset.Config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal asset config: %w", err)
		}
	}

	return &asset, nil
}

func (r *PostgresRepository) FirstFormForAsset(ctx context.Context, assetID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT form_id FROM rtg_mappings
		WHERE asset_id = $1
		ORDER BY id ASC
		LIMIT 1
	`

	var formID int64
	err := r.pool.QueryRow(ctx, query, assetID).Scan(&formID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to resolve form for asset: %w", err)
	}

	return formID, nil
}
