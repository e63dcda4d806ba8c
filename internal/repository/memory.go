package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/realtreasury/rt-gate/internal/models"
)

// MemoryRepository is an in-memory Repository and Catalog used for
// development and tests. Catalog rows are seeded by the caller.
type MemoryRepository struct {
	mu sync.RWMutex

	leads      map[string]*models.Lead // keyed by lowercase email
	tokens     []*models.Token
	events     []*models.Event
	forms      map[int64]bool
	assets     map[int64]*models.Asset
	assetSlugs map[string]int64
	mappings   []mappingRow

	nextLeadID  int64
	nextTokenID int64
	nextEventID int64
}

type mappingRow struct {
	id               int64
	formID           int64
	assetID          int64
	redirectTemplate string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		leads:      make(map[string]*models.Lead),
		forms:      make(map[int64]bool),
		assets:     make(map[int64]*models.Asset),
		assetSlugs: make(map[string]int64),
	}
}

// SeedForm registers a form ID as existing.
func (r *MemoryRepository) SeedForm(formID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forms[formID] = true
}

// SeedAsset registers an asset.
func (r *MemoryRepository) SeedAsset(asset *models.Asset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *asset
	r.assets[cp.ID] = &cp
	r.assetSlugs[cp.Slug] = cp.ID
}

// SeedMapping maps an asset to a form with a redirect template.
func (r *MemoryRepository) SeedMapping(formID, assetID int64, redirectTemplate string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappings = append(r.mappings, mappingRow{
		id:               int64(len(r.mappings) + 1),
		formID:           formID,
		assetID:          assetID,
		redirectTemplate: redirectTemplate,
	})
}

func (r *MemoryRepository) UpsertLead(_ context.Context, lead *models.Lead) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(lead.Email)
	now := time.Now()

	if existing, ok := r.leads[key]; ok {
		existing.FormData = lead.FormData
		existing.IPHash = lead.IPHash
		existing.UAHash = lead.UAHash
		existing.UpdatedAt = now
		return existing.ID, nil
	}

	r.nextLeadID++
	cp := *lead
	cp.ID = r.nextLeadID
	cp.CreatedAt = now
	cp.UpdatedAt = now
	r.leads[key] = &cp
	return cp.ID, nil
}

func (r *MemoryRepository) GetLeadByEmail(_ context.Context, email string) (*models.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[strings.ToLower(email)]
	if !ok {
		return nil, ErrLeadNotFound
	}
	cp := *lead
	return &cp, nil
}

func (r *MemoryRepository) InsertToken(_ context.Context, token *models.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextTokenID++
	token.ID = r.nextTokenID
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	cp := *token
	r.tokens = append(r.tokens, &cp)
	return nil
}

func (r *MemoryRepository) LatestTokenByHash(_ context.Context, tokenHash string, assetID int64) (*models.Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	var latest *models.Token
	for _, t := range r.tokens {
		if t.TokenHash != tokenHash || t.AssetID != assetID {
			continue
		}
		if !t.ExpiresAt.After(now) {
			continue
		}
		if latest == nil || t.CreatedAt.After(latest.CreatedAt) ||
			(t.CreatedAt.Equal(latest.CreatedAt) && t.ID > latest.ID) {
			latest = t
		}
	}
	if latest == nil {
		return nil, ErrTokenNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *MemoryRepository) InsertEvent(_ context.Context, event *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextEventID++
	event.ID = r.nextEventID
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	cp := *event
	r.events = append(r.events, &cp)
	return nil
}

func (r *MemoryRepository) FormExists(_ context.Context, formID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.forms[formID], nil
}

func (r *MemoryRepository) MappedAssets(_ context.Context, formID int64) ([]models.MappedAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var mapped []models.MappedAsset
	for _, m := range r.mappings {
		if m.formID != formID {
			continue
		}
		asset, ok := r.assets[m.assetID]
		if !ok {
			continue
		}
		mapped = append(mapped, models.MappedAsset{
			AssetID:          asset.ID,
			Slug:             asset.Slug,
			RedirectTemplate: m.redirectTemplate,
		})
	}
	return mapped, nil
}

func (r *MemoryRepository) AssetBySlug(_ context.Context, slug string) (*models.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.assetSlugs[slug]
	if !ok {
		return nil, ErrAssetNotFound
	}
	cp := *r.assets[id]
	return &cp, nil
}

func (r *MemoryRepository) FirstFormForAsset(_ context.Context, assetID int64) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.mappings {
		if m.assetID == assetID {
			return m.formID, nil
		}
	}
	return 0, nil
}

// Events returns a copy of all recorded events, oldest first.
func (r *MemoryRepository) Events() []*models.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Event, 0, len(r.events))
	for _, e := range r.events {
		cp := *e
		out = append(out, &cp)
	}
	return out
}

// LeadCount reports the number of distinct leads.
func (r *MemoryRepository) LeadCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.leads)
}

// TokenCount reports the number of stored token records.
func (r *MemoryRepository) TokenCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}
