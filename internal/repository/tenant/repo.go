// Package tenant persists the per-place metadata snapshot next to its reviews.
package tenant

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/reviewdex/internal/db"
	"github.com/kailas-cloud/reviewdex/internal/domain"
	"github.com/kailas-cloud/reviewdex/internal/domain/review"
)

// Hash field names.
const (
	fieldTitle       = "title"
	fieldAddress     = "address"
	fieldRating      = "rating"
	fieldReviewCount = "review_count"
	fieldPlaceID     = "place_id"
	fieldIngestedAt  = "ingested_at"
	fieldTenantKey   = "tenant_key"
)

type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// Repo stores tenant metadata as one hash per tenant key, plus a
// place_id -> tenant_key pointer hash for places with a known id.
type Repo struct {
	store       store
	prefix      string
	placePrefix string
	now         func() time.Time
}

// New creates a tenant metadata repository under keyPrefix.
func New(s store, keyPrefix string) *Repo {
	return &Repo{
		store:       s,
		prefix:      keyPrefix + "tenant:",
		placePrefix: keyPrefix + "place:",
		now:         time.Now,
	}
}

// Save overwrites the snapshot stored under tenantKey. Both hashes go out in
// one pipeline.
func (r *Repo) Save(ctx context.Context, tenantKey string, meta review.Metadata) error {
	if tenantKey == "" {
		return fmt.Errorf("%w: tenant key is required", domain.ErrValidation)
	}
	item := db.HashSetItem{
		Key: r.prefix + tenantKey,
		Fields: map[string]string{
			fieldTitle:       meta.Title,
			fieldAddress:     meta.Address,
			fieldRating:      strconv.FormatFloat(meta.Rating, 'f', -1, 64),
			fieldReviewCount: strconv.Itoa(meta.ReviewCount),
			fieldPlaceID:     meta.PlaceID,
			fieldIngestedAt:  strconv.FormatInt(r.now().UnixMilli(), 10),
		},
	}
	items := []db.HashSetItem{item}
	if meta.PlaceID != "" {
		items = append(items, db.HashSetItem{
			Key:    r.placePrefix + meta.PlaceID,
			Fields: map[string]string{fieldTenantKey: tenantKey},
		})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("save tenant %q: %w", tenantKey, err)
	}
	return nil
}

// Get loads metadata for tenantKey, returning domain.ErrNotFound for unknown tenants.
func (r *Repo) Get(ctx context.Context, tenantKey string) (review.Metadata, error) {
	m, err := r.store.HGetAll(ctx, r.prefix+tenantKey)
	if err != nil {
		return review.Metadata{}, fmt.Errorf("get tenant %q: %w", tenantKey, err)
	}
	// HGETALL на несуществующий ключ отдаёт пустой map
	if len(m) == 0 {
		return review.Metadata{}, fmt.Errorf("tenant %q: %w", tenantKey, domain.ErrNotFound)
	}
	return hashToMetadata(tenantKey, m)
}

// TenantForPlace returns the tenant key last ingested for placeID, or
// domain.ErrNotFound when the place was never ingested.
func (r *Repo) TenantForPlace(ctx context.Context, placeID string) (string, error) {
	m, err := r.store.HGetAll(ctx, r.placePrefix+placeID)
	if err != nil {
		return "", fmt.Errorf("get place %q: %w", placeID, err)
	}
	key := m[fieldTenantKey]
	if key == "" {
		return "", fmt.Errorf("place %q: %w", placeID, domain.ErrNotFound)
	}
	return key, nil
}

func hashToMetadata(tenantKey string, m map[string]string) (review.Metadata, error) {
	meta := review.Metadata{
		Title:   m[fieldTitle],
		Address: m[fieldAddress],
		PlaceID: m[fieldPlaceID],
	}
	if v := m[fieldRating]; v != "" {
		rating, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return review.Metadata{}, fmt.Errorf("decode tenant %q rating: %w", tenantKey, err)
		}
		meta.Rating = rating
	}
	if v := m[fieldReviewCount]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return review.Metadata{}, fmt.Errorf("decode tenant %q review count: %w", tenantKey, err)
		}
		meta.ReviewCount = n
	}
	return meta, nil
}
