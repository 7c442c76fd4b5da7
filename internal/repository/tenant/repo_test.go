package tenant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/reviewdex/internal/db"
	"github.com/kailas-cloud/reviewdex/internal/domain"
	"github.com/kailas-cloud/reviewdex/internal/domain/review"
)

type memStore struct {
	data   map[string]map[string]string
	getErr error
	setErr error
}

func newMemStore() *memStore {
	return &memStore{data: map[string]map[string]string{}}
}

func (m *memStore) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	if m.setErr != nil {
		return m.setErr
	}
	for _, it := range items {
		h, ok := m.data[it.Key]
		if !ok {
			h = map[string]string{}
			m.data[it.Key] = h
		}
		for k, v := range it.Fields {
			h[k] = v
		}
	}
	return nil
}

func (m *memStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.data[key], nil
}

func TestSaveAndGet(t *testing.T) {
	ms := newMemStore()
	repo := New(ms, "reviewdex:")
	repo.now = func() time.Time { return time.UnixMilli(1700000000000) }

	meta := review.Metadata{
		Title:       "Joe's Pizza",
		Address:     "7 Carmine St",
		Rating:      4.6,
		ReviewCount: 120,
		PlaceID:     "0x1:0x2",
	}
	if err := repo.Save(context.Background(), "7 Carmine St", meta); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h, ok := ms.data["reviewdex:tenant:7 Carmine St"]
	if !ok {
		t.Fatalf("unexpected keys: %v", ms.data)
	}
	if h[fieldIngestedAt] != "1700000000000" || h[fieldRating] != "4.6" {
		t.Errorf("unexpected hash %v", h)
	}

	got, err := repo.Get(context.Background(), "7 Carmine St")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != meta {
		t.Errorf("got %+v, want %+v", got, meta)
	}
}

func TestSave_Overwrites(t *testing.T) {
	ms := newMemStore()
	repo := New(ms, "")

	_ = repo.Save(context.Background(), "k", review.Metadata{Title: "Old", Rating: 3})
	_ = repo.Save(context.Background(), "k", review.Metadata{Title: "New", Rating: 4.5})

	got, err := repo.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != "New" || got.Rating != 4.5 {
		t.Errorf("got %+v", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo := New(newMemStore(), "reviewdex:")
	_, err := repo.Get(context.Background(), "nowhere")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGet_StoreError(t *testing.T) {
	storeErr := errors.New("conn reset")
	ms := newMemStore()
	ms.getErr = storeErr
	repo := New(ms, "reviewdex:")
	if _, err := repo.Get(context.Background(), "x"); !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestGet_CorruptHash(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
	}{
		{"rating", map[string]string{fieldTitle: "x", fieldRating: "four"}},
		{"review count", map[string]string{fieldTitle: "x", fieldReviewCount: "many"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := newMemStore()
			ms.data["tenant:k"] = tt.fields
			if _, err := New(ms, "").Get(context.Background(), "k"); err == nil {
				t.Fatal("expected decode error")
			}
		})
	}
}

func TestSave_Errors(t *testing.T) {
	repo := New(newMemStore(), "reviewdex:")
	if err := repo.Save(context.Background(), "", review.Metadata{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	storeErr := errors.New("readonly replica")
	ms := newMemStore()
	ms.setErr = storeErr
	if err := New(ms, "").Save(context.Background(), "k", review.Metadata{}); !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestTenantForPlace(t *testing.T) {
	ms := newMemStore()
	repo := New(ms, "reviewdex:")
	ctx := context.Background()

	if _, err := repo.TenantForPlace(ctx, "0x1:0x2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before ingest, got %v", err)
	}

	if err := repo.Save(ctx, "7 Carmine St", review.Metadata{Title: "Joe's", PlaceID: "0x1:0x2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ms.data["reviewdex:place:0x1:0x2"][fieldTenantKey]; got != "7 Carmine St" {
		t.Fatalf("pointer hash = %v", ms.data["reviewdex:place:0x1:0x2"])
	}

	key, err := repo.TenantForPlace(ctx, "0x1:0x2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "7 Carmine St" {
		t.Errorf("tenant = %q", key)
	}
}

func TestSave_NoPlaceIDWritesNoPointer(t *testing.T) {
	ms := newMemStore()
	if err := New(ms, "").Save(context.Background(), "k", review.Metadata{Title: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ms.data) != 1 {
		t.Errorf("expected only the tenant hash, got %v", ms.data)
	}
}

func TestTenantForPlace_StoreError(t *testing.T) {
	storeErr := errors.New("conn reset")
	ms := newMemStore()
	ms.getErr = storeErr
	if _, err := New(ms, "").TenantForPlace(context.Background(), "0x1:0x2"); !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
}
