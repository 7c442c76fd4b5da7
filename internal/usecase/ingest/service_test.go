package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/reviewdex/internal/domain"
	"github.com/kailas-cloud/reviewdex/internal/domain/place"
	"github.com/kailas-cloud/reviewdex/internal/domain/review"
	"github.com/kailas-cloud/reviewdex/internal/usecase/pagination"
	"github.com/kailas-cloud/reviewdex/internal/usecase/sampling"
)

// --- Mocks ---

type mockHarvester struct {
	harvest  pagination.Harvest
	placeID  place.ID
	language string
	maxPages int
	calls    int
}

func (m *mockHarvester) FetchAll(_ context.Context, placeID place.ID, language string, maxPages int) pagination.Harvest {
	m.calls++
	m.placeID = placeID
	m.language = language
	m.maxPages = maxPages
	return m.harvest
}

type mockEmbedder struct {
	err   error
	texts []string
}

func (m *mockEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	m.texts = texts
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

type mockReviewStore struct {
	ensureErr error
	upsertErr error
	ensured   int
	records   []review.Record
}

func (m *mockReviewStore) EnsureCollection(_ context.Context) error {
	m.ensured++
	return m.ensureErr
}

func (m *mockReviewStore) Upsert(_ context.Context, records []review.Record) ([]string, error) {
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	m.records = append(m.records, records...)
	ids := make([]string, len(records))
	for i := range ids {
		ids[i] = fmt.Sprintf("id-%d", i)
	}
	return ids, nil
}

type mockTenantStore struct {
	saved map[string]review.Metadata
	err   error
}

func (m *mockTenantStore) Save(_ context.Context, tenantKey string, meta review.Metadata) error {
	if m.err != nil {
		return m.err
	}
	if m.saved == nil {
		m.saved = make(map[string]review.Metadata)
	}
	m.saved[tenantKey] = meta
	return nil
}

type fixture struct {
	harvester *mockHarvester
	embedder  *mockEmbedder
	reviews   *mockReviewStore
	tenants   *mockTenantStore
	svc       *Service
}

const testPlace = "0x89c25090129c363d:0x40c6a5770d25022b"

func harvestOf(n int, err error) pagination.Harvest {
	meta := review.Metadata{Title: "Joe's", Address: "7 Carmine St", PlaceID: testPlace}
	h := pagination.Harvest{Metadata: meta, TenantKey: meta.TenantKey(), Pages: 1 + n/8, Err: err}
	for i := 0; i < n; i++ {
		h.Reviews = append(h.Reviews, review.Raw{
			Seq:       i + 1,
			TenantKey: meta.TenantKey(),
			Snippet:   review.Snippet{Text: fmt.Sprintf("review %d", i+1), Details: review.Details{"food": 4}},
		})
	}
	return h
}

func newFixture(h pagination.Harvest) *fixture {
	f := &fixture{
		harvester: &mockHarvester{harvest: h},
		embedder:  &mockEmbedder{},
		reviews:   &mockReviewStore{},
		tenants:   &mockTenantStore{},
	}
	f.svc = New(f.harvester, sampling.New(), f.embedder, f.reviews, f.tenants, Config{}, zap.NewNop())
	return f
}

// --- Tests ---

func TestIngest_HappyPath(t *testing.T) {
	f := newFixture(harvestOf(120, nil))

	rep, err := f.svc.Ingest(context.Background(), Request{Place: testPlace, Count: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Available != 120 || rep.Selected != 50 || rep.Stored != 50 {
		t.Errorf("unexpected report %+v", rep)
	}
	if rep.Reduced {
		t.Error("must not be reduced")
	}
	if rep.TenantKey != "7 Carmine St" {
		t.Errorf("tenant = %q", rep.TenantKey)
	}
	if f.reviews.ensured != 1 {
		t.Errorf("EnsureCollection called %d times", f.reviews.ensured)
	}
	for _, rec := range f.reviews.records {
		if rec.TenantKey != "7 Carmine St" || len(rec.Vector) != 2 {
			t.Fatalf("bad record %+v", rec)
		}
	}
	if _, ok := f.tenants.saved["7 Carmine St"]; !ok {
		t.Error("tenant metadata not saved")
	}
	if f.harvester.language != "en" {
		t.Errorf("language = %q, want en", f.harvester.language)
	}
}

func TestIngest_ParsesURL(t *testing.T) {
	f := newFixture(harvestOf(3, nil))
	url := "https://www.google.com/maps/place/Joe's/data=!4m6!3m5!1s" + testPlace + "!8m2"

	if _, err := f.svc.Ingest(context.Background(), Request{Place: url}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.harvester.placeID.String() != testPlace {
		t.Errorf("place id = %q", f.harvester.placeID)
	}
}

func TestIngest_PageBudget(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantMax int
	}{
		{"default count", Request{Place: testPlace}, 8},
		{"small count", Request{Place: testPlace, Count: 5}, 3},
		{"max count", Request{Place: testPlace, Count: 100}, 14},
		{"explicit pages", Request{Place: testPlace, Count: 50, MaxPages: 2}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(harvestOf(3, nil))
			if _, err := f.svc.Ingest(context.Background(), tt.req); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f.harvester.maxPages != tt.wantMax {
				t.Errorf("maxPages = %d, want %d", f.harvester.maxPages, tt.wantMax)
			}
		})
	}
}

func TestIngest_ReducedPool(t *testing.T) {
	f := newFixture(harvestOf(5, nil))

	rep, err := f.svc.Ingest(context.Background(), Request{Place: testPlace, Count: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rep.Reduced || rep.Selected != 5 || rep.Stored != 5 {
		t.Errorf("unexpected report %+v", rep)
	}
}

func TestIngest_PartialHarvestStored(t *testing.T) {
	upstream := fmt.Errorf("%w: status 503", domain.ErrUpstream)
	f := newFixture(harvestOf(12, upstream))

	rep, err := f.svc.Ingest(context.Background(), Request{Place: testPlace, Count: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(rep.PartialError, domain.ErrUpstream) {
		t.Errorf("expected partial error, got %v", rep.PartialError)
	}
	if rep.Stored != 12 {
		t.Errorf("stored = %d, want 12", rep.Stored)
	}
}

func TestIngest_HarvestFailedEmpty(t *testing.T) {
	f := newFixture(pagination.Harvest{Err: domain.ErrMalformedResponse})

	_, err := f.svc.Ingest(context.Background(), Request{Place: testPlace})
	if !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
	if f.reviews.ensured != 0 {
		t.Error("nothing must be stored")
	}
}

func TestIngest_NoReviews(t *testing.T) {
	h := harvestOf(0, nil)
	h.Reviews = []review.Raw{{Seq: 1, TenantKey: h.TenantKey}} // empty snippet
	f := newFixture(h)

	_, err := f.svc.Ingest(context.Background(), Request{Place: testPlace})
	if !errors.Is(err, domain.ErrNoReviews) {
		t.Fatalf("expected ErrNoReviews, got %v", err)
	}
}

func TestIngest_DropsEmptySnippets(t *testing.T) {
	h := harvestOf(3, nil)
	h.Reviews = append(h.Reviews, review.Raw{Seq: 4, TenantKey: h.TenantKey})
	f := newFixture(h)

	rep, err := f.svc.Ingest(context.Background(), Request{Place: testPlace, Count: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Selected != 4 || rep.Stored != 3 {
		t.Errorf("selected=%d stored=%d, want 4/3", rep.Selected, rep.Stored)
	}
	if len(f.embedder.texts) != 3 {
		t.Errorf("embedded %d texts, want 3", len(f.embedder.texts))
	}
}

func TestIngest_DropsWhitespaceSnippets(t *testing.T) {
	h := harvestOf(2, nil)
	h.Reviews = append(h.Reviews,
		review.Raw{Seq: 3, TenantKey: h.TenantKey, Snippet: review.Snippet{Text: "   "}},
		review.Raw{Seq: 4, TenantKey: h.TenantKey, Snippet: review.Snippet{Text: "\n\t"}},
	)
	f := newFixture(h)

	rep, err := f.svc.Ingest(context.Background(), Request{Place: testPlace, Count: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Stored != 2 || len(f.embedder.texts) != 2 {
		t.Errorf("stored=%d embedded=%d, want 2/2", rep.Stored, len(f.embedder.texts))
	}
}

func TestIngest_SummaryCoversHarvest(t *testing.T) {
	h := harvestOf(10, nil)
	for i := range h.Reviews {
		h.Reviews[i].Rating = 4
		h.Reviews[i].Likes = 1
	}
	h.Reviews[0].Rating = 5
	h.Reviews[0].HasOwnerResponse = true
	h.Reviews[1].HasImages = true
	h.Topics = []review.Topic{{Keyword: "crust", Mentions: 5}}
	f := newFixture(h)

	// sample only 3 of 10, the summary must still see all 10
	rep, err := f.svc.Ingest(context.Background(), Request{Place: testPlace, Count: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sum := rep.Summary
	if sum.Total != 10 || sum.TotalLikes != 10 {
		t.Errorf("unexpected totals %+v", sum)
	}
	if sum.RatingDistribution[4] != 9 || sum.RatingDistribution[5] != 1 {
		t.Errorf("distribution = %v", sum.RatingDistribution)
	}
	if sum.AverageRating != 4.1 {
		t.Errorf("average = %v, want 4.1", sum.AverageRating)
	}
	if sum.WithImages != 1 || sum.WithOwnerResponse != 1 {
		t.Errorf("unexpected engagement %+v", sum)
	}
	if len(sum.Topics) != 1 {
		t.Errorf("topics = %+v", sum.Topics)
	}
}

func TestIngest_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"bad place", Request{Place: "not-an-id"}},
		{"empty place", Request{}},
		{"count too large", Request{Place: testPlace, Count: 101}},
		{"negative count", Request{Place: testPlace, Count: -1}},
		{"negative pages", Request{Place: testPlace, MaxPages: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(harvestOf(3, nil))
			_, err := f.svc.Ingest(context.Background(), tt.req)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if f.harvester.calls != 0 {
				t.Error("validation must happen before harvesting")
			}
		})
	}
}

func TestIngest_EmbeddingFailure(t *testing.T) {
	f := newFixture(harvestOf(3, nil))
	f.embedder.err = domain.ErrEmbeddingProviderError

	_, err := f.svc.Ingest(context.Background(), Request{Place: testPlace})
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
	if len(f.reviews.records) != 0 {
		t.Error("nothing must be stored after embedding failure")
	}
}

func TestIngest_StoreFailure(t *testing.T) {
	f := newFixture(harvestOf(3, nil))
	f.reviews.ensureErr = errors.New("FT.CREATE failed")

	if _, err := f.svc.Ingest(context.Background(), Request{Place: testPlace}); err == nil {
		t.Fatal("expected error")
	}
	if len(f.tenants.saved) != 0 {
		t.Error("metadata must not be saved when storage fails")
	}
}

func TestEstimatePages(t *testing.T) {
	tests := []struct{ count, want int }{
		{1, 3}, {8, 3}, {16, 4}, {50, 8}, {100, 14},
	}
	for _, tt := range tests {
		if got := EstimatePages(tt.count); got != tt.want {
			t.Errorf("EstimatePages(%d) = %d, want %d", tt.count, got, tt.want)
		}
	}
}
