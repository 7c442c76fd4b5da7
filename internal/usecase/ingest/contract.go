package ingest

import (
	"context"

	"github.com/kailas-cloud/reviewdex/internal/domain/place"
	"github.com/kailas-cloud/reviewdex/internal/domain/review"
	"github.com/kailas-cloud/reviewdex/internal/usecase/pagination"
	"github.com/kailas-cloud/reviewdex/internal/usecase/sampling"
)

// Harvester walks the upstream source for one place.
type Harvester interface {
	FetchAll(ctx context.Context, placeID place.ID, language string, maxPages int) pagination.Harvest
}

// Selector bounds the harvested pool.
type Selector interface {
	Select(pool []review.Raw, n int) (sampling.Selection, error)
}

// DocumentEmbedder vectorizes review texts for storage.
type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// ReviewStore persists embedded reviews.
type ReviewStore interface {
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, records []review.Record) ([]string, error)
}

// TenantStore persists the place metadata snapshot.
type TenantStore interface {
	Save(ctx context.Context, tenantKey string, meta review.Metadata) error
}
