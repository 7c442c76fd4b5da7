package answer

import (
	"context"

	"github.com/kailas-cloud/reviewdex/internal/domain/retrieval"
	"github.com/kailas-cloud/reviewdex/internal/domain/review"
	"github.com/kailas-cloud/reviewdex/internal/domain/synthesis"
	"github.com/kailas-cloud/reviewdex/internal/usecase/ingest"
)

// Ingester stores reviews for a place that has no tenant yet.
type Ingester interface {
	Ingest(ctx context.Context, req ingest.Request) (ingest.Report, error)
}

// Retriever runs the tenant-scoped retrieval stage.
type Retriever interface {
	Retrieve(ctx context.Context, q retrieval.Query) retrieval.Outcome
}

// TenantReader loads the stored place metadata and resolves already
// ingested places to their tenant key.
type TenantReader interface {
	Get(ctx context.Context, tenantKey string) (review.Metadata, error)
	// TenantForPlace returns domain.ErrNotFound for places never ingested.
	TenantForPlace(ctx context.Context, placeID string) (string, error)
}

// Synthesizer writes prose from a retrieval brief.
type Synthesizer interface {
	Synthesize(ctx context.Context, brief synthesis.Brief) (string, error)
}
