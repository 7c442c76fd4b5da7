package retrieval

import (
	"context"

	domret "github.com/kailas-cloud/reviewdex/internal/domain/retrieval"
)

// QueryEmbedder vectorizes a search query.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store runs tenant-filtered similarity search, best hits first.
type Store interface {
	Search(ctx context.Context, vector []float32, limit int, tenantKey string) ([]domret.ScoredResult, error)
}
