// Package retrieval runs the over-fetch, threshold and cap stage of the query path.
package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	domret "github.com/kailas-cloud/reviewdex/internal/domain/retrieval"
	"github.com/kailas-cloud/reviewdex/internal/metrics"
)

// Service retrieves relevant reviews for one tenant.
type Service struct {
	embedder QueryEmbedder
	store    Store
	logger   *zap.Logger
}

// New creates a retrieval service.
func New(embedder QueryEmbedder, store Store, logger *zap.Logger) *Service {
	return &Service{embedder: embedder, store: store, logger: logger}
}

// Retrieve embeds the query, over-fetches candidates for its tenant and keeps
// those at or above the threshold, up to the cap. Embedding and storage
// failures come back as an empty Outcome with Err set.
func (s *Service) Retrieve(ctx context.Context, q domret.Query) domret.Outcome {
	vector, err := s.embedder.EmbedQuery(ctx, q.Text())
	if err != nil {
		metrics.RetrievalFailuresTotal.WithLabelValues("embed").Inc()
		s.logger.Error("Query embedding failed", zap.String("tenant", q.TenantKey()), zap.Error(err))
		return domret.Failed(fmt.Errorf("embed query: %w", err))
	}

	hits, err := s.store.Search(ctx, vector, q.OverFetchLimit(), q.TenantKey())
	if err != nil {
		metrics.RetrievalFailuresTotal.WithLabelValues("search").Inc()
		s.logger.Error("Review search failed", zap.String("tenant", q.TenantKey()), zap.Error(err))
		return domret.Failed(fmt.Errorf("search reviews: %w", err))
	}

	results, capReached := domret.Filter(hits, q.ScoreThreshold(), q.ResultCap())

	metrics.RetrievalHitsTotal.WithLabelValues("fetched").Add(float64(len(hits)))
	metrics.RetrievalHitsTotal.WithLabelValues("kept").Add(float64(len(results)))

	s.logger.Debug("Retrieval finished",
		zap.String("tenant", q.TenantKey()),
		zap.Int("fetched", len(hits)),
		zap.Int("kept", len(results)),
		zap.Float64("threshold", q.ScoreThreshold()),
	)
	if capReached {
		metrics.RetrievalCapReachedTotal.Inc()
		s.logger.Warn("Retrieval hit the result cap, consider a higher threshold",
			zap.String("tenant", q.TenantKey()),
			zap.Int("cap", q.ResultCap()),
		)
	}

	return domret.Outcome{Results: results, Fetched: len(hits), CapReached: capReached}
}
