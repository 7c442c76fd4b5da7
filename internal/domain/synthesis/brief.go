// Package synthesis describes what the text generation step receives.
package synthesis

import (
	"github.com/kailas-cloud/reviewdex/internal/domain/aggregate"
	"github.com/kailas-cloud/reviewdex/internal/domain/retrieval"
	"github.com/kailas-cloud/reviewdex/internal/domain/review"
)

// Brief bundles retrieval output for one user question.
type Brief struct {
	Metadata   review.Metadata
	Aggregates []aggregate.Aggregate
	Results    []retrieval.ScoredResult
	Question   string
	// CapReached tells the writer that more relevant reviews may exist.
	CapReached bool
}
