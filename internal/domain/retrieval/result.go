// Package retrieval holds the tenant-scoped similarity search types.
package retrieval

import "github.com/kailas-cloud/reviewdex/internal/domain/review"

// ScoredResult is a single retrieval hit.
type ScoredResult struct {
	tenantKey string
	score     float64
	snippet   review.Snippet
}

// NewScoredResult creates a retrieval hit.
func NewScoredResult(tenantKey string, score float64, snippet review.Snippet) ScoredResult {
	return ScoredResult{tenantKey: tenantKey, score: score, snippet: snippet}
}

// TenantKey returns the tenant the hit belongs to.
func (r ScoredResult) TenantKey() string { return r.tenantKey }

// Score returns the similarity score in [0,1].
func (r ScoredResult) Score() float64 { return r.score }

// Text returns the review text.
func (r ScoredResult) Text() string { return r.snippet.Text }

// Details returns the review detail fields.
func (r ScoredResult) Details() review.Details { return r.snippet.Details }

// Outcome is the result of one retrieval. A failed retrieval has no results
// and a non-nil Err; callers decide whether to degrade or abort.
type Outcome struct {
	Results []ScoredResult
	// Fetched is the number of candidates returned by the store before filtering.
	Fetched int
	// CapReached advises that relevant results may have been cut off.
	CapReached bool
	Err        error
}

// Failed builds an empty outcome carrying the cause.
func Failed(err error) Outcome {
	return Outcome{Err: err}
}

// OK reports whether retrieval succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Filter drops hits below threshold and truncates to resultCap, preserving order.
func Filter(hits []ScoredResult, threshold float64, resultCap int) ([]ScoredResult, bool) {
	kept := make([]ScoredResult, 0, min(len(hits), resultCap))
	for _, h := range hits {
		if h.score < threshold {
			continue
		}
		kept = append(kept, h)
		if len(kept) == resultCap {
			break
		}
	}
	return kept, len(kept) == resultCap
}
