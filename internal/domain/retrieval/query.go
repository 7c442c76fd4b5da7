package retrieval

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/reviewdex/internal/domain"
)

// Retrieval limits.
const (
	DefaultResultCap      = 35
	DefaultScoreThreshold = 0.50
	// MaxOverFetch bounds the number of candidates requested from the store.
	MaxOverFetch = 100
	// OverFetchFactor multiplies the cap to leave room for threshold filtering.
	OverFetchFactor = 3
	// MaxResultCap keeps the over-fetch strictly larger than the cap.
	MaxResultCap = MaxOverFetch - 1
	// MaxQueryLength is counted in characters, not bytes.
	MaxQueryLength = 4096
)

// Query is a validated tenant-scoped retrieval request.
type Query struct {
	tenantKey string
	text      string
	resultCap int
	threshold float64
}

// Option customizes a Query.
type Option func(*Query)

// WithResultCap overrides the maximum number of results.
func WithResultCap(n int) Option {
	return func(q *Query) { q.resultCap = n }
}

// WithScoreThreshold overrides the minimum similarity, inclusive.
func WithScoreThreshold(t float64) Option {
	return func(q *Query) { q.threshold = t }
}

// NewQuery validates retrieval parameters. Defaults: cap 35, threshold 0.50.
func NewQuery(tenantKey, text string, opts ...Option) (Query, error) {
	q := Query{
		tenantKey: tenantKey,
		text:      strings.TrimSpace(text),
		resultCap: DefaultResultCap,
		threshold: DefaultScoreThreshold,
	}
	for _, opt := range opts {
		opt(&q)
	}

	if q.tenantKey == "" {
		return Query{}, fmt.Errorf("%w: tenant key is required", domain.ErrValidation)
	}
	if q.text == "" {
		return Query{}, fmt.Errorf("%w: query is required", domain.ErrValidation)
	}
	if utf8.RuneCountInString(q.text) > MaxQueryLength {
		return Query{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrValidation, MaxQueryLength)
	}
	if q.resultCap < 1 || q.resultCap > MaxResultCap {
		return Query{}, fmt.Errorf(
			"%w: result cap must be between 1 and %d, got %d", domain.ErrValidation, MaxResultCap, q.resultCap,
		)
	}
	// NaN fails both comparisons
	if !(q.threshold >= 0 && q.threshold <= 1) {
		return Query{}, fmt.Errorf("%w: score threshold must be between 0 and 1", domain.ErrValidation)
	}
	return q, nil
}

// TenantKey returns the tenant the search is restricted to.
func (q Query) TenantKey() string { return q.tenantKey }

// Text returns the natural-language query.
func (q Query) Text() string { return q.text }

// ResultCap returns the maximum number of results.
func (q Query) ResultCap() int { return q.resultCap }

// ScoreThreshold returns the inclusive minimum similarity.
func (q Query) ScoreThreshold() float64 { return q.threshold }

// OverFetchLimit returns the candidate count requested from the store.
func (q Query) OverFetchLimit() int {
	return min(MaxOverFetch, q.resultCap*OverFetchFactor)
}
