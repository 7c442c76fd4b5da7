package reviewdex

import (
	"fmt"

	"github.com/kailas-cloud/reviewdex/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrValidation             = domain.ErrValidation
	ErrNotFound               = domain.ErrNotFound
	ErrUpstream               = domain.ErrUpstream
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrSynthesis              = domain.ErrSynthesis
	ErrNoReviews              = domain.ErrNoReviews
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("reviewdex: %d %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap maps the server error code to a sentinel error.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "validation_failed", "bad_request":
		return ErrValidation
	case "not_found":
		return ErrNotFound
	case "upstream_error":
		return ErrUpstream
	case "embedding_provider_error":
		return ErrEmbeddingProviderError
	case "synthesis_failed":
		return ErrSynthesis
	case "no_reviews":
		return ErrNoReviews
	default:
		return nil
	}
}
