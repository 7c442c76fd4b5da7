package chi

import (
	"github.com/kailas-cloud/reviewdex/internal/domain/aggregate"
	"github.com/kailas-cloud/reviewdex/internal/domain/retrieval"
	"github.com/kailas-cloud/reviewdex/internal/domain/review"
	"github.com/kailas-cloud/reviewdex/internal/usecase/ingest"
)

// ErrorCode is the machine-readable error kind returned to clients.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest        ErrorCode = "bad_request"
	ErrorCodeUnauthorized      ErrorCode = "unauthorized"
	ErrorCodeValidationFailed  ErrorCode = "validation_failed"
	ErrorCodeNotFound          ErrorCode = "not_found"
	ErrorCodeNoReviews         ErrorCode = "no_reviews"
	ErrorCodeUpstreamError     ErrorCode = "upstream_error"
	ErrorCodeEmbeddingProvider ErrorCode = "embedding_provider_error"
	ErrorCodeSynthesisFailed   ErrorCode = "synthesis_failed"
	ErrorCodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

type resolveRequest struct {
	Place string `json:"place"`
}

type resolveResponse struct {
	PlaceID string `json:"place_id"`
}

type ingestRequest struct {
	Place    string `json:"place"`
	Count    int    `json:"count,omitempty"`
	Language string `json:"language,omitempty"`
	MaxPages int    `json:"max_pages,omitempty"`
}

type reviewStats struct {
	TotalAvailable int    `json:"total_available_reviews"`
	Selected       int    `json:"selected_reviews_count"`
	Stored         int    `json:"stored_reviews_count"`
	SamplingMethod string `json:"sampling_method"`
	Reduced        bool   `json:"reduced"`
}

type ingestResponse struct {
	TenantKey    string          `json:"tenant_key"`
	Metadata     review.Metadata `json:"metadata"`
	Pages        int             `json:"pages"`
	Stats        reviewStats     `json:"review_stats"`
	Summary      review.Summary  `json:"summary"`
	PartialError string          `json:"partial_error,omitempty"`
}

type searchRequest struct {
	TenantKey      string   `json:"tenant_key"`
	Query          string   `json:"query"`
	ResultCap      *int     `json:"result_cap,omitempty"`
	ScoreThreshold *float64 `json:"score_threshold,omitempty"`
}

type resultItem struct {
	TenantKey string         `json:"tenant_key"`
	Text      string         `json:"snippet"`
	Details   review.Details `json:"details"`
	Score     float64        `json:"score"`
}

type searchResponse struct {
	TenantKey  string                `json:"tenant_key"`
	Results    []resultItem          `json:"results"`
	Fetched    int                   `json:"fetched"`
	CapReached bool                  `json:"cap_reached"`
	Aggregates []aggregate.Aggregate `json:"aggregates"`
}

type chatRequest struct {
	TenantKey      string   `json:"tenant_key,omitempty"`
	Place          string   `json:"place,omitempty"`
	Question       string   `json:"question"`
	ResultCap      *int     `json:"result_cap,omitempty"`
	ScoreThreshold *float64 `json:"score_threshold,omitempty"`
}

type chatResponse struct {
	Answer     string                `json:"answer"`
	TenantKey  string                `json:"tenant_key"`
	Metadata   review.Metadata       `json:"metadata"`
	Aggregates []aggregate.Aggregate `json:"aggregates"`
	Results    []resultItem          `json:"results"`
	CapReached bool                  `json:"cap_reached"`
	Ingested   *ingestResponse       `json:"ingested,omitempty"`
	Warnings   []string              `json:"warnings,omitempty"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

const samplingMethodRandom = "random"

func resultsToDTO(results []retrieval.ScoredResult) []resultItem {
	items := make([]resultItem, len(results))
	for i, r := range results {
		details := r.Details()
		if details == nil {
			details = review.Details{}
		}
		items[i] = resultItem{TenantKey: r.TenantKey(), Text: r.Text(), Details: details, Score: r.Score()}
	}
	return items
}

func reportToDTO(rep ingest.Report) ingestResponse {
	resp := ingestResponse{
		TenantKey: rep.TenantKey,
		Metadata:  rep.Metadata,
		Pages:     rep.Pages,
		Stats: reviewStats{
			TotalAvailable: rep.Available,
			Selected:       rep.Selected,
			Stored:         rep.Stored,
			SamplingMethod: samplingMethodRandom,
			Reduced:        rep.Reduced,
		},
		Summary: rep.Summary,
	}
	if rep.PartialError != nil {
		resp.PartialError = safeDomainMessage(rep.PartialError)
	}
	return resp
}
