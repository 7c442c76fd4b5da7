// Package answer turns a question about a place into aggregated, grounded output.
package answer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/reviewdex/internal/domain"
	"github.com/kailas-cloud/reviewdex/internal/domain/aggregate"
	"github.com/kailas-cloud/reviewdex/internal/domain/place"
	"github.com/kailas-cloud/reviewdex/internal/domain/retrieval"
	"github.com/kailas-cloud/reviewdex/internal/domain/review"
	"github.com/kailas-cloud/reviewdex/internal/domain/synthesis"
	"github.com/kailas-cloud/reviewdex/internal/usecase/ingest"
)

// DefaultFields are the detail fields averaged for every answer.
var DefaultFields = []string{"food", "service", "atmosphere"}

// Request is one question. Exactly one of TenantKey and Place identifies the
// place; a Place without a stored tenant is ingested before answering.
type Request struct {
	TenantKey string
	Place     string
	Question  string
	// ResultCap and ScoreThreshold fall back to retrieval defaults when nil.
	ResultCap      *int
	ScoreThreshold *float64
}

// Answer is the grounded result for one question.
type Answer struct {
	TenantKey  string
	Metadata   review.Metadata
	Aggregates []aggregate.Aggregate
	Results    []retrieval.ScoredResult
	CapReached bool
	// Text is empty when no synthesizer is configured or synthesis failed.
	Text string
	// Ingested is set only when the place was ingested for this request.
	Ingested *ingest.Report
	// RetrievalError and SynthesisError report degraded stages.
	RetrievalError error
	SynthesisError error
}

// Service answers questions about ingested places.
type Service struct {
	ingester    Ingester
	retriever   Retriever
	tenants     TenantReader
	synthesizer Synthesizer
	fields      []string
	defaults    []retrieval.Option
	logger      *zap.Logger
}

// New creates an answer service. synthesizer may be nil.
func New(
	ingester Ingester, retriever Retriever, tenants TenantReader,
	synthesizer Synthesizer, fields []string, logger *zap.Logger,
) *Service {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	return &Service{
		ingester:    ingester,
		retriever:   retriever,
		tenants:     tenants,
		synthesizer: synthesizer,
		fields:      fields,
		logger:      logger,
	}
}

// WithDefaults sets the result cap and score threshold used when a request
// leaves them unset.
func (s *Service) WithDefaults(resultCap int, threshold float64) *Service {
	s.defaults = []retrieval.Option{
		retrieval.WithResultCap(resultCap),
		retrieval.WithScoreThreshold(threshold),
	}
	return s
}

// Ask resolves the tenant, retrieves relevant reviews, aggregates them and
// optionally synthesizes prose. Retrieval and synthesis failures degrade the
// answer instead of failing it.
func (s *Service) Ask(ctx context.Context, req Request) (Answer, error) {
	tenantKey := strings.TrimSpace(req.TenantKey)
	placeInput := strings.TrimSpace(req.Place)
	if (tenantKey == "") == (placeInput == "") {
		return Answer{}, fmt.Errorf("%w: exactly one of tenant_key and place is required", domain.ErrValidation)
	}

	opts := queryOptions(s.defaults, req)
	// валидируем вопрос до любых сетевых вызовов
	if _, err := retrieval.NewQuery(tenantKey+placeInput, req.Question, opts...); err != nil {
		return Answer{}, err
	}

	var ans Answer
	if tenantKey == "" {
		placeID, err := place.Parse(placeInput)
		if err != nil {
			return Answer{}, err
		}
		key, report, err := s.resolvePlace(ctx, placeID)
		if err != nil {
			return Answer{}, err
		}
		ans.Ingested = report
		tenantKey = key
	}
	ans.TenantKey = tenantKey

	meta, err := s.tenants.Get(ctx, tenantKey)
	if err != nil {
		return Answer{}, fmt.Errorf("tenant %q: %w", tenantKey, err)
	}
	ans.Metadata = meta

	q, err := retrieval.NewQuery(tenantKey, req.Question, opts...)
	if err != nil {
		return Answer{}, err
	}

	out := s.retriever.Retrieve(ctx, q)
	if !out.OK() {
		ans.RetrievalError = out.Err
	}
	ans.Results = out.Results
	ans.CapReached = out.CapReached
	ans.Aggregates = aggregate.Summarize(s.fields, out.Results)

	if s.synthesizer == nil {
		return ans, nil
	}

	text, err := s.synthesizer.Synthesize(ctx, synthesis.Brief{
		Metadata:   meta,
		Aggregates: ans.Aggregates,
		Results:    ans.Results,
		Question:   q.Text(),
		CapReached: out.CapReached,
	})
	if err != nil {
		s.logger.Error("Synthesis failed", zap.String("tenant", tenantKey), zap.Error(err))
		ans.SynthesisError = err
		return ans, nil
	}
	ans.Text = text
	return ans, nil
}

// resolvePlace returns the stored tenant for placeID, ingesting the place
// only when no tenant is stored yet.
func (s *Service) resolvePlace(ctx context.Context, placeID place.ID) (string, *ingest.Report, error) {
	key, err := s.tenants.TenantForPlace(ctx, placeID.String())
	switch {
	case err == nil:
		return key, nil, nil
	case !errors.Is(err, domain.ErrNotFound):
		return "", nil, fmt.Errorf("resolve place %s: %w", placeID, err)
	}

	report, err := s.ingester.Ingest(ctx, ingest.Request{Place: placeID.String()})
	if err != nil {
		return "", nil, fmt.Errorf("ingest place: %w", err)
	}
	return report.TenantKey, &report, nil
}

func queryOptions(defaults []retrieval.Option, req Request) []retrieval.Option {
	opts := slices.Clone(defaults)
	if req.ResultCap != nil {
		opts = append(opts, retrieval.WithResultCap(*req.ResultCap))
	}
	if req.ScoreThreshold != nil {
		opts = append(opts, retrieval.WithScoreThreshold(*req.ScoreThreshold))
	}
	return opts
}
