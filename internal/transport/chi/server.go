package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"

	gochi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/reviewdex/internal/domain"
	"github.com/kailas-cloud/reviewdex/internal/domain/aggregate"
	"github.com/kailas-cloud/reviewdex/internal/domain/place"
	"github.com/kailas-cloud/reviewdex/internal/domain/retrieval"
	"github.com/kailas-cloud/reviewdex/internal/domain/review"
	logpkg "github.com/kailas-cloud/reviewdex/internal/logger"
	answeruc "github.com/kailas-cloud/reviewdex/internal/usecase/answer"
	healthuc "github.com/kailas-cloud/reviewdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/reviewdex/internal/usecase/ingest"
)

const maxBodyBytes = 1 << 20

// Ingester stores sampled reviews for a place.
type Ingester interface {
	Ingest(ctx context.Context, req ingestuc.Request) (ingestuc.Report, error)
}

// Retriever runs tenant-scoped similarity search.
type Retriever interface {
	Retrieve(ctx context.Context, q retrieval.Query) retrieval.Outcome
}

// Answerer answers questions about a place.
type Answerer interface {
	Ask(ctx context.Context, req answeruc.Request) (answeruc.Answer, error)
}

// TenantReader loads stored place metadata.
type TenantReader interface {
	Get(ctx context.Context, tenantKey string) (review.Metadata, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the review API.
type Server struct {
	ingest        Ingester
	retrieval     Retriever
	answer        Answerer
	tenants       TenantReader
	health        HealthChecker
	fields        []string
	defaults      []retrieval.Option
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. fields are the detail fields
// aggregated by the search endpoint.
func NewServer(
	ingest Ingester,
	retrieval Retriever,
	answer Answerer,
	tenants TenantReader,
	health HealthChecker,
	fields []string,
	logger *zap.Logger,
) *Server {
	if len(fields) == 0 {
		fields = answeruc.DefaultFields
	}
	s := &Server{
		ingest:    ingest,
		retrieval: retrieval,
		answer:    answer,
		tenants:   tenants,
		health:    health,
		fields:    fields,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrNoReviews, http.StatusUnprocessableEntity, ErrorCodeNoReviews),
		sentinelHandler(domain.ErrUpstream, http.StatusBadGateway, ErrorCodeUpstreamError),
		sentinelHandler(domain.ErrMalformedResponse, http.StatusBadGateway, ErrorCodeUpstreamError),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, ErrorCodeEmbeddingProvider),
		sentinelHandler(domain.ErrSynthesis, http.StatusBadGateway, ErrorCodeSynthesisFailed),
	}
	return s
}

// WithRetrievalDefaults sets the search cap and threshold used when a request
// leaves them unset.
func (s *Server) WithRetrievalDefaults(resultCap int, threshold float64) *Server {
	s.defaults = []retrieval.Option{
		retrieval.WithResultCap(resultCap),
		retrieval.WithScoreThreshold(threshold),
	}
	return s
}

// Routes registers all handlers on r.
func (s *Server) Routes(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1", func(r gochi.Router) {
		r.Post("/places/resolve", s.ResolvePlace)
		r.Post("/places/ingest", s.IngestPlace)
		r.Get("/tenants", s.GetTenant)
		r.Post("/search", s.Search)
		r.Post("/chat", s.Chat)
	})
}

// ResolvePlace handles POST /v1/places/resolve.
func (s *Server) ResolvePlace(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := place.Parse(req.Place)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resolveResponse{PlaceID: id.String()})
}

// IngestPlace handles POST /v1/places/ingest.
func (s *Server) IngestPlace(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	rep, err := s.ingest.Ingest(ctx, ingestuc.Request{
		Place:    req.Place,
		Count:    req.Count,
		Language: req.Language,
		MaxPages: req.MaxPages,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, reportToDTO(rep))
}

// GetTenant handles GET /v1/tenants?key=...
func (s *Server) GetTenant(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "key query parameter is required")
		return
	}

	meta, err := s.tenants.Get(r.Context(), key)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, meta)
}

// Search handles POST /v1/search. Unlike chat, a failed retrieval is an error here.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	opts := slices.Clone(s.defaults)
	if req.ResultCap != nil {
		opts = append(opts, retrieval.WithResultCap(*req.ResultCap))
	}
	if req.ScoreThreshold != nil {
		opts = append(opts, retrieval.WithScoreThreshold(*req.ScoreThreshold))
	}
	q, err := retrieval.NewQuery(req.TenantKey, req.Query, opts...)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	if _, err := s.tenants.Get(r.Context(), q.TenantKey()); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	out := s.retrieval.Retrieve(ctx, q)
	setEmbeddingHeaders(w, usage)
	if !out.OK() {
		s.handleDomainError(w, r, out.Err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		TenantKey:  q.TenantKey(),
		Results:    resultsToDTO(out.Results),
		Fetched:    out.Fetched,
		CapReached: out.CapReached,
		Aggregates: aggregate.Summarize(s.fields, out.Results),
	})
}

// Chat handles POST /v1/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	ans, err := s.answer.Ask(ctx, answeruc.Request{
		TenantKey:      req.TenantKey,
		Place:          req.Place,
		Question:       req.Question,
		ResultCap:      req.ResultCap,
		ScoreThreshold: req.ScoreThreshold,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := chatResponse{
		Answer:     ans.Text,
		TenantKey:  ans.TenantKey,
		Metadata:   ans.Metadata,
		Aggregates: ans.Aggregates,
		Results:    resultsToDTO(ans.Results),
		CapReached: ans.CapReached,
	}
	if ans.Ingested != nil {
		rep := reportToDTO(*ans.Ingested)
		resp.Ingested = &rep
	}
	if ans.RetrievalError != nil {
		resp.Warnings = append(resp.Warnings, "retrieval unavailable: "+safeDomainMessage(ans.RetrievalError))
	}
	if ans.SynthesisError != nil {
		resp.Warnings = append(resp.Warnings, "synthesis unavailable: "+safeDomainMessage(ans.SynthesisError))
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	tokens, calls := usage.Snapshot()
	if calls > 0 {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(tokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrNotFound,
		domain.ErrNoReviews,
		domain.ErrUpstream,
		domain.ErrMalformedResponse,
		domain.ErrEmbeddingProviderError,
		domain.ErrSynthesis,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// validationHandler echoes the full message: validation errors only describe caller input.
func validationHandler(w http.ResponseWriter, err error, _ string) bool {
	if !errors.Is(err, domain.ErrValidation) {
		return false
	}
	writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContextOr(r.Context(), s.logger)
	logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
