// Package ingest harvests, samples, embeds and stores reviews for one place.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/reviewdex/internal/domain"
	"github.com/kailas-cloud/reviewdex/internal/domain/place"
	"github.com/kailas-cloud/reviewdex/internal/domain/review"
)

// Sampling defaults.
const (
	DefaultCount = 50
	MaxCount     = 100
	// reviews per upstream page, used to size the page budget
	reviewsPerPage = 8
	minPages       = 3
)

// Request describes one ingestion run.
type Request struct {
	// Place is a raw place identifier or a map URL containing one.
	Place    string
	Count    int
	Language string
	// MaxPages <= 0 derives the page budget from Count.
	MaxPages int
}

// Report summarizes an ingestion run.
type Report struct {
	TenantKey string
	Metadata  review.Metadata
	Pages     int
	// Available is the number of reviews harvested before sampling.
	Available int
	Selected  int
	Stored    int
	Reduced   bool
	// Summary covers the whole harvested pool, not just the stored sample.
	Summary review.Summary
	// PartialError is set when pagination failed after some pages succeeded.
	PartialError error
}

// Config holds ingestion defaults.
type Config struct {
	DefaultCount int
	MaxCount     int
	Language     string
}

// Service orchestrates the ingestion path.
type Service struct {
	harvester Harvester
	selector  Selector
	embedder  DocumentEmbedder
	reviews   ReviewStore
	tenants   TenantStore
	cfg       Config
	logger    *zap.Logger
}

// New creates an ingestion service.
func New(
	harvester Harvester, selector Selector, embedder DocumentEmbedder,
	reviews ReviewStore, tenants TenantStore, cfg Config, logger *zap.Logger,
) *Service {
	if cfg.DefaultCount <= 0 {
		cfg.DefaultCount = DefaultCount
	}
	if cfg.MaxCount <= 0 {
		cfg.MaxCount = MaxCount
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	return &Service{
		harvester: harvester,
		selector:  selector,
		embedder:  embedder,
		reviews:   reviews,
		tenants:   tenants,
		cfg:       cfg,
		logger:    logger,
	}
}

// EstimatePages returns the page budget needed to collect roughly count reviews.
func EstimatePages(count int) int {
	return max(minPages, count/reviewsPerPage+2)
}

// Ingest runs one ingestion. A pagination failure after at least one review
// was collected is not fatal: the partial pool is stored and the failure is
// returned in Report.PartialError.
func (s *Service) Ingest(ctx context.Context, req Request) (Report, error) {
	placeID, err := place.Parse(req.Place)
	if err != nil {
		return Report{}, err
	}

	count := req.Count
	if count == 0 {
		count = s.cfg.DefaultCount
	}
	if count < 1 || count > s.cfg.MaxCount {
		return Report{}, fmt.Errorf(
			"%w: count must be between 1 and %d, got %d", domain.ErrValidation, s.cfg.MaxCount, req.Count,
		)
	}
	if req.MaxPages < 0 {
		return Report{}, fmt.Errorf("%w: max_pages must not be negative", domain.ErrValidation)
	}
	maxPages := req.MaxPages
	if maxPages == 0 {
		maxPages = EstimatePages(count)
	}
	language := req.Language
	if language == "" {
		language = s.cfg.Language
	}

	h := s.harvester.FetchAll(ctx, placeID, language, maxPages)
	if h.Err != nil && len(h.Reviews) == 0 {
		return Report{}, fmt.Errorf("harvest %s: %w", placeID, h.Err)
	}

	report := Report{
		TenantKey:    h.TenantKey,
		Metadata:     h.Metadata,
		Pages:        h.Pages,
		Available:    len(h.Reviews),
		Summary:      review.Summarize(h.Reviews, h.Topics),
		PartialError: h.Err,
	}

	sel, err := s.selector.Select(h.Reviews, count)
	if err != nil {
		return report, fmt.Errorf("select reviews: %w", err)
	}
	report.Selected = len(sel.Reviews)
	report.Reduced = sel.Reduced

	snippets := make([]review.Snippet, 0, len(sel.Reviews))
	for _, snip := range sel.Reviews {
		if !snip.IsEmpty() {
			snippets = append(snippets, snip)
		}
	}
	if len(snippets) == 0 {
		return report, fmt.Errorf("place %s: %w", placeID, domain.ErrNoReviews)
	}

	texts := make([]string, len(snippets))
	for i, snip := range snippets {
		texts[i] = snip.Text
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return report, fmt.Errorf("embed reviews: %w", err)
	}

	records := make([]review.Record, len(snippets))
	for i, snip := range snippets {
		records[i] = review.Record{TenantKey: h.TenantKey, Vector: vectors[i], Snippet: snip}
	}

	if err := s.reviews.EnsureCollection(ctx); err != nil {
		return report, fmt.Errorf("ensure collection: %w", err)
	}
	ids, err := s.reviews.Upsert(ctx, records)
	if err != nil {
		return report, fmt.Errorf("store reviews: %w", err)
	}
	report.Stored = len(ids)

	if err := s.tenants.Save(ctx, h.TenantKey, h.Metadata); err != nil {
		return report, fmt.Errorf("save tenant metadata: %w", err)
	}

	fields := []zap.Field{
		zap.String("tenant", h.TenantKey),
		zap.String("place_id", placeID.String()),
		zap.Int("pages", report.Pages),
		zap.Int("available", report.Available),
		zap.Int("stored", report.Stored),
		zap.Bool("reduced", report.Reduced),
	}
	if report.PartialError != nil {
		s.logger.Warn("Ingested partial harvest", append(fields, zap.Error(report.PartialError))...)
	} else {
		s.logger.Info("Ingested reviews", fields...)
	}
	return report, nil
}
