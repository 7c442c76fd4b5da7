// Package pagination walks a cursor-paginated review source to exhaustion or a page cap.
package pagination

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/reviewdex/internal/domain/place"
	"github.com/kailas-cloud/reviewdex/internal/domain/review"
	"github.com/kailas-cloud/reviewdex/internal/metrics"
)

// DefaultPageDelay is the pause after each response before the next request.
const DefaultPageDelay = time.Second

// Termination describes why a pagination run stopped.
type Termination string

const (
	// Exhausted means the source returned no further cursor.
	Exhausted Termination = "exhausted"
	// PageCap means the caller page limit was reached.
	PageCap Termination = "page_cap"
	// Failed means a request failed or the caller cancelled.
	Failed Termination = "failed"
)

// Harvest is the result of one pagination run. On failure Reviews holds
// everything accumulated before the failing request and Err is set.
type Harvest struct {
	Reviews     []review.Raw
	Pages       int
	Metadata    review.Metadata
	Topics      []review.Topic
	TenantKey   string
	Termination Termination
	Err         error
}

// Exhausted reports whether the source ran out of pages.
func (h Harvest) Exhausted() bool { return h.Termination == Exhausted }

// Service drives the cursor loop.
type Service struct {
	source PageSource
	delay  time.Duration
	logger *zap.Logger
}

// New creates a pagination service. A non-positive delay disables the pause.
func New(source PageSource, delay time.Duration, logger *zap.Logger) *Service {
	if delay < 0 {
		delay = 0
	}
	return &Service{source: source, delay: delay, logger: logger}
}

// FetchAll requests pages sequentially until the cursor runs out or maxPages
// pages were fetched. maxPages <= 0 means no cap.
func (s *Service) FetchAll(ctx context.Context, placeID place.ID, language string, maxPages int) Harvest {
	var (
		h      Harvest
		cursor string
		seq    int
	)
	for {
		if err := ctx.Err(); err != nil {
			return s.finish(h, Failed, fmt.Errorf("fetch page %d: %w", h.Pages+1, err))
		}

		page, err := s.source.FetchPage(ctx, placeID.String(), language, cursor)
		if err != nil {
			return s.finish(h, Failed, fmt.Errorf("fetch page %d: %w", h.Pages+1, err))
		}

		if h.Pages == 0 {
			h.Metadata = page.Metadata
			h.Metadata.PlaceID = placeID.String()
			h.Topics = page.Topics
			h.TenantKey = h.Metadata.TenantKey()
		}
		h.Pages++

		for _, snip := range page.Reviews {
			seq++
			h.Reviews = append(h.Reviews, review.Raw{Seq: seq, TenantKey: h.TenantKey, Snippet: snip})
		}

		s.logger.Debug("Fetched review page",
			zap.String("place_id", placeID.String()),
			zap.Int("page", h.Pages),
			zap.Int("reviews", len(page.Reviews)),
			zap.Bool("has_next", page.NextCursor != ""),
		)

		if page.NextCursor == "" {
			return s.finish(h, Exhausted, nil)
		}
		if maxPages > 0 && h.Pages >= maxPages {
			return s.finish(h, PageCap, nil)
		}
		cursor = page.NextCursor

		// пауза считается от ответа, а не от начала запроса
		if err := pause(ctx, s.delay); err != nil {
			return s.finish(h, Failed, fmt.Errorf("wait for page %d: %w", h.Pages+1, err))
		}
	}
}

// pause sleeps for d after a response, returning ctx.Err() if the caller
// gives up first.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) finish(h Harvest, t Termination, err error) Harvest {
	h.Termination = t
	h.Err = err
	metrics.HarvestsTotal.WithLabelValues(string(t)).Inc()

	fields := []zap.Field{
		zap.String("tenant", h.TenantKey),
		zap.Int("pages", h.Pages),
		zap.Int("reviews", len(h.Reviews)),
		zap.String("termination", string(t)),
	}
	if err != nil {
		s.logger.Warn("Pagination stopped early", append(fields, zap.Error(err))...)
	} else {
		s.logger.Info("Pagination finished", fields...)
	}
	return h
}
