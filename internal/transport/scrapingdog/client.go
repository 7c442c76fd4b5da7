// Package scrapingdog fetches Google Maps review pages from the scrapingdog API.
package scrapingdog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/reviewdex/internal/domain"
	"github.com/kailas-cloud/reviewdex/internal/domain/review"
	"github.com/kailas-cloud/reviewdex/internal/metrics"
	"github.com/kailas-cloud/reviewdex/internal/version"
)

// DefaultBaseURL is the Google Maps reviews endpoint.
const DefaultBaseURL = "https://api.scrapingdog.com/google_maps/reviews"

// maxErrorBody caps how much of a failed response is kept for the error message.
const maxErrorBody = 512

// Config holds scrapingdog client settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	// InitialBackoff is the first retry delay. Zero means 500ms.
	InitialBackoff time.Duration
	// RequestsPerSecond caps attempts across all concurrent harvests sharing
	// the client, retries included. Zero means unlimited.
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Logger            *zap.Logger
}

// Client requests review pages one cursor at a time.
type Client struct {
	apiKey         string
	baseURL        string
	maxRetries     int
	initialBackoff time.Duration
	limiter        *rate.Limiter
	http           *http.Client
	logger         *zap.Logger
}

// New creates a scrapingdog client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("scrapingdog api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &Client{
		apiKey:         cfg.APIKey,
		baseURL:        cfg.BaseURL,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		limiter:        limiter,
		http:           hc,
		logger:         logger,
	}, nil
}

type pageResponse struct {
	LocationDetails *locationDetails `json:"locationDetails"`
	Topics          []review.Topic   `json:"topics"`
	ReviewsResults  []reviewResult   `json:"reviews_results"`
	Pagination      struct {
		NextPageToken string `json:"next_page_token"`
	} `json:"pagination"`
}

type locationDetails struct {
	Title   string  `json:"title"`
	Address string  `json:"address"`
	Rating  float64 `json:"rating"`
	Reviews int     `json:"reviews"`
}

type reviewResult struct {
	Snippet  string            `json:"snippet"`
	Details  map[string]any    `json:"details"`
	Rating   float64           `json:"rating"`
	Likes    int               `json:"likes"`
	Images   []json.RawMessage `json:"images"`
	Response *struct {
		FromOwner string `json:"response_from_owner_string"`
	} `json:"response"`
}

// FetchPage requests one page of reviews. An empty cursor asks for the first page.
// Network errors, 429 and 5xx are retried with exponential backoff.
func (c *Client) FetchPage(ctx context.Context, placeID, language, cursor string) (review.Page, error) {
	reqURL := c.pageURL(placeID, language, cursor)

	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		if attempt > 1 {
			metrics.SourceRetriesTotal.Inc()
			c.logger.Debug("Retrying review page request",
				zap.String("place_id", placeID),
				zap.Int("attempt", attempt),
			)
		}
		var err error
		body, err = c.do(ctx, reqURL)
		return err
	}

	if err := backoff.Retry(op, c.backoff(ctx)); err != nil {
		metrics.SourcePagesTotal.WithLabelValues("error").Inc()
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return review.Page{}, fmt.Errorf("fetch page: %w", ctxErr)
		}
		return review.Page{}, err
	}

	page, err := decodePage(body)
	if err != nil {
		metrics.SourcePagesTotal.WithLabelValues("malformed").Inc()
		return review.Page{}, err
	}
	metrics.SourcePagesTotal.WithLabelValues("ok").Inc()
	return page, nil
}

func (c *Client) backoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialBackoff
	b.MaxInterval = 10 * c.initialBackoff
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxRetries)), ctx)
}

func (c *Client) pageURL(placeID, language, cursor string) string {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("data_id", placeID)
	q.Set("language", language)
	if cursor != "" {
		q.Set("next_page_token", cursor)
	}
	return c.baseURL + "?" + q.Encode()
}

// do performs one HTTP attempt. Non-retryable failures are wrapped in backoff.Permanent.
func (c *Client) do(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: %w", domain.ErrUpstream, err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "reviewdex/"+version.String())

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.SourceRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(fmt.Errorf("%w: %w", domain.ErrUpstream, err))
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err := fmt.Errorf("%w: status %d: %s", domain.ErrUpstream, resp.StatusCode, detail)
		if retryableStatus(resp.StatusCode) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", domain.ErrUpstream, err)
	}
	return body, nil
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func decodePage(body []byte) (review.Page, error) {
	var resp pageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return review.Page{}, fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
	}

	page := review.Page{
		Reviews:    make([]review.Snippet, 0, len(resp.ReviewsResults)),
		Topics:     resp.Topics,
		NextCursor: resp.Pagination.NextPageToken,
	}
	if ld := resp.LocationDetails; ld != nil {
		page.Metadata = review.Metadata{
			Title:       ld.Title,
			Address:     ld.Address,
			Rating:      ld.Rating,
			ReviewCount: ld.Reviews,
		}
	}
	for _, r := range resp.ReviewsResults {
		page.Reviews = append(page.Reviews, review.Snippet{
			Text:             r.Snippet,
			Details:          review.Details(r.Details),
			Rating:           int(r.Rating),
			Likes:            r.Likes,
			HasImages:        len(r.Images) > 0,
			HasOwnerResponse: r.Response != nil && r.Response.FromOwner != "",
		})
	}
	return page, nil
}
