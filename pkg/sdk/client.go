package reviewdex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxErrorBody caps how much of an undecodable error response is kept.
const maxErrorBody = 512

// Client is the reviewdex API entry point. It is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	obs     *observer
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{timeout: DefaultTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("reviewdex: invalid base url %q", baseURL)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  cfg.apiKey,
		http:    hc,
		obs:     obs,
	}, nil
}

// ResolvePlace extracts the place id from a raw id or a Google Maps URL.
func (c *Client) ResolvePlace(ctx context.Context, place string) (string, error) {
	var resp struct {
		PlaceID string `json:"place_id"`
	}
	err := c.do(ctx, "resolve", http.MethodPost, "/v1/places/resolve", map[string]string{"place": place}, &resp)
	if err != nil {
		return "", err
	}
	return resp.PlaceID, nil
}

// Ingest harvests, samples and stores reviews for a place.
func (c *Client) Ingest(ctx context.Context, req IngestRequest) (IngestReport, error) {
	var rep IngestReport
	err := c.do(ctx, "ingest", http.MethodPost, "/v1/places/ingest", req, &rep)
	return rep, err
}

// Tenant returns the stored metadata of an ingested place.
func (c *Client) Tenant(ctx context.Context, tenantKey string) (Metadata, error) {
	var meta Metadata
	path := "/v1/tenants?" + url.Values{"key": {tenantKey}}.Encode()
	err := c.do(ctx, "tenant", http.MethodGet, path, nil, &meta)
	return meta, err
}

// Search runs a similarity search within one tenant.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	var resp SearchResponse
	err := c.do(ctx, "search", http.MethodPost, "/v1/search", req, &resp)
	return resp, err
}

// Chat asks a question about a tenant or a place. A place is ingested on
// its first question only.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	var resp ChatResponse
	err := c.do(ctx, "chat", http.MethodPost, "/v1/chat", req, &resp)
	return resp, err
}

// Health checks the health of all server components. A degraded or
// unhealthy server is reported in the status, not as an error.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var hs HealthStatus
	err := c.do(ctx, "health", http.MethodGet, "/health", nil, &hs)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusServiceUnavailable && hs.Status != "" {
		return hs, nil
	}
	return hs, err
}

// do sends one request and records it under op with the response status.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) (err error) {
	start := time.Now()
	status := 0
	defer func() { c.obs.record(ctx, op, status, start, err) }()

	var body io.Reader = http.NoBody
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("reviewdex: encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("reviewdex: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("reviewdex: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	status = resp.StatusCode

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reviewdex: read response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		return decodeAPIError(resp.StatusCode, data, out)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("reviewdex: decode response: %w", err)
	}
	return nil
}

// decodeAPIError builds an APIError. The health endpoint carries its report
// in a 503 body, so out is filled when the body matches it.
func decodeAPIError(status int, data []byte, out any) error {
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err == nil && eb.Code != "" {
		return &APIError{Status: status, Code: eb.Code, Message: eb.Message}
	}
	if out != nil {
		_ = json.Unmarshal(data, out)
	}
	msg := string(data)
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	return &APIError{Status: status, Message: strings.TrimSpace(msg)}
}
