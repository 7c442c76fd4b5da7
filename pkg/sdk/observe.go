package reviewdex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "reviewdex"
	subsystem = "client"
)

// Status classes recorded when no HTTP status is available.
const (
	classTransport = "transport"
	classCanceled  = "canceled"
)

// clientMetrics are keyed by API operation. Server error codes get their own
// counter so dashboards can tell a missing tenant from a broken upstream.
type clientMetrics struct {
	requests  *prometheus.CounterVec
	apiErrors *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

func newClientMetrics(reg prometheus.Registerer) (*clientMetrics, error) {
	requests, err := registerVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "requests_total",
		Help:      "API requests by operation and HTTP status class (2xx, 4xx, 5xx, transport, canceled).",
	}, []string{"operation", "class"}))
	if err != nil {
		return nil, err
	}
	apiErrors, err := registerVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "api_errors_total",
		Help:      "Non-2xx responses by operation and server error code.",
	}, []string{"operation", "code"}))
	if err != nil {
		return nil, err
	}
	// ingest paginates upstream, so the tail is long
	duration, err := registerVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_duration_seconds",
		Help:      "API request duration by operation.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"operation"}))
	if err != nil {
		return nil, err
	}
	return &clientMetrics{requests: requests, apiErrors: apiErrors, duration: duration}, nil
}

// registerVec registers c, returning the collector already registered under
// the same descriptor when two clients share a registerer.
func registerVec[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return c, fmt.Errorf("reviewdex: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return c, fmt.Errorf("reviewdex: metric registered with type %T", are.ExistingCollector)
	}
	return existing, nil
}

// observer records one API request. Both sinks are optional.
type observer struct {
	logger  *slog.Logger
	metrics *clientMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newClientMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

// record is called once per request. status is 0 when no response arrived.
func (o *observer) record(ctx context.Context, op string, status int, start time.Time, err error) {
	if o == nil || (o.logger == nil && o.metrics == nil) {
		return
	}
	dur := time.Since(start)
	class := statusClass(ctx, status)

	var code string
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		code = apiErr.Code
		if code == "" {
			code = "unknown"
		}
	}

	if o.metrics != nil {
		o.metrics.requests.WithLabelValues(op, class).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
		if code != "" {
			o.metrics.apiErrors.WithLabelValues(op, code).Inc()
		}
	}

	if o.logger == nil {
		return
	}
	attrs := []any{"op", op, "class", class, "duration", dur}
	switch {
	case err == nil:
		o.logger.DebugContext(ctx, "request completed", attrs...)
	case status >= 500 || status < 400:
		o.logger.WarnContext(ctx, "request failed", append(attrs, "code", code, "error", err)...)
	default:
		// 4xx это ошибка вызывающего, а не сервера
		o.logger.InfoContext(ctx, "request rejected", append(attrs, "code", code, "error", err)...)
	}
}

func statusClass(ctx context.Context, status int) string {
	if status == 0 {
		if ctx.Err() != nil {
			return classCanceled
		}
		return classTransport
	}
	return strconv.Itoa(status/100) + "xx"
}
