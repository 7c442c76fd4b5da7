package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Review source and retrieval pipeline metrics.
var (
	SourcePagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_pages_total",
			Help:      "Review source page requests by outcome",
		},
		[]string{"status"},
	)

	SourceRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_retries_total",
			Help:      "Retried review source requests",
		},
	)

	SourceRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Review source request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	HarvestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "harvests_total",
			Help:      "Pagination runs by termination reason",
		},
		[]string{"termination"}, // exhausted, page_cap, failed
	)

	RetrievalHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_hits_total",
			Help:      "Retrieval candidates fetched from the store and kept after filtering",
		},
		[]string{"stage"}, // fetched, kept
	)

	RetrievalCapReachedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_cap_reached_total",
			Help:      "Retrievals whose result count hit the cap",
		},
	)

	RetrievalFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_failures_total",
			Help:      "Retrievals degraded to an empty result",
		},
		[]string{"stage"}, // embed, search
	)
)

var pipelineOnce sync.Once

// RegisterPipelineMetrics registers source and retrieval metrics. Safe to call repeatedly.
func RegisterPipelineMetrics() {
	pipelineOnce.Do(func() {
		prometheus.MustRegister(
			SourcePagesTotal,
			SourceRetriesTotal,
			SourceRequestDuration,
			HarvestsTotal,
			RetrievalHitsTotal,
			RetrievalCapReachedTotal,
			RetrievalFailuresTotal,
		)
	})
}
