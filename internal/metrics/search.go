package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Search Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelfsearch",
			Name:      "search_requests_total",
			Help:      "Total number of search requests by surface, route and outcome",
		},
		[]string{"surface", "route", "status"},
	)

	SemanticFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelfsearch",
			Name:      "semantic_fallbacks_total",
			Help:      "Semantic searches served by the keyword builder",
		},
		[]string{"reason"},
	)

	EngineRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shelfsearch",
			Name:      "engine_request_duration_seconds",
			Help:      "Document-search engine request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"index", "outcome"},
	)

	RelationalQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shelfsearch",
			Name:      "relational_query_duration_seconds",
			Help:      "Free-tier relational search duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"outcome"},
	)
)

var searchOnce sync.Once

// RegisterSearchMetrics registers the search metrics. Safe to call more than once.
func RegisterSearchMetrics() {
	searchOnce.Do(func() {
		prometheus.MustRegister(
			SearchRequestsTotal,
			SemanticFallbacksTotal,
			EngineRequestDuration,
			RelationalQueryDuration,
		)
	})
}
