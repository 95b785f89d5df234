package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Query embedding metrics. Only queries are embedded here; documents are
// vectorized by the indexing pipeline.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelfsearch",
			Name:      "embedding_requests_total",
			Help:      "Query embedding requests sent to the provider",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shelfsearch",
			Name:      "embedding_request_duration_seconds",
			Help:      "Query embedding provider latency in seconds",
			Buckets:   []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"provider", "model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelfsearch",
			Name:      "embedding_tokens_total",
			Help:      "Provider tokens consumed by query embeddings",
		},
		[]string{"provider", "model", "type"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelfsearch",
			Name:      "embedding_errors_total",
			Help:      "Query embedding failures by error type",
		},
		[]string{"provider", "model", "error_type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelfsearch",
			Name:      "embedding_cache_total",
			Help:      "Query embedding cache lookups",
		},
		[]string{"layer", "result"}, // memory|redis, hit|miss
	)
)

var embeddingOnce sync.Once

// RegisterEmbeddingMetrics registers the query embedding metrics. Safe to call more than once.
func RegisterEmbeddingMetrics() {
	embeddingOnce.Do(func() {
		prometheus.MustRegister(
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingErrorsTotal,
			EmbeddingCacheTotal,
		)
	})
}
