package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache metrics, labelled by cache name (mapping, bulk, validation, search).
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gameshelf_cache_hits_total",
			Help: "Total number of resolution cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gameshelf_cache_misses_total",
			Help: "Total number of resolution cache misses, including expired hits",
		},
		[]string{"cache"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gameshelf_cache_evictions_total",
			Help: "Total number of cache evictions",
		},
		[]string{"cache", "reason"}, // "expired", "capacity", "cleared"
	)

	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gameshelf_cache_entries",
			Help: "Number of entries physically stored in each cache",
		},
		[]string{"cache"},
	)

	// Upstream catalog metrics.
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gameshelf_upstream_requests_total",
			Help: "Total number of upstream catalog calls",
		},
		[]string{"source", "operation", "result"}, // result: "ok", "not_found", "error", "rejected"
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gameshelf_upstream_duration_seconds",
			Help:    "Duration of upstream catalog calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source", "operation"},
	)

	// Circuit breaker metrics.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gameshelf_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"source"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gameshelf_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"source", "from", "to"},
	)

	// Resolution metrics.
	MappingResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gameshelf_mapping_resolutions_total",
			Help: "Total number of ID mapping resolutions by method",
		},
		[]string{"method"}, // "override", "cache", "fuzzy", "unmatched", "error"
	)

	FallbackRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gameshelf_fallback_records_total",
			Help: "Total number of synthesized fallback records",
		},
		[]string{"kind"}, // "not_found", "unavailable"
	)

	ValidationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gameshelf_validation_outcomes_total",
			Help: "Total number of validation outcomes by result",
		},
		[]string{"result"}, // "valid", "not_found", "api_error", "invalid_id"
	)

	SearchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gameshelf_search_requests_total",
			Help: "Total number of unified search requests",
		},
		[]string{"strategy", "result"},
	)

	PreferenceWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gameshelf_preference_writes_total",
			Help: "Total number of preference tier writes",
		},
		[]string{"tier", "result"},
	)

	// API metrics.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gameshelf_api_request_duration_seconds",
			Help:    "Duration of HTTP API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "status"},
	)
)

// RecordUpstream records the outcome and latency of one upstream catalog call.
func RecordUpstream(source, operation, result string, elapsed time.Duration) {
	UpstreamRequests.WithLabelValues(source, operation, result).Inc()
	UpstreamDuration.WithLabelValues(source, operation).Observe(elapsed.Seconds())
}
