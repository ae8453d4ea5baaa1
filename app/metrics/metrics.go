package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecomputeTotal counts derived-state recomputations by outcome (ok, cached, canceled, error).
	RecomputeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridquery_recompute_total",
			Help: "Total number of pipeline recomputations",
		},
		[]string{"outcome"},
	)
	// RecomputeDuration is the latency of a full recomputation.
	RecomputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridquery_recompute_duration_seconds",
			Help:    "Pipeline recompute latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)
	// StageDuration is the latency of one computed pipeline stage.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridquery_stage_duration_seconds",
			Help:    "Pipeline stage latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
	// CacheLookups counts cache lookups by tier (state, stage) and result (hit, miss).
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridquery_cache_lookups_total",
			Help: "Total number of derived-state cache lookups",
		},
		[]string{"tier", "result"},
	)
	// CacheEvictions counts LRU evictions.
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gridquery_cache_evictions_total",
			Help: "Total number of cache entries evicted",
		},
	)
	// ProviderCalls counts server-side data provider calls by status (ok, error, stale).
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridquery_provider_calls_total",
			Help: "Total number of data provider refreshes",
		},
		[]string{"status"},
	)
	// RowsLoaded counts rows read from files by format.
	RowsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridquery_rows_loaded_total",
			Help: "Total number of rows loaded from data files",
		},
		[]string{"format"},
	)
)
