// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkOrdersProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wo_processed_total",
			Help: "Total number of work orders processed, by verdict",
		},
		[]string{"verdict"},
	)

	WorkOrdersFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wo_failed_total",
			Help: "Total number of work order rows that failed processing",
		},
		[]string{"error_code"},
	)

	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "wo_phase_duration_seconds",
			Help: "Duration of each pipeline phase in seconds",
		},
		[]string{"phase"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wo_cache_lookups_total",
			Help: "Pipeline text-cache lookups, by outcome",
		},
		[]string{"outcome"},
	)

	CatalogMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wo_catalog_matches_total",
			Help: "Catalog matcher calls, by result (matched, no_match)",
		},
		[]string{"result"},
	)
)
