// metrics.go - Prometheus metrics for the label matching pipeline

package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// ExternalCallsTotal counts recognition and generation calls by provider, purpose and status.
	ExternalCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labelmatch",
			Name:      "external_calls_total",
			Help:      "Total number of recognition and generation service calls",
		},
		[]string{"provider", "purpose", "status"},
	)

	ExternalCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "labelmatch",
			Name:      "external_call_duration_seconds",
			Help:      "Recognition and generation call duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "purpose"},
	)

	TokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labelmatch",
			Name:      "tokens_total",
			Help:      "Total generation tokens consumed",
		},
		[]string{"provider", "type"}, // "input" / "output"
	)

	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labelmatch",
			Name:      "resolutions_total",
			Help:      "Verified resolutions by terminal state",
		},
		[]string{"state"}, // confirmed / best_guess / no_match
	)

	VerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labelmatch",
			Name:      "verifications_total",
			Help:      "Pairwise image comparisons by outcome",
		},
		[]string{"outcome"}, // same / different / error
	)

	CatalogRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "labelmatch",
			Name:      "catalog_records",
			Help:      "Number of product records in the loaded catalog",
		},
	)
)

func init() {
	prometheus.MustRegister(ExternalCallsTotal)
	prometheus.MustRegister(ExternalCallDuration)
	prometheus.MustRegister(TokensTotal)
	prometheus.MustRegister(ResolutionsTotal)
	prometheus.MustRegister(VerificationsTotal)
	prometheus.MustRegister(CatalogRecords)
}
