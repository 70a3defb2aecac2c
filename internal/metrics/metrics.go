// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// AnalysesTotal counts analyze calls by outcome.
	AnalysesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roof",
		Subsystem: "pipeline",
		Name:      "analyses_total",
		Help:      "Total number of analyze calls, labeled by result.",
	}, []string{"result"})

	// AnalysisDurationSeconds is end-to-end time per analyze call.
	AnalysisDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "roof",
		Subsystem: "pipeline",
		Name:      "analysis_duration_seconds",
		Help:      "End-to-end time to build a dossier.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"result"})

	// StageDegradedTotal counts stages that fell back to an empty section.
	StageDegradedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roof",
		Subsystem: "pipeline",
		Name:      "stage_degraded_total",
		Help:      "Total number of pipeline stages degraded to defaults, labeled by stage.",
	}, []string{"stage"})

	// ProviderFetchTotal counts imagery and street-level fetches by provider and result.
	ProviderFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roof",
		Subsystem: "provider",
		Name:      "fetch_total",
		Help:      "Total provider fetch attempts, labeled by provider and result.",
	}, []string{"provider", "result"})

	// ProviderFetchDurationSeconds is time per provider fetch.
	ProviderFetchDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "roof",
		Subsystem: "provider",
		Name:      "fetch_duration_seconds",
		Help:      "Time per provider fetch attempt.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
	}, []string{"provider"})

	// PlaceholderTotal counts dossiers built on synthesized imagery.
	PlaceholderTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "roof",
		Subsystem: "acquisition",
		Name:      "placeholder_total",
		Help:      "Total number of acquisitions that fell back to a generated placeholder.",
	})

	// StreetViewRejectedTotal counts street-level candidates dropped, by reason.
	StreetViewRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roof",
		Subsystem: "streetview",
		Name:      "rejected_total",
		Help:      "Total street-level candidates rejected, labeled by reason.",
	}, []string{"reason"})
)

// Register registers all collectors with the default registry. Safe to call more than once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			AnalysesTotal,
			AnalysisDurationSeconds,
			StageDegradedTotal,
			ProviderFetchTotal,
			ProviderFetchDurationSeconds,
			PlaceholderTotal,
			StreetViewRejectedTotal,
		)
	})
}
