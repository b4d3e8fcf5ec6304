// Package metrics provides Prometheus metrics for the forecast pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wonny/supplycast/internal/contracts"
)

var (
	// StageItemsTotal tracks processed work items by stage and outcome
	StageItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "supplycast",
			Subsystem: "pipeline",
			Name:      "items_total",
			Help:      "Total number of work items processed by stage and outcome",
		},
		[]string{"stage", "outcome", "kind"},
	)

	// StageDuration tracks one stage batch duration in seconds
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "supplycast",
			Subsystem: "pipeline",
			Name:      "batch_duration_seconds",
			Help:      "Duration of one stage batch in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"stage"},
	)

	// PublishedRowsTotal tracks rows committed to the result table
	PublishedRowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "supplycast",
			Subsystem: "publication",
			Name:      "rows_total",
			Help:      "Total number of result rows committed downstream",
		},
	)

	// ChartsRenderedTotal tracks rendered charts by result
	ChartsRenderedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "supplycast",
			Subsystem: "chart",
			Name:      "rendered_total",
			Help:      "Total number of diagnostic charts by result",
		},
		[]string{"result"},
	)

	// StalledClaims is the number of executes left at a claim status by the last watchdog pass
	StalledClaims = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "supplycast",
			Subsystem: "watchdog",
			Name:      "stalled_claims",
			Help:      "Executes found at a stale claim status in the last watchdog pass",
		},
		[]string{"status"},
	)
)

// ObserveBatch records one stage batch report
func ObserveBatch(r *contracts.BatchReport) {
	for _, item := range r.Items {
		StageItemsTotal.WithLabelValues(r.Stage, string(item.Outcome), string(item.Kind)).Inc()
	}
	end := r.EndedAt
	if end.IsZero() {
		end = time.Now()
	}
	StageDuration.WithLabelValues(r.Stage).Observe(end.Sub(r.StartedAt).Seconds())
}

// Handler returns the /metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
