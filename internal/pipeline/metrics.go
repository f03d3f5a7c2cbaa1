package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ===== Prometheus Metrics for the Pipeline =====

var (
	// resolutionsTotal counts finished requests.
	// Labels: outcome (solved, unsolved, invalid, fault)
	resolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "odesolve",
			Subsystem: "pipeline",
			Name:      "resolutions_total",
			Help:      "Total solve requests by outcome",
		},
		[]string{"outcome"},
	)

	// resolutionDuration measures whole-request latency.
	// Labels: outcome
	resolutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "odesolve",
			Subsystem: "pipeline",
			Name:      "resolution_duration_seconds",
			Help:      "Duration of solve requests",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"outcome"},
	)
)

func recordResolution(o Outcome, d time.Duration) {
	resolutionsTotal.WithLabelValues(string(o)).Inc()
	resolutionDuration.WithLabelValues(string(o)).Observe(d.Seconds())
}
