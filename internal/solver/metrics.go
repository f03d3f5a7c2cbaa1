package solver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/njchilds90/odesolve/ode"
)

// =============================================================================
// Prometheus Metrics for Strategy Attempts
// =============================================================================

var (
	// attemptsTotal counts engine solve attempts.
	// Labels: hint (ode hint or "unhinted"), result (success, failure, budget)
	attemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "odesolve",
		Subsystem: "solver",
		Name:      "attempts_total",
		Help:      "Solve attempts by hint and result",
	}, []string{"hint", "result"})

	// attemptDuration measures the wall time of one attempt.
	// Labels: hint
	attemptDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "odesolve",
		Subsystem: "solver",
		Name:      "attempt_duration_seconds",
		Help:      "Solve attempt latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
	}, []string{"hint"})

	// outcomesTotal counts orchestrator runs.
	// Labels: mode (auto or a strategy name), result (solved, exhausted)
	outcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "odesolve",
		Subsystem: "solver",
		Name:      "outcomes_total",
		Help:      "Orchestrator runs by mode and result",
	}, []string{"mode", "result"})
)

func hintLabel(h ode.Hint) string {
	if h == "" {
		return "unhinted"
	}
	return string(h)
}

func recordAttempt(h ode.Hint, result string, d time.Duration) {
	attemptsTotal.WithLabelValues(hintLabel(h), result).Inc()
	attemptDuration.WithLabelValues(hintLabel(h)).Observe(d.Seconds())
}

func recordOutcome(mode string, solved bool) {
	result := "exhausted"
	if solved {
		result = "solved"
	}
	outcomesTotal.WithLabelValues(mode, result).Inc()
}
