package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ===== Prometheus Metrics for the HTTP Server =====

var (
	// httpRequestsTotal counts handled requests.
	// Labels: route (matched pattern), method, status
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "odesolve",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	// httpRequestDuration measures handler latency.
	// Labels: route
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "odesolve",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// rejectedTotal counts requests turned away before reaching a handler.
	// Labels: reason (rate_limited, busy)
	rejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "odesolve",
			Subsystem: "http",
			Name:      "rejected_total",
			Help:      "Requests rejected by admission control",
		},
		[]string{"reason"},
	)

	// inflightSolves tracks pipelines currently holding a solve slot.
	inflightSolves = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "odesolve",
			Subsystem: "http",
			Name:      "inflight_solves",
			Help:      "Solve pipelines currently running",
		},
	)
)

func recordRequest(route, method string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func recordRejection(reason string) {
	rejectedTotal.WithLabelValues(reason).Inc()
}
