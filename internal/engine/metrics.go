package engine

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ===== OpenTelemetry Metrics for the Engine =====
//
// Instruments are created against the global MeterProvider, which delegates
// to whatever provider observability.Init installs later. Without one they
// are no-ops.

var meter = otel.Meter("github.com/njchilds90/odesolve/internal/engine")

var (
	// callDuration measures every bounded engine call.
	// Attributes: op (parse, classify, solve[hint], ...), result (ok, error, budget, canceled)
	callDuration, _ = meter.Float64Histogram(
		"odesolve.engine.call.duration",
		metric.WithDescription("Duration of bounded engine calls"),
		metric.WithUnit("s"),
	)
)

func callResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrBudgetExceeded):
		return "budget"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

func recordCall(ctx context.Context, op string, d time.Duration, err error) {
	callDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("result", callResult(err)),
	))
}
