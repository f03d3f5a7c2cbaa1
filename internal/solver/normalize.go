package solver

import (
	"context"

	"github.com/njchilds90/odesolve/internal/engine"
	"github.com/njchilds90/odesolve/internal/trace"
)

// NormalizeSolution simplifies every branch of v. A branch that fails to
// simplify is kept as it was and the failure is noted in tr, so the result
// always has as many branches as v.
func NormalizeSolution(ctx context.Context, eng engine.Engine, v engine.Value, tr *trace.Trace) engine.Value {
	if v.Empty() {
		return engine.Value{}
	}
	out := make(engine.Value, len(v))
	for i, b := range v {
		s, err := eng.Simplify(ctx, b)
		if err != nil || s == nil {
			if err != nil {
				tr.Add("⚠️ Warning: could not simplify solution %d: %s", i+1, reason(err))
			}
			tr.Add("   Solution %d is shown without simplification.", i+1)
			out[i] = b
			continue
		}
		out[i] = s
	}
	return out
}
