package ode

import (
	"math"

	"github.com/njchilds90/odesolve/symbolic"
)

// Sample points for numeric identity checks. They avoid 0, 1 and small
// integers so that removable singularities and coincidences are unlikely.
var samples = []float64{0.37, 0.81, 1.23, 1.71, 2.19, 0.59}

const tolerance = 1e-7

// env binds every name to a deterministic sample value for point i.
func env(names []string, i int) map[string]float64 {
	out := make(map[string]float64, len(names))
	for j, n := range names {
		out[n] = samples[(i+2*j)%len(samples)] + 0.13*float64(j)
	}
	return out
}

// vanishes reports whether e is zero at every sample point where it can be
// evaluated, together with the number of such points.
func vanishes(e symbolic.Expr) (bool, int) {
	e = symbolic.Simplify(e)
	if symbolic.IsZero(e) {
		return true, len(samples)
	}
	names := symbolic.SortedSymbols(e)
	terms := symbolic.Terms(e)
	defined := 0
	for i := range samples {
		vals := env(names, i)
		v, ok := symbolic.Evalf(e, vals)
		if !ok {
			continue
		}
		scale := 1.0
		for _, t := range terms {
			if tv, ok := symbolic.Evalf(t, vals); ok {
				scale += math.Abs(tv)
			}
		}
		defined++
		if math.Abs(v) > tolerance*scale {
			return false, defined
		}
	}
	return true, defined
}

// identicallyZero requires at least two defined sample points.
func identicallyZero(e symbolic.Expr) bool {
	ok, n := vanishes(e)
	return ok && n >= 2
}

// nonZeroAt evaluates e with the given bindings and reports whether the
// value is defined and away from zero.
func nonZeroAt(e symbolic.Expr, vals map[string]float64) bool {
	names := symbolic.SortedSymbols(e)
	full := env(names, 0)
	for k, v := range vals {
		full[k] = v
	}
	v, ok := symbolic.Evalf(e, full)
	return ok && math.Abs(v) > 1e-9
}
