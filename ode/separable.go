package ode

import (
	"fmt"

	"github.com/njchilds90/odesolve/symbolic"
)

// separate splits F(x, y) as f(x) * g(y).
func separate(F symbolic.Expr, x string) (f, g symbolic.Expr, ok bool) {
	if !symbolic.Contains(F, ySym) {
		return F, symbolic.N(1), true
	}
	if !symbolic.Contains(F, x) {
		return symbolic.N(1), F, true
	}
	var xs, ys []symbolic.Expr
	mixed := false
	for _, fac := range symbolic.Factors(F) {
		switch {
		case symbolic.Contains(fac, ySym) && symbolic.Contains(fac, x):
			mixed = true
		case symbolic.Contains(fac, ySym):
			ys = append(ys, fac)
		default:
			xs = append(xs, fac)
		}
	}
	if !mixed {
		return symbolic.MulOf(xs...), symbolic.MulOf(ys...), true
	}
	// F(x, y) F(x0, y0) = F(x, y0) F(x0, y) holds exactly when F separates.
	for _, x0 := range anchors {
		for _, y0 := range anchors {
			c := symbolic.SubAll(F, map[string]symbolic.Expr{x: x0, ySym: y0})
			if !nonZeroAt(c, nil) {
				continue
			}
			f := symbolic.Sub(F, ySym, y0)
			g := symbolic.Quo(symbolic.Sub(F, x, x0), c)
			if identicallyZero(symbolic.Subtract(F, symbolic.MulOf(f, g))) {
				return f, symbolic.Simplify(g), true
			}
			return nil, nil, false
		}
	}
	return nil, nil, false
}

var anchors = []symbolic.Expr{symbolic.N(1), symbolic.N(2), symbolic.F(1, 2), symbolic.N(3)}

func matchSeparable(p *problem) bool {
	F, ok := p.firstOrderRHS()
	if !ok {
		return false
	}
	_, _, ok = separate(F, p.x)
	return ok
}

// solveSeparable integrates dy/g(y) = f(x) dx and solves for y.
func solveSeparable(p *problem) ([]symbolic.Expr, error) {
	F, _ := p.firstOrderRHS()
	c1 := constant(1)
	if symbolic.IsZero(F) {
		return []symbolic.Expr{c1}, nil
	}
	f, g, ok := separate(F, p.x)
	if !ok {
		return nil, ErrNotApplicable
	}
	H, ok := symbolic.Integrate(f, p.x)
	if !ok {
		return nil, fmt.Errorf("integrate %s d%s: %w", f, p.x, symbolic.ErrNoIntegral)
	}
	if !symbolic.Contains(g, ySym) {
		return []symbolic.Expr{symbolic.AddOf(symbolic.MulOf(g, H), c1)}, nil
	}
	recip := symbolic.PowOf(g, symbolic.N(-1))
	G, ok := symbolic.Integrate(recip, ySym)
	if !ok {
		return nil, fmt.Errorf("integrate %s dy: %w", recip, symbolic.ErrNoIntegral)
	}
	roots, err := symbolic.SolveFor(symbolic.AddOf(G, symbolic.Neg(H), symbolic.Neg(c1)), ySym)
	if err != nil {
		return nil, err
	}
	return explicitOnly(roots)
}

// explicitOnly drops roots that still mention a placeholder.
func explicitOnly(roots []symbolic.Expr) ([]symbolic.Expr, error) {
	var out []symbolic.Expr
	for _, r := range roots {
		if !mentionsPlaceholder(r) {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no explicit solution", symbolic.ErrCannotSolve)
	}
	return out, nil
}
