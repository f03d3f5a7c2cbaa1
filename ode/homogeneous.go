package ode

import (
	"fmt"

	"github.com/njchilds90/odesolve/symbolic"
)

const ratioSym = "_t"

// homogeneousRatio returns h with F(x, y) = h(y/x).
func homogeneousRatio(p *problem) (symbolic.Expr, bool) {
	F, ok := p.firstOrderRHS()
	if !ok || !symbolic.Contains(F, ySym) {
		return nil, false
	}
	h := symbolic.SubAll(F, map[string]symbolic.Expr{p.x: symbolic.N(1), ySym: symbolic.S(ratioSym)})
	if symbolic.Contains(h, p.x) {
		return nil, false
	}
	ratio := symbolic.Quo(symbolic.S(ySym), symbolic.S(p.x))
	if !identicallyZero(symbolic.Subtract(F, symbolic.Sub(h, ratioSym, ratio))) {
		return nil, false
	}
	return h, true
}

func matchHomogeneous(p *problem) bool {
	_, ok := homogeneousRatio(p)
	return ok
}

// solveHomogeneous substitutes y = t x, which separates as
// dt / (h(t) - t) = dx / x.
func solveHomogeneous(p *problem) ([]symbolic.Expr, error) {
	h, ok := homogeneousRatio(p)
	if !ok {
		return nil, ErrNotApplicable
	}
	x := symbolic.S(p.x)
	d := symbolic.Expand(symbolic.Subtract(h, symbolic.S(ratioSym)))
	if symbolic.IsZero(d) {
		return []symbolic.Expr{symbolic.MulOf(constant(1), x)}, nil
	}
	recip := symbolic.PowOf(d, symbolic.N(-1))
	G, ok := symbolic.Integrate(recip, ratioSym)
	if !ok {
		return nil, fmt.Errorf("integrate %s: %w", recip, symbolic.ErrNoIntegral)
	}
	roots, err := symbolic.SolveFor(symbolic.AddOf(G, symbolic.Neg(symbolic.LnOf(x)), symbolic.Neg(constant(1))), ratioSym)
	if err != nil {
		return nil, err
	}
	out := make([]symbolic.Expr, 0, len(roots))
	for _, t := range roots {
		if symbolic.Contains(t, ratioSym) {
			continue
		}
		out = append(out, symbolic.Expand(symbolic.MulOf(x, t)))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no explicit solution", symbolic.ErrCannotSolve)
	}
	return out, nil
}
