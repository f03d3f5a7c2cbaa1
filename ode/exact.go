package ode

import (
	"fmt"

	"github.com/njchilds90/odesolve/symbolic"
)

// exactForm reads the residual as M(x, y) + N(x, y) y' and reports M, N when
// dM/dy = dN/dx.
func exactForm(p *problem) (M, N symbolic.Expr, ok bool) {
	if p.order != 1 {
		return nil, nil, false
	}
	N, M, ok = symbolic.Linear(p.residual, yk(1))
	if !ok || symbolic.IsZero(N) {
		return nil, nil, false
	}
	if !identicallyZero(symbolic.Subtract(symbolic.Diff(M, ySym), symbolic.Diff(N, p.x))) {
		return nil, nil, false
	}
	return M, N, true
}

func matchExact(p *problem) bool {
	_, _, ok := exactForm(p)
	return ok
}

// solveExact builds the potential F with F_x = M, F_y = N and solves
// F(x, y) = C1 for y.
func solveExact(p *problem) ([]symbolic.Expr, error) {
	M, N, ok := exactForm(p)
	if !ok {
		return nil, ErrNotApplicable
	}
	Fx, ok := symbolic.Integrate(M, p.x)
	if !ok {
		return nil, fmt.Errorf("integrate %s d%s: %w", M, p.x, symbolic.ErrNoIntegral)
	}
	rest := symbolic.Expand(symbolic.Subtract(N, symbolic.Diff(Fx, ySym)))
	if symbolic.Contains(rest, p.x) {
		if !identicallyZero(symbolic.Diff(rest, p.x)) {
			return nil, fmt.Errorf("%w: remainder %s depends on %s", ErrNotApplicable, rest, p.x)
		}
		rest = symbolic.Sub(rest, p.x, symbolic.N(1))
	}
	Gy, ok := symbolic.Integrate(rest, ySym)
	if !ok {
		return nil, fmt.Errorf("integrate %s dy: %w", rest, symbolic.ErrNoIntegral)
	}
	potential := symbolic.AddOf(Fx, Gy, symbolic.Neg(constant(1)))
	roots, err := symbolic.SolveFor(potential, ySym)
	if err != nil {
		return nil, err
	}
	return explicitOnly(roots)
}
