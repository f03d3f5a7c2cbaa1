package ode

import (
	"fmt"

	"github.com/njchilds90/odesolve/symbolic"
)

// ============================================================
// First-order linear: y' = a(x) y + b(x)
// ============================================================

func linearCoeffs(p *problem) (a, b symbolic.Expr, ok bool) {
	F, ok := p.firstOrderRHS()
	if !ok {
		return nil, nil, false
	}
	if !symbolic.Contains(F, ySym) {
		return symbolic.N(0), F, true
	}
	return symbolic.Linear(F, ySym)
}

func matchLinear(p *problem) bool {
	_, _, ok := linearCoeffs(p)
	return ok
}

func solveLinear(p *problem) ([]symbolic.Expr, error) {
	a, b, ok := linearCoeffs(p)
	if !ok {
		return nil, ErrNotApplicable
	}
	y, err := integratingFactor(a, b, p.x, constant(1))
	if err != nil {
		return nil, err
	}
	return []symbolic.Expr{y}, nil
}

// integratingFactor solves y' = a y + b as y = e^A (∫ e^-A b dx + c) with
// A = ∫ a dx.
func integratingFactor(a, b symbolic.Expr, x string, c symbolic.Expr) (symbolic.Expr, error) {
	A, ok := symbolic.Integrate(a, x)
	if !ok {
		return nil, fmt.Errorf("integrate %s d%s: %w", a, x, symbolic.ErrNoIntegral)
	}
	eA := symbolic.ExpOf(A)
	if symbolic.IsZero(b) {
		return symbolic.MulOf(c, eA), nil
	}
	mu := symbolic.ExpOf(symbolic.Neg(A))
	I, ok := symbolic.Integrate(symbolic.Expand(symbolic.MulOf(mu, b)), x)
	if !ok {
		return nil, fmt.Errorf("integrate %s d%s: %w", symbolic.MulOf(mu, b), x, symbolic.ErrNoIntegral)
	}
	return symbolic.Expand(symbolic.MulOf(symbolic.AddOf(I, c), eA)), nil
}

// ============================================================
// Bernoulli: y' = P(x) y + Q(x) y^n, n not 0 or 1
// ============================================================

func bernoulliForm(p *problem) (P, Q symbolic.Expr, n *symbolic.Num, ok bool) {
	F, ok := p.firstOrderRHS()
	if !ok {
		return nil, nil, nil, false
	}
	var ps, qs []symbolic.Expr
	for _, t := range symbolic.Terms(symbolic.Expand(F)) {
		var coeff []symbolic.Expr
		var power *symbolic.Num
		for _, f := range symbolic.Factors(t) {
			if !symbolic.Contains(f, ySym) {
				coeff = append(coeff, f)
				continue
			}
			k, isPower := placeholderPower(f)
			if !isPower || power != nil {
				return nil, nil, nil, false
			}
			power = k
		}
		switch {
		case power == nil:
			return nil, nil, nil, false
		case power.IsOne():
			ps = append(ps, symbolic.MulOf(coeff...))
		case n == nil || n.Equal(power):
			n = power
			qs = append(qs, symbolic.MulOf(coeff...))
		default:
			return nil, nil, nil, false
		}
	}
	if n == nil || n.IsZero() {
		return nil, nil, nil, false
	}
	Q = symbolic.AddOf(qs...)
	if symbolic.IsZero(Q) {
		return nil, nil, nil, false
	}
	return symbolic.AddOf(ps...), Q, n, true
}

// placeholderPower reports k when f is _y or _y^k for a rational k.
func placeholderPower(f symbolic.Expr) (*symbolic.Num, bool) {
	switch v := f.(type) {
	case *symbolic.Sym:
		if v.Name() == ySym {
			return symbolic.N(1), true
		}
	case *symbolic.Pow:
		s, ok := v.Base().(*symbolic.Sym)
		if !ok || s.Name() != ySym {
			return nil, false
		}
		k, ok := v.ExpExpr().(*symbolic.Num)
		return k, ok
	}
	return nil, false
}

func matchBernoulli(p *problem) bool {
	_, _, _, ok := bernoulliForm(p)
	return ok
}

// solveBernoulli substitutes v = y^(1-n), which turns the equation into
// v' = (1-n) P v + (1-n) Q.
func solveBernoulli(p *problem) ([]symbolic.Expr, error) {
	P, Q, n, ok := bernoulliForm(p)
	if !ok {
		return nil, ErrNotApplicable
	}
	m := symbolic.Subtract(symbolic.N(1), n)
	v, err := integratingFactor(symbolic.MulOf(m, P), symbolic.MulOf(m, Q), p.x, constant(1))
	if err != nil {
		return nil, err
	}
	roots, err := symbolic.SolveFor(symbolic.Subtract(symbolic.PowOf(symbolic.S(ySym), m), v), ySym)
	if err != nil {
		return nil, err
	}
	return explicitOnly(roots)
}
