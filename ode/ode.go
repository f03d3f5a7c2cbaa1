// Package ode classifies and solves ordinary differential equations in one
// unknown function using the symbolic kernel.
//
// An equation is rewritten over placeholder symbols before any method runs:
// the unknown y(x) becomes _y and its k-th derivative becomes _yk. Methods
// return explicit solutions y(x) = expr, one expression per branch.
package ode

import (
	"errors"
	"fmt"

	"github.com/njchilds90/odesolve/symbolic"
)

// Hint names one solving method.
type Hint string

const (
	Separable                Hint = "separable"
	FirstExact               Hint = "1st_exact"
	FirstLinear              Hint = "1st_linear"
	Bernoulli                Hint = "Bernoulli"
	HomogeneousBest          Hint = "1st_homogeneous_coeff_best"
	ConstCoeffHomogeneous    Hint = "nth_linear_constant_coeff_homogeneous"
	UndeterminedCoefficients Hint = "nth_linear_constant_coeff_undetermined_coefficients"
	NthOrderReducible        Hint = "nth_order_reducible"
)

// Hints lists every method in ranking order: more specific methods first.
var Hints = []Hint{
	Separable,
	FirstExact,
	FirstLinear,
	Bernoulli,
	HomogeneousBest,
	ConstCoeffHomogeneous,
	UndeterminedCoefficients,
	NthOrderReducible,
}

// Known reports whether h names a method of this package.
func Known(h Hint) bool {
	_, ok := methods[h]
	return ok
}

var (
	// ErrNotApplicable means the method does not fit the equation.
	ErrNotApplicable = errors.New("method not applicable")
	// ErrNotODE means the input is not an ordinary differential equation in fn.
	ErrNotODE = errors.New("not an ordinary differential equation")
)

type method struct {
	matches func(p *problem) bool
	solve   func(p *problem) ([]symbolic.Expr, error)
}

var methods map[Hint]method

func init() {
	methods = map[Hint]method{
		Separable:                {matches: matchSeparable, solve: solveSeparable},
		FirstExact:               {matches: matchExact, solve: solveExact},
		FirstLinear:              {matches: matchLinear, solve: solveLinear},
		Bernoulli:                {matches: matchBernoulli, solve: solveBernoulli},
		HomogeneousBest:          {matches: matchHomogeneous, solve: solveHomogeneous},
		ConstCoeffHomogeneous:    {matches: matchConstCoeffHomogeneous, solve: solveConstCoeffHomogeneous},
		UndeterminedCoefficients: {matches: matchUndetermined, solve: solveUndetermined},
		NthOrderReducible:        {matches: matchReducible, solve: solveReducible},
	}
}

// Classify returns the methods that fit eq, in ranking order.
func Classify(eq *symbolic.Equation, fn *symbolic.Applied) ([]Hint, error) {
	p, err := newProblem(eq, fn)
	if err != nil {
		return nil, err
	}
	return p.classify(), nil
}

// Solve solves eq for fn with the given method. An empty hint tries every
// matching method in ranking order and returns the first that succeeds.
func Solve(eq *symbolic.Equation, fn *symbolic.Applied, hint Hint) ([]symbolic.Expr, error) {
	p, err := newProblem(eq, fn)
	if err != nil {
		return nil, err
	}
	if hint == "" {
		return p.solveAny(nil)
	}
	m, ok := methods[hint]
	if !ok {
		return nil, fmt.Errorf("unknown hint %q", hint)
	}
	if !m.matches(p) {
		return nil, fmt.Errorf("%s: %w", hint, ErrNotApplicable)
	}
	return p.run(hint)
}

// Order returns the order of eq in fn.
func Order(eq *symbolic.Equation, fn *symbolic.Applied) int {
	return symbolic.OrderIn(eq.Residual(), fn.FuncName())
}

// ============================================================
// Problem
// ============================================================

// problem is an ODE rewritten over placeholder symbols: residual = 0.
type problem struct {
	residual symbolic.Expr
	x        string
	order    int

	explicitDone bool
	explicit     symbolic.Expr
}

const ySym = "_y"

// yk names the placeholder of the k-th derivative.
func yk(k int) string {
	if k == 0 {
		return ySym
	}
	return fmt.Sprintf("_y%d", k)
}

func newProblem(eq *symbolic.Equation, fn *symbolic.Applied) (*problem, error) {
	xs, ok := fn.Arg().(*symbolic.Sym)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not applied to a variable", ErrNotODE, fn)
	}
	x := xs.Name()
	name := fn.FuncName()
	var foreign symbolic.Expr
	residual := symbolic.Transform(eq.Residual(), func(e symbolic.Expr) (symbolic.Expr, bool) {
		switch v := e.(type) {
		case *symbolic.Derivative:
			if v.Func().FuncName() == name && v.Wrt() == x && v.Func().Equal(fn) {
				return symbolic.S(yk(v.Order())), true
			}
			foreign = v
		case *symbolic.Applied:
			if v.Equal(fn) {
				return symbolic.S(ySym), true
			}
			foreign = v
		}
		return nil, false
	})
	if foreign != nil {
		return nil, fmt.Errorf("%w: unexpected %s", ErrNotODE, foreign)
	}
	p := &problem{residual: symbolic.Expand(residual), x: x, order: -1}
	for k := 0; k <= maxOrder; k++ {
		if symbolic.Contains(p.residual, yk(k)) && k > p.order {
			p.order = k
		}
	}
	if p.order < 1 {
		return nil, fmt.Errorf("%w: %s has no derivative of %s", ErrNotODE, eq, fn)
	}
	return p, nil
}

const maxOrder = 16

func (p *problem) classify() []Hint {
	var out []Hint
	for _, h := range Hints {
		if methods[h].matches(p) {
			out = append(out, h)
		}
	}
	return out
}

// run solves with one method and post-processes the branches.
func (p *problem) run(h Hint) ([]symbolic.Expr, error) {
	sols, err := methods[h].solve(p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", h, err)
	}
	sols = tidy(sols)
	var verified []symbolic.Expr
	for _, s := range sols {
		if p.satisfiedBy(s) {
			verified = append(verified, s)
		}
	}
	if len(verified) == 0 {
		return nil, fmt.Errorf("%s: no candidate solution satisfies the equation", h)
	}
	return verified, nil
}

func (p *problem) solveAny(skip map[Hint]bool) ([]symbolic.Expr, error) {
	var errs []error
	for _, h := range p.classify() {
		if skip[h] {
			continue
		}
		sols, err := p.run(h)
		if err == nil {
			return sols, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("no method matches: %w", ErrNotApplicable)
	}
	return nil, errors.Join(errs...)
}

// firstOrderRHS returns F with y' = F(x, y) when the residual can be solved
// for y' with a single branch.
func (p *problem) firstOrderRHS() (symbolic.Expr, bool) {
	if p.order != 1 {
		return nil, false
	}
	if !p.explicitDone {
		p.explicitDone = true
		roots, err := symbolic.SolveFor(p.residual, yk(1))
		if err == nil && len(roots) == 1 && !symbolic.Contains(roots[0], yk(1)) {
			p.explicit = roots[0]
		}
	}
	return p.explicit, p.explicit != nil
}

// substitute replaces the placeholders with sol and its derivatives.
func (p *problem) substitute(sol symbolic.Expr) symbolic.Expr {
	values := map[string]symbolic.Expr{ySym: sol}
	d := sol
	for k := 1; k <= p.order; k++ {
		d = symbolic.Diff(d, p.x)
		values[yk(k)] = d
	}
	return symbolic.SubAll(p.residual, values)
}

func (p *problem) satisfiedBy(sol symbolic.Expr) bool {
	ok, _ := vanishes(p.substitute(sol))
	return ok
}
