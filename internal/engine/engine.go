// Package engine is the algebra capability the solving pipeline calls.
//
// Engine is implemented by CAS on top of the symbolic and ode packages.
// Every call runs under a wall-clock budget and recovers panics, so a
// pathological expression turns into an ordinary error for the caller.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/njchilds90/odesolve/ode"
	"github.com/njchilds90/odesolve/symbolic"
)

// ErrBudgetExceeded is returned when a call outlives its budget.
var ErrBudgetExceeded = errors.New("engine call exceeded its time budget")

// DefaultBudget bounds a single engine call when none is configured.
const DefaultBudget = 10 * time.Second

// Value is a solution: one expression per branch. An empty Value means no
// solution.
type Value []symbolic.Expr

// Empty reports whether v holds no branch.
func (v Value) Empty() bool { return len(v) == 0 }

// Multi reports whether v has more than one branch.
func (v Value) Multi() bool { return len(v) > 1 }

// First returns the first branch, or nil.
func (v Value) First() symbolic.Expr {
	if len(v) == 0 {
		return nil
	}
	return v[0]
}

// String renders the branches separated by "; ".
func (v Value) String() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.String()
	}
	return strings.Join(parts, "; ")
}

// Engine is the algebra surface used by the solver, condition and
// pipeline packages.
type Engine interface {
	Parse(ctx context.Context, text string, table *symbolic.Table) (symbolic.Expr, error)
	MakeEquation(lhs, rhs symbolic.Expr) *symbolic.Equation
	Differentiate(ctx context.Context, e symbolic.Expr, wrt string, order int) (symbolic.Expr, error)
	Classify(ctx context.Context, eq *symbolic.Equation, fn *symbolic.Applied) ([]ode.Hint, error)
	// Solve uses the given method; an empty hint lets the engine choose.
	Solve(ctx context.Context, eq *symbolic.Equation, fn *symbolic.Applied, hint ode.Hint) (Value, error)
	SolveSystem(ctx context.Context, eqs []symbolic.Expr, unknowns []string) ([]map[string]symbolic.Expr, error)
	Simplify(ctx context.Context, e symbolic.Expr) (symbolic.Expr, error)
	Display(e symbolic.Expr) string
}

// CAS is the in-process Engine.
type CAS struct {
	budget time.Duration
}

// Option configures a CAS.
type Option func(*CAS)

// WithBudget sets the per-call budget. Non-positive values keep the
// default.
func WithBudget(d time.Duration) Option {
	return func(c *CAS) {
		if d > 0 {
			c.budget = d
		}
	}
}

// New returns a CAS with DefaultBudget unless overridden.
func New(opts ...Option) *CAS {
	c := &CAS{budget: DefaultBudget}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Budget returns the per-call budget.
func (c *CAS) Budget() time.Duration { return c.budget }

type outcome[T any] struct {
	val T
	err error
}

// bounded runs fn in its own goroutine and waits for it, the budget or ctx,
// whichever ends first. A goroutine that overruns keeps running until fn
// returns; its result is discarded.
func bounded[T any](ctx context.Context, budget time.Duration, op string, fn func() (T, error)) (val T, err error) {
	start := time.Now()
	defer func(parent context.Context) { recordCall(parent, op, time.Since(start), err) }(ctx)

	if cerr := ctx.Err(); cerr != nil {
		return val, fmt.Errorf("%s: %w", op, cerr)
	}

	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				done <- outcome[T]{val: zero, err: fmt.Errorf("%s: internal error: %v", op, r)}
			}
		}()
		v, err := fn()
		done <- outcome[T]{val: v, err: err}
	}()

	select {
	case out := <-done:
		return out.val, out.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%s: %w (%s)", op, ErrBudgetExceeded, budget)
		}
		return zero, fmt.Errorf("%s: %w", op, ctx.Err())
	}
}

// Budgeted is implemented by engines that carry a per-call budget.
type Budgeted interface {
	Budget() time.Duration
}

// BudgetOf returns eng's per-call budget, or DefaultBudget when eng does
// not carry one.
func BudgetOf(eng Engine) time.Duration {
	if b, ok := eng.(Budgeted); ok && b.Budget() > 0 {
		return b.Budget()
	}
	return DefaultBudget
}

// Run applies the engine call discipline to work done outside the Engine
// surface: fn runs under budget, panics become errors and the call is
// recorded under op.
func Run[T any](ctx context.Context, budget time.Duration, op string, fn func() (T, error)) (T, error) {
	return bounded(ctx, budget, op, fn)
}

func (c *CAS) Parse(ctx context.Context, text string, table *symbolic.Table) (symbolic.Expr, error) {
	return bounded(ctx, c.budget, "parse", func() (symbolic.Expr, error) {
		return symbolic.Parse(text, table)
	})
}

func (c *CAS) MakeEquation(lhs, rhs symbolic.Expr) *symbolic.Equation {
	return symbolic.Eq(lhs, rhs)
}

func (c *CAS) Differentiate(ctx context.Context, e symbolic.Expr, wrt string, order int) (symbolic.Expr, error) {
	if order < 0 {
		return nil, fmt.Errorf("differentiate: negative order %d", order)
	}
	return bounded(ctx, c.budget, "differentiate", func() (symbolic.Expr, error) {
		return symbolic.DiffN(e, wrt, order), nil
	})
}

func (c *CAS) Classify(ctx context.Context, eq *symbolic.Equation, fn *symbolic.Applied) ([]ode.Hint, error) {
	return bounded(ctx, c.budget, "classify", func() ([]ode.Hint, error) {
		return ode.Classify(eq, fn)
	})
}

func (c *CAS) Solve(ctx context.Context, eq *symbolic.Equation, fn *symbolic.Applied, hint ode.Hint) (Value, error) {
	op := "solve"
	if hint != "" {
		op = "solve[" + string(hint) + "]"
	}
	return bounded(ctx, c.budget, op, func() (Value, error) {
		sols, err := ode.Solve(eq, fn, hint)
		if err != nil {
			return nil, err
		}
		return Value(sols), nil
	})
}

func (c *CAS) SolveSystem(ctx context.Context, eqs []symbolic.Expr, unknowns []string) ([]map[string]symbolic.Expr, error) {
	return bounded(ctx, c.budget, "solve system", func() ([]map[string]symbolic.Expr, error) {
		return symbolic.SolveSystem(eqs, unknowns)
	})
}

func (c *CAS) Simplify(ctx context.Context, e symbolic.Expr) (symbolic.Expr, error) {
	return bounded(ctx, c.budget, "simplify", func() (symbolic.Expr, error) {
		return symbolic.Simplify(e), nil
	})
}

// Display renders e as LaTeX.
func (c *CAS) Display(e symbolic.Expr) string { return symbolic.LaTeX(e) }
