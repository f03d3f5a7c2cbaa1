package conditions

import (
	"context"

	"github.com/njchilds90/odesolve/internal/engine"
	"github.com/njchilds90/odesolve/internal/parser"
	"github.com/njchilds90/odesolve/internal/solver"
	"github.com/njchilds90/odesolve/internal/trace"
	"github.com/njchilds90/odesolve/symbolic"
)

// Solve fixes the integration constants of general using set and returns
// the particular solution.
//
// Only the first branch of a multi-branch general solution is used. When
// the constants cannot all be determined, the best solution reached so far
// is returned, possibly still containing constants; Solve never fails.
func Solve(ctx context.Context, eng engine.Engine, general engine.Value, set Set, tr *trace.Trace) engine.Value {
	if general.Empty() {
		return engine.Value{}
	}
	sol := general.First()

	remaining := IntegrationConstants(sol)
	if len(remaining) == 0 {
		tr.Add("   ℹ️ The solution contains no integration constants; there is nothing to determine.")
		return general
	}
	if general.Multi() {
		tr.Add("   ℹ️ The general solution has %d branches; only the first one is used for the conditions.", len(general))
	}

	particular := particularOf(ctx, eng, sol, remaining, set, tr)
	if general.Multi() {
		tr.Add("   ℹ️ The particular solution keeps only the first branch; the other %d branch(es) of the general solution are dropped.",
			len(general)-1)
	}
	return engine.Value{particular}
}

// particularOf applies set to the single branch sol.
func particularOf(ctx context.Context, eng engine.Engine, sol symbolic.Expr, remaining []string, set Set, tr *trace.Trace) symbolic.Expr {
	if set.Assignments.Len() > 0 {
		sol, remaining = assign(sol, remaining, &set.Assignments, tr)
	}
	if len(set.Conditions) == 0 {
		return sol
	}
	if len(remaining) == 0 {
		tr.Add("   ℹ️ Every constant is already determined; the initial conditions are not needed.")
		return sol
	}

	tr.Blank()
	tr.Heading("Applying initial conditions to find the constants")
	var residuals []symbolic.Expr
	for _, c := range set.Conditions {
		d, err := eng.Differentiate(ctx, sol, parser.Var, c.Order)
		if err != nil {
			tr.Add("   ⚠️ Could not differentiate for %s: %s", symbolic.PrimeNotation(parser.Func, c.Order), trace.Truncate(err.Error(), 200))
			continue
		}
		r := symbolic.Subtract(symbolic.Sub(d, parser.Var, c.Point), c.Value)
		residuals = append(residuals, r)
		tr.Add("   Condition: $%s(%s) = %s$", symbolic.PrimeNotation(parser.Func, c.Order), c.Point.LaTeX(), c.Value.LaTeX())
		tr.Add("   Resulting equation: $$%s = 0$$", eng.Display(r))
	}
	if len(residuals) == 0 {
		return sol
	}
	if len(residuals) < len(remaining) {
		tr.Add("   ⚠️ %d condition(s) for %d unknown constant(s); some constants may remain undetermined.",
			len(residuals), len(remaining))
	}

	tr.Blank()
	tr.Heading("Solving the system of equations for the constants")
	sets, err := eng.SolveSystem(ctx, residuals, remaining)
	if err != nil {
		tr.Add("   ⚠️ Error solving the system: %s", trace.Truncate(err.Error(), 200))
		tr.Add("   The general solution is shown.")
		return sol
	}
	if len(sets) == 0 {
		tr.Add("   ⚠️ No solution was found for the system of equations.")
		tr.Add("   The general solution is shown with its constants undetermined.")
		return sol
	}
	if len(sets) > 1 {
		tr.Add("   ℹ️ The system has %d solutions; the first one is used.", len(sets))
	}

	chosen := sets[0]
	tr.Add("   Values found for the constants:")
	for _, name := range symbolic.SortedKeys(chosen) {
		tr.Add("   $%s = %s$", name, eng.Display(chosen[name]))
	}
	particular := symbolic.SubAll(sol, chosen)
	if s, err := eng.Simplify(ctx, particular); err == nil {
		particular = s
	}

	tr.Blank()
	tr.Heading("Particular solution obtained")
	tr.Math(solver.SolutionLaTeX(eng, particular))
	return particular
}

// assign substitutes the explicit constant values and returns the updated
// solution with the constants still to determine.
func assign(sol symbolic.Expr, remaining []string, as *Assignments, tr *trace.Trace) (symbolic.Expr, []string) {
	tr.Blank()
	tr.Heading("Applying constant values")
	for _, name := range as.Names() {
		i := indexOf(remaining, name)
		if i < 0 {
			tr.Add("   ⚠️ The constant $%s$ was not found in the solution", name)
			continue
		}
		v, _ := as.Get(name)
		sol = symbolic.Sub(sol, name, v)
		remaining = append(remaining[:i:i], remaining[i+1:]...)
		tr.Add("   Substituting $%s = %s$", name, v.LaTeX())
		tr.Add("   Updated solution: $$%s$$", sol.LaTeX())
	}
	return sol, remaining
}

func indexOf(ss []string, s string) int {
	for i, v := range ss {
		if v == s {
			return i
		}
	}
	return -1
}
