package conditions

import (
	"context"
	"math"
	"testing"

	"github.com/njchilds90/odesolve/internal/engine"
	"github.com/njchilds90/odesolve/internal/parser"
	"github.com/njchilds90/odesolve/internal/trace"
	"github.com/njchilds90/odesolve/symbolic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	x  = symbolic.S("x")
	c1 = symbolic.S("C1")
	c2 = symbolic.S("C2")
)

func evalAt(t *testing.T, e symbolic.Expr, at float64) float64 {
	t.Helper()
	v, ok := symbolic.Evalf(e, map[string]float64{"x": at})
	require.True(t, ok, "cannot evaluate %s at %v", e, at)
	return v
}

func TestParse_ConditionsAndAssignments(t *testing.T) {
	tr := trace.New()
	set := Parse("y(0)=1, y'(0)=2, C1=3", tr)

	require.Len(t, set.Conditions, 2)
	assert.Equal(t, 0, set.Conditions[0].Order)
	assert.True(t, set.Conditions[0].Point.Equal(symbolic.N(0)))
	assert.True(t, set.Conditions[0].Value.Equal(symbolic.N(1)))
	assert.Equal(t, 1, set.Conditions[1].Order)
	assert.True(t, set.Conditions[1].Value.Equal(symbolic.N(2)))

	require.Equal(t, 1, set.Assignments.Len())
	v, ok := set.Assignments.Get("C1")
	require.True(t, ok)
	assert.True(t, v.Equal(symbolic.N(3)))

	assert.True(t, tr.Contains("Initial condition detected: $y(0) = 1$"))
	assert.True(t, tr.Contains("Initial condition detected: $y'(0) = 2$"))
	assert.True(t, tr.Contains("Condition detected: $C1 = 3$"))
	assert.False(t, set.Empty())
}

func TestParse_Notations(t *testing.T) {
	cases := []struct {
		name, in string
		order    int
	}{
		{"second prime", "y''(1) = 0", 2},
		{"unicode prime", "y′(0)=1", 1},
		{"explicit order", "y^(4)(0)=1", 4},
		{"spaces", "y( 2 ) =   5", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			set := Parse(tc.in, nil)
			require.Len(t, set.Conditions, 1)
			assert.Equal(t, tc.order, set.Conditions[0].Order)
		})
	}
}

func TestParse_Values(t *testing.T) {
	set := Parse("y(0)=0.5, y(1)=1e-3, y(pi/2)=-2, k=3/4", nil)
	require.Len(t, set.Conditions, 3)
	assert.True(t, set.Conditions[0].Value.Equal(symbolic.F(1, 2)))
	assert.True(t, set.Conditions[1].Value.Equal(symbolic.F(1, 1000)))
	assert.InDelta(t, math.Pi/2, evalAt(t, set.Conditions[2].Point, 0), 1e-12)
	assert.True(t, set.Conditions[2].Value.Equal(symbolic.N(-2)))

	k, ok := set.Assignments.Get("k")
	require.True(t, ok)
	assert.True(t, k.Equal(symbolic.F(3, 4)))
}

func TestParse_Unrecognized(t *testing.T) {
	tr := trace.New()
	set := Parse("foo bar, y(0), y = 3, , C1 = )(", tr)
	assert.True(t, set.Empty())
	assert.True(t, tr.Contains("Unrecognized format: foo bar"))
	assert.True(t, tr.Contains("Unrecognized format: y(0)"))
	assert.True(t, tr.Contains("Unrecognized format: y = 3"))
	assert.True(t, tr.Contains("Could not parse the constant: C1 = )("))
}

func TestParse_BadConditionValues(t *testing.T) {
	tr := trace.New()
	set := Parse("y(#)=1, y(0)=#", tr)
	assert.True(t, set.Empty())
	assert.True(t, tr.Contains("Could not parse x in: y(#)=1"))
	assert.True(t, tr.Contains("Could not parse y in: y(0)=#"))
}

func TestAssignments_KeepInsertionOrder(t *testing.T) {
	var a Assignments
	a.Set("C2", symbolic.N(1))
	a.Set("C1", symbolic.N(2))
	a.Set("C2", symbolic.N(3))
	assert.Equal(t, []string{"C2", "C1"}, a.Names())
	v, _ := a.Get("C2")
	assert.True(t, v.Equal(symbolic.N(3)))
}

func TestSplitClauses(t *testing.T) {
	assert.Equal(t, []string{"a=1", "y(0)=f(1,2)", ""}, splitClauses("a=1, y(0)=f(1,2),"))
}

func TestIntegrationConstants(t *testing.T) {
	e := symbolic.AddOf(symbolic.MulOf(c2, x), c1, symbolic.S("_y"), symbolic.Pi)
	assert.Equal(t, []string{"C1", "C2"}, IntegrationConstants(e))
	assert.Empty(t, IntegrationConstants(symbolic.PowOf(x, symbolic.N(2))))
}

func TestSolve_ExponentialFromValue(t *testing.T) {
	eng := engine.New()
	general := engine.Value{symbolic.MulOf(c1, symbolic.ExpOf(x))}
	tr := trace.New()

	got := Solve(context.Background(), eng, general, Parse("y(0)=1", tr), tr)
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(symbolic.ExpOf(x)), got[0].String())
	assert.True(t, tr.Contains("Particular solution obtained"))
	assert.True(t, tr.Contains("$C1 = 1$"))
}

func TestSolve_OscillatorFromValueAndSlope(t *testing.T) {
	eng := engine.New()
	fy := parser.Unknown()
	eq := symbolic.Eq(symbolic.AddOf(symbolic.NewDerivative(fy, "x", 2), fy), symbolic.N(0))
	general, err := eng.Solve(context.Background(), eq, fy, "")
	require.NoError(t, err)

	got := Solve(context.Background(), eng, general, Parse("y(0)=0, y'(0)=1", nil), nil)
	require.Len(t, got, 1)
	assert.Empty(t, IntegrationConstants(got[0]))
	for _, at := range []float64{0, 0.4, 1.3, 2.9} {
		assert.InDelta(t, math.Sin(at), evalAt(t, got[0], at), 1e-9)
	}
	slope := symbolic.Diff(got[0], "x")
	assert.InDelta(t, 1, evalAt(t, slope, 0), 1e-9)
}

func TestSolve_NothingToDetermine(t *testing.T) {
	general := engine.Value{symbolic.PowOf(x, symbolic.N(2))}
	tr := trace.New()

	got := Solve(context.Background(), engine.New(), general, Parse("y(0)=4", nil), tr)
	assert.Equal(t, general, got)
	assert.True(t, tr.Contains("nothing to determine"))
}

func TestSolve_AssignmentsFirst(t *testing.T) {
	general := engine.Value{symbolic.AddOf(symbolic.MulOf(c1, x), c2)}
	tr := trace.New()

	got := Solve(context.Background(), engine.New(), general, Parse("C2=5, K=1, y(1)=7", tr), tr)
	require.Len(t, got, 1)
	want := symbolic.AddOf(symbolic.MulOf(symbolic.N(2), x), symbolic.N(5))
	assert.True(t, got[0].Equal(want), got[0].String())
	assert.True(t, tr.Contains("Substituting $C2 = 5$"))
	assert.True(t, tr.Contains("The constant $K$ was not found in the solution"))
}

func TestSolve_AssignmentsOnly(t *testing.T) {
	general := engine.Value{symbolic.MulOf(c1, symbolic.ExpOf(x))}
	got := Solve(context.Background(), engine.New(), general, Parse("C1=3", nil), nil)
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(symbolic.MulOf(symbolic.N(3), symbolic.ExpOf(x))), got[0].String())
}

func TestSolve_FirstBranchOnly(t *testing.T) {
	general := engine.Value{symbolic.AddOf(c1, x), symbolic.Subtract(c1, x)}
	tr := trace.New()

	got := Solve(context.Background(), engine.New(), general, Parse("y(0)=3", nil), tr)
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(symbolic.AddOf(x, symbolic.N(3))), got[0].String())
	assert.True(t, tr.Contains("only the first one is used"))
	assert.True(t, tr.Contains("the other 1 branch(es) of the general solution are dropped"))
}

func TestSolve_AssignmentsOnlyNotesDroppedBranches(t *testing.T) {
	general := engine.Value{symbolic.AddOf(c1, x), symbolic.Subtract(c1, x), symbolic.MulOf(c1, x)}
	tr := trace.New()

	got := Solve(context.Background(), engine.New(), general, Parse("C1=2", nil), tr)
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(symbolic.AddOf(x, symbolic.N(2))), got[0].String())
	assert.True(t, tr.Contains("the other 2 branch(es) of the general solution are dropped"))
}

func TestSolve_SingleBranchHasNoDropNote(t *testing.T) {
	general := engine.Value{symbolic.MulOf(c1, symbolic.ExpOf(x))}
	tr := trace.New()

	Solve(context.Background(), engine.New(), general, Parse("y(0)=1", nil), tr)
	assert.False(t, tr.Contains("are dropped"))
}

func TestSolve_UnsolvableKeepsGeneral(t *testing.T) {
	general := engine.Value{symbolic.MulOf(c1, x)}
	tr := trace.New()

	got := Solve(context.Background(), engine.New(), general, Parse("y(0)=1", nil), tr)
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(general[0]), got[0].String())
	assert.True(t, tr.Contains("The general solution is shown"))
}

func TestSolve_TooFewConditions(t *testing.T) {
	general := engine.Value{symbolic.AddOf(symbolic.MulOf(c1, x), c2)}
	tr := trace.New()

	got := Solve(context.Background(), engine.New(), general, Parse("y(0)=1", nil), tr)
	require.Len(t, got, 1)
	assert.True(t, tr.Contains("1 condition(s) for 2 unknown constant(s)"))
}

func TestSolve_EmptyGeneral(t *testing.T) {
	got := Solve(context.Background(), engine.New(), nil, Parse("y(0)=1", nil), nil)
	assert.True(t, got.Empty())
}
