package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/odesolve/internal/engine"
	"github.com/njchilds90/odesolve/internal/solver"
	"github.com/njchilds90/odesolve/symbolic"
)

var samples = []float64{-1.2, -0.3, 0.4, 1.1, 2.5}

func resolve(t *testing.T, eq, method, ic string) Result {
	t.Helper()
	r := New(engine.New(), nil)
	return r.Resolve(context.Background(), RawInput{Equation: eq, Method: method, InitialConditions: ic})
}

func eval(t *testing.T, e symbolic.Expr, env map[string]float64) float64 {
	t.Helper()
	v, ok := symbolic.Evalf(e, env)
	require.True(t, ok, "cannot evaluate %s with %v", e, env)
	return v
}

func stepsContain(steps []string, substr string) bool {
	for _, s := range steps {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

func TestResolve_ExponentialGeneral(t *testing.T) {
	res := resolve(t, "y' = y", "", "")
	require.True(t, res.Succeeded, strings.Join(res.Steps, "\n"))
	assert.Equal(t, OutcomeSolved, res.Outcome)
	require.Len(t, res.General, 1)
	assert.Nil(t, res.Particular)

	sol := res.General[0]
	consts := constantsOf(res.General)
	require.Len(t, consts, 1)
	d := symbolic.Diff(sol, "x")
	for _, at := range samples {
		env := map[string]float64{"x": at, consts[0]: 1.7}
		assert.InDelta(t, eval(t, sol, env), eval(t, d, env), 1e-9)
	}

	assert.Equal(t, res.GeneralDisplay, res.Display)
	assert.True(t, strings.HasPrefix(res.Display, `y{\left(x \right)} = `), res.Display)
	assert.True(t, stepsContain(res.Steps, "**Step 1: Equation entered**"))
	assert.True(t, stepsContain(res.Steps, "This is a differential equation of order 1."))
	assert.True(t, stepsContain(res.Steps, "The solution contains the integration constant: $"+consts[0]+"$"))
	assert.True(t, stepsContain(res.Steps, "provide an initial condition (e.g. y(0)=3)"))
	assert.True(t, stepsContain(res.Steps, "✅ **Summary:**"))
}

func TestResolve_Quadrature(t *testing.T) {
	res := resolve(t, "dy/dx = 2x", "", "")
	require.True(t, res.Succeeded, strings.Join(res.Steps, "\n"))
	require.Len(t, res.General, 1)

	d := symbolic.Diff(res.General[0], "x")
	for _, at := range samples {
		env := map[string]float64{"x": at, "C1": -0.6}
		assert.InDelta(t, 2*at, eval(t, d, env), 1e-9)
	}
}

func constantEnv(v Result, at float64) map[string]float64 {
	env := map[string]float64{"x": at}
	for _, c := range constantsOf(v.General) {
		env[c] = 0.7
	}
	return env
}

func TestResolve_SquaredSums(t *testing.T) {
	cases := []struct {
		name, eq string
		// residual is y' + k*y - f(x) for the solved branch.
		k float64
		f func(x float64) float64
	}{
		{"square", "y' = (x+1)^2", 0, func(x float64) float64 { return (x + 1) * (x + 1) }},
		{"product", "y' = (x+1)*(x+1)", 0, func(x float64) float64 { return (x + 1) * (x + 1) }},
		{"cube", "y' = (x+1)^3", 0, func(x float64) float64 { return (x + 1) * (x + 1) * (x + 1) }},
		{"linear forcing", "y' + y = (2+x)^2", 1, func(x float64) float64 { return (2 + x) * (2 + x) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := resolve(t, tc.eq, "", "")
			require.True(t, res.Succeeded, strings.Join(res.Steps, "\n"))
			require.Len(t, res.General, 1)

			sol := res.General[0]
			d := symbolic.Diff(sol, "x")
			for _, at := range samples {
				env := constantEnv(res, at)
				got := eval(t, d, env) + tc.k*eval(t, sol, env)
				assert.InDelta(t, tc.f(at), got, 1e-7)
			}
		})
	}
}

func TestResolve_SquaredSumInUnknownDoesNotFault(t *testing.T) {
	res := resolve(t, "y' = (y+1)^2", "", "")
	assert.NotEqual(t, OutcomeFault, res.Outcome)
	assert.NotEmpty(t, res.Steps)
}

func TestResolve_ExponentialWithCondition(t *testing.T) {
	res := resolve(t, "y' = y", "", "y(0)=1")
	require.True(t, res.Succeeded, strings.Join(res.Steps, "\n"))
	require.Len(t, res.Particular, 1)

	p := res.Particular[0]
	assert.Empty(t, constantsOf(res.Particular))
	assert.True(t, p.Equal(symbolic.ExpOf(symbolic.S("x"))), p.String())
	assert.InDelta(t, 1, eval(t, p, map[string]float64{"x": 0}), 1e-12)

	assert.Equal(t, res.ParticularDisplay, res.Display)
	assert.NotEqual(t, res.GeneralDisplay, res.Display)
	assert.True(t, stepsContain(res.Steps, "**Step 5: Processing initial conditions**"))
	assert.True(t, stepsContain(res.Steps, "**Particular solution (conditions applied):**"))
}

func TestResolve_OscillatorWithConditions(t *testing.T) {
	res := resolve(t, "y'' + y = 0", "", "y(0)=0, y'(0)=1")
	require.True(t, res.Succeeded, strings.Join(res.Steps, "\n"))
	require.Len(t, res.Particular, 1)

	p := res.Particular[0]
	slope := symbolic.Diff(p, "x")
	assert.InDelta(t, 0, eval(t, p, map[string]float64{"x": 0}), 1e-9)
	assert.InDelta(t, 1, eval(t, slope, map[string]float64{"x": 0}), 1e-9)
	for _, at := range samples {
		env := map[string]float64{"x": at}
		want := eval(t, symbolic.SinOf(symbolic.S("x")), env)
		assert.InDelta(t, want, eval(t, p, env), 1e-9)
	}
}

func TestResolve_UnparseableReportsBothParsers(t *testing.T) {
	res := resolve(t, "y = )(", "", "")
	assert.False(t, res.Succeeded)
	assert.Equal(t, OutcomeInvalid, res.Outcome)
	assert.Empty(t, res.Display)
	assert.True(t, stepsContain(res.Steps, "❌ Error parsing the equation"))
	assert.True(t, stepsContain(res.Steps, "parser="))
	assert.True(t, stepsContain(res.Steps, "evaluator="))
}

func TestResolve_MultiBranchKept(t *testing.T) {
	res := resolve(t, "y*y' = x", "separable", "")
	require.True(t, res.Succeeded, strings.Join(res.Steps, "\n"))
	require.Len(t, res.General, 2)
	assert.True(t, strings.HasPrefix(res.Display, `\begin{cases} `), res.Display)
	assert.True(t, strings.HasSuffix(res.Display, ` \end{cases}`), res.Display)
	assert.Equal(t, 1, strings.Count(res.Display, `\\`))
}

func TestResolve_MultiBranchWithConditionUsesFirst(t *testing.T) {
	res := resolve(t, "y*y' = x", "separable", "y(0)=2")
	require.True(t, res.Succeeded, strings.Join(res.Steps, "\n"))
	require.Len(t, res.General, 2)
	require.Len(t, res.Particular, 1)
	assert.True(t, stepsContain(res.Steps, "only the first one is used"))
}

func TestResolve_UnknownMethodFallsBackToAuto(t *testing.T) {
	res := resolve(t, "y' = y", "magic", "")
	require.True(t, res.Succeeded, strings.Join(res.Steps, "\n"))
	assert.Equal(t, solver.Auto, res.Strategy)
	assert.True(t, stepsContain(res.Steps, `unknown method "magic"`))
	assert.True(t, stepsContain(res.Steps, "Step 3: automatic classification"))
}

func TestResolve_NamedMethod(t *testing.T) {
	res := resolve(t, "y' + y = x", "linear", "")
	require.True(t, res.Succeeded, strings.Join(res.Steps, "\n"))
	assert.Equal(t, solver.Linear, res.Strategy)
	assert.True(t, stepsContain(res.Steps, "**Linear equation**"))
}

func TestResolve_InvalidConditionsKeepGeneral(t *testing.T) {
	res := resolve(t, "y' = y", "", "whatever")
	require.True(t, res.Succeeded)
	assert.Nil(t, res.Particular)
	assert.Equal(t, res.GeneralDisplay, res.Display)
	assert.True(t, stepsContain(res.Steps, "No valid initial conditions were detected."))
}

func TestResolve_NotAnODE(t *testing.T) {
	res := resolve(t, "x + 1 = 2", "", "")
	assert.False(t, res.Succeeded)
	assert.Equal(t, OutcomeUnsolved, res.Outcome)
	assert.True(t, stepsContain(res.Steps, "❌"))
}

func TestResolve_ParseRunsUnderEngineDiscipline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := New(engine.New(), nil).Resolve(ctx, RawInput{Equation: "y' = y"})
	assert.Equal(t, OutcomeInvalid, res.Outcome)
	assert.True(t, stepsContain(res.Steps, "❌ Error parsing the equation: parse_equation: context canceled"),
		strings.Join(res.Steps, "\n"))
}

// panicEngine fails outside any bounded engine call.
type panicEngine struct{ *engine.CAS }

func (panicEngine) Display(symbolic.Expr) string { panic("display exploded") }

func TestResolve_PanicBecomesFault(t *testing.T) {
	r := New(panicEngine{engine.New()}, nil)
	res := r.Resolve(context.Background(), RawInput{Equation: "y' = y"})

	assert.False(t, res.Succeeded)
	assert.Equal(t, OutcomeFault, res.Outcome)
	assert.True(t, stepsContain(res.Steps, "display exploded"))

	var details string
	for _, s := range res.Steps {
		if strings.HasPrefix(s, "   Technical details: ") {
			details = strings.TrimPrefix(s, "   Technical details: ")
		}
	}
	require.NotEmpty(t, details)
	assert.LessOrEqual(t, len([]rune(details)), diagnosticLimit+3)
}

func TestRender(t *testing.T) {
	eng := engine.New()
	x := symbolic.S("x")
	assert.Empty(t, Render(eng, nil))
	assert.Equal(t, `y{\left(x \right)} = x`, Render(eng, engine.Value{x}))
	assert.Equal(t,
		`\begin{cases} y{\left(x \right)} = x \\ y{\left(x \right)} = -x \end{cases}`,
		Render(eng, engine.Value{x, symbolic.Neg(x)}))
}

func TestWriteConstants_Plural(t *testing.T) {
	res := resolve(t, "y'' + y = 0", "", "")
	require.True(t, res.Succeeded, strings.Join(res.Steps, "\n"))
	assert.Len(t, constantsOf(res.General), 2)
	assert.True(t, stepsContain(res.Steps, "integration constants: $C1$, $C2$"))
	assert.True(t, stepsContain(res.Steps, "(e.g. y(0)=3, y'(0)=1)"))
}
