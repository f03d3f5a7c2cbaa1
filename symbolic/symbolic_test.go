package symbolic_test

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/njchilds90/odesolve/symbolic"
)

var (
	x = symbolic.S("x")
	y = symbolic.S("y")
)

// agree compares two expressions in x at a few sample points.
func agree(t *testing.T, got, want symbolic.Expr) {
	t.Helper()
	for _, v := range []float64{0.3, 1.1, 2.7} {
		env := map[string]float64{"x": v}
		g, ok1 := symbolic.Evalf(got, env)
		w, ok2 := symbolic.Evalf(want, env)
		if !ok1 || !ok2 {
			t.Fatalf("cannot evaluate %s or %s at x=%g", got, want, v)
		}
		if math.Abs(g-w) > 1e-9*(1+math.Abs(w)) {
			t.Errorf("at x=%g: want %s = %g, got %s = %g", v, want, w, got, g)
		}
	}
}

// ============================================================
// Num tests
// ============================================================

func TestNum_Integer(t *testing.T) {
	if s := symbolic.N(42).String(); s != "42" {
		t.Errorf("want 42, got %s", s)
	}
}

func TestNum_RationalReduced(t *testing.T) {
	if s := symbolic.F(2, 4).String(); s != "1/2" {
		t.Errorf("want 1/2, got %s", s)
	}
}

func TestNum_LaTeX_Rational(t *testing.T) {
	if s := symbolic.F(2, 5).LaTeX(); s != `\frac{2}{5}` {
		t.Errorf("want \\frac{2}{5}, got %s", s)
	}
}

func TestParseNum_Decimal(t *testing.T) {
	n, ok := symbolic.ParseNum("0.25")
	if !ok || n.String() != "1/4" {
		t.Errorf("want 1/4, got %v", n)
	}
}

// ============================================================
// Canonical form
// ============================================================

func TestAdd_CollectsLikeTerms(t *testing.T) {
	if s := symbolic.AddOf(x, x).String(); s != "2*x" {
		t.Errorf("want 2*x, got %s", s)
	}
	if !symbolic.IsZero(symbolic.AddOf(x, symbolic.Neg(x))) {
		t.Errorf("x - x should be 0")
	}
}

func TestAdd_EmptyIsZero(t *testing.T) {
	if s := symbolic.AddOf().String(); s != "0" {
		t.Errorf("want 0, got %s", s)
	}
	if s := symbolic.MulOf().String(); s != "1" {
		t.Errorf("want 1, got %s", s)
	}
}

func TestMul_MergesPowers(t *testing.T) {
	if s := symbolic.MulOf(x, x).String(); s != "x^2" {
		t.Errorf("want x^2, got %s", s)
	}
	if s := symbolic.MulOf(x, symbolic.PowOf(x, symbolic.N(-1))).String(); s != "1" {
		t.Errorf("want 1, got %s", s)
	}
}

func TestMul_CombinesExponentials(t *testing.T) {
	e := symbolic.MulOf(symbolic.ExpOf(x), symbolic.ExpOf(symbolic.Neg(x)))
	if s := e.String(); s != "1" {
		t.Errorf("want 1, got %s", s)
	}
}

func TestPow_ExactRoot(t *testing.T) {
	if s := symbolic.SqrtOf(symbolic.N(16)).String(); s != "4" {
		t.Errorf("want 4, got %s", s)
	}
	if s := symbolic.SqrtOf(symbolic.N(2)).String(); s != "sqrt(2)" {
		t.Errorf("want sqrt(2), got %s", s)
	}
}

func TestFunc_ExactValues(t *testing.T) {
	if s := symbolic.SinOf(symbolic.N(0)).String(); s != "0" {
		t.Errorf("want 0, got %s", s)
	}
	if s := symbolic.CosOf(symbolic.Pi).String(); s != "-1" {
		t.Errorf("want -1, got %s", s)
	}
	if s := symbolic.ExpOf(symbolic.LnOf(x)).String(); s != "x" {
		t.Errorf("want x, got %s", s)
	}
}

func TestExpand_Square(t *testing.T) {
	sq := symbolic.PowOf(symbolic.AddOf(x, symbolic.N(1)), symbolic.N(2))
	got := symbolic.Expand(sq)
	if _, ok := got.(*symbolic.Add); !ok {
		t.Fatalf("want a sum, got %s", got)
	}
	agree(t, got, sq)
}

func TestExpand_PowersOfSums(t *testing.T) {
	onePlusX := symbolic.AddOf(x, symbolic.N(1))
	twoPlusX := symbolic.AddOf(symbolic.N(2), x)
	cases := []symbolic.Expr{
		symbolic.PowOf(onePlusX, symbolic.N(3)),
		symbolic.MulOf(onePlusX, onePlusX),
		symbolic.PowOf(twoPlusX, symbolic.N(2)),
		symbolic.MulOf(symbolic.N(3), x, symbolic.PowOf(onePlusX, symbolic.N(2))),
		symbolic.MulOf(onePlusX, symbolic.Subtract(x, symbolic.N(1))),
		symbolic.MulOf(symbolic.SqrtOf(onePlusX), symbolic.SqrtOf(onePlusX), twoPlusX),
	}
	for _, e := range cases {
		got := symbolic.Expand(e)
		if _, ok := got.(*symbolic.Add); !ok {
			t.Errorf("want a sum for %s, got %s", e, got)
		}
		agree(t, got, e)
	}
}

func TestExpand_SquareHasThreeTerms(t *testing.T) {
	got := symbolic.Expand(symbolic.PowOf(symbolic.AddOf(x, symbolic.N(1)), symbolic.N(2)))
	if n := len(symbolic.Terms(got)); n != 3 {
		t.Errorf("want 3 terms, got %d in %s", n, got)
	}
}

func TestExpand_LargePowerKept(t *testing.T) {
	big := symbolic.PowOf(symbolic.AddOf(x, symbolic.N(1)), symbolic.N(11))
	got := symbolic.Expand(symbolic.MulOf(x, big))
	agree(t, got, symbolic.MulOf(x, big))
}

// ============================================================
// Calculus
// ============================================================

func TestDiff_Power(t *testing.T) {
	got := symbolic.Diff(symbolic.PowOf(x, symbolic.N(3)), "x")
	if s := got.String(); s != "3*x^2" {
		t.Errorf("want 3*x^2, got %s", s)
	}
}

func TestDiff_ChainRule(t *testing.T) {
	got := symbolic.Diff(symbolic.ExpOf(symbolic.MulOf(symbolic.N(2), x)), "x")
	if s := got.String(); s != "2*exp(2*x)" {
		t.Errorf("want 2*exp(2*x), got %s", s)
	}
	if s := symbolic.Diff(symbolic.SinOf(x), "x").String(); s != "cos(x)" {
		t.Errorf("want cos(x), got %s", s)
	}
}

func TestDiffN_Sine(t *testing.T) {
	got := symbolic.DiffN(symbolic.SinOf(x), "x", 2)
	agree(t, got, symbolic.Neg(symbolic.SinOf(x)))
}

func TestIntegrate_Power(t *testing.T) {
	got, ok := symbolic.Integrate(symbolic.PowOf(x, symbolic.N(2)), "x")
	if !ok {
		t.Fatal("integral of x^2 should exist")
	}
	if s := got.String(); s != "x^3/3" {
		t.Errorf("want x^3/3, got %s", s)
	}
}

func TestIntegrate_DerivativeRecoversIntegrand(t *testing.T) {
	integrands := []symbolic.Expr{
		symbolic.ExpOf(symbolic.MulOf(symbolic.N(3), x)),
		symbolic.MulOf(x, symbolic.ExpOf(x)),
		symbolic.PowOf(x, symbolic.N(-1)),
		symbolic.CosOf(x),
		symbolic.MulOf(x, symbolic.SinOf(x)),
	}
	for _, f := range integrands {
		F, ok := symbolic.Integrate(f, "x")
		if !ok {
			t.Errorf("integral of %s should exist", f)
			continue
		}
		agree(t, symbolic.Diff(F, "x"), f)
	}
}

// ============================================================
// Solving
// ============================================================

func TestSolveFor_Linear(t *testing.T) {
	sols, err := symbolic.SolveFor(symbolic.Subtract(symbolic.MulOf(symbolic.N(2), x), symbolic.N(6)), "x")
	if err != nil {
		t.Fatal(err)
	}
	if len(sols) != 1 || sols[0].String() != "3" {
		t.Errorf("want [3], got %v", sols)
	}
}

func TestSolveFor_QuadraticBranches(t *testing.T) {
	sols, err := symbolic.SolveFor(symbolic.Subtract(symbolic.PowOf(x, symbolic.N(2)), symbolic.N(4)), "x")
	if err != nil {
		t.Fatal(err)
	}
	if len(sols) != 2 {
		t.Fatalf("want 2 branches, got %v", sols)
	}
	sum := symbolic.AddOf(sols...)
	if !symbolic.IsZero(sum) {
		t.Errorf("roots should be ±2, got %v", sols)
	}
}

func TestSolveFor_Missing(t *testing.T) {
	_, err := symbolic.SolveFor(y, "x")
	if !errors.Is(err, symbolic.ErrCannotSolve) {
		t.Errorf("want ErrCannotSolve, got %v", err)
	}
}

func TestSolveSystem_Linear(t *testing.T) {
	sets, err := symbolic.SolveSystem([]symbolic.Expr{
		symbolic.AddOf(x, y, symbolic.N(-3)),
		symbolic.AddOf(x, symbolic.Neg(y), symbolic.N(-1)),
	}, []string{"x", "y"})
	if err != nil {
		t.Fatal(err)
	}
	if len(sets) != 1 {
		t.Fatalf("want one solution set, got %d", len(sets))
	}
	if sets[0]["x"].String() != "2" || sets[0]["y"].String() != "1" {
		t.Errorf("want x=2, y=1, got %v", sets[0])
	}
}

// ============================================================
// Applied functions
// ============================================================

func TestDerivative_String(t *testing.T) {
	fy := symbolic.Apply("y", x)
	if s := symbolic.NewDerivative(fy, "x", 2).String(); s != "Derivative(y(x), (x, 2))" {
		t.Errorf("want Derivative(y(x), (x, 2)), got %s", s)
	}
	if symbolic.NewDerivative(fy, "x", 0) != symbolic.Expr(fy) {
		t.Errorf("order 0 should return the function itself")
	}
}

func TestOrderIn(t *testing.T) {
	fy := symbolic.Apply("y", x)
	e := symbolic.AddOf(symbolic.NewDerivative(fy, "x", 2), fy)
	if n := symbolic.OrderIn(e, "y"); n != 2 {
		t.Errorf("want 2, got %d", n)
	}
	if n := symbolic.OrderIn(x, "y"); n != -1 {
		t.Errorf("want -1, got %d", n)
	}
}

func TestPrimeNotation(t *testing.T) {
	if s := symbolic.PrimeNotation("y", 2); s != "y''" {
		t.Errorf("want y'', got %s", s)
	}
	if s := symbolic.PrimeNotation("y", 5); s != "y^(5)" {
		t.Errorf("want y^(5), got %s", s)
	}
}

func TestRename_Swap(t *testing.T) {
	e := symbolic.Subtract(x, y)
	got := symbolic.Rename(e, map[string]string{"x": "y", "y": "x"})
	if !got.Equal(symbolic.Subtract(y, x)) {
		t.Errorf("want y - x, got %s", got)
	}
}

// ============================================================
// Parser
// ============================================================

func TestParse_ImplicitMultiplication(t *testing.T) {
	e, err := symbolic.Parse("2x + sin(x)", symbolic.Elementary())
	if err != nil {
		t.Fatal(err)
	}
	agree(t, e, symbolic.AddOf(symbolic.MulOf(symbolic.N(2), x), symbolic.SinOf(x)))
}

func TestParse_SplitsLetters(t *testing.T) {
	e, err := symbolic.Parse("2xy", symbolic.Elementary())
	if err != nil {
		t.Fatal(err)
	}
	if !e.Equal(symbolic.MulOf(symbolic.N(2), x, y)) {
		t.Errorf("want 2*x*y, got %s", e)
	}
}

func TestParse_UnknownFunction(t *testing.T) {
	table := symbolic.Elementary()
	table.Unknowns["y"] = true
	table.Implicit = "x"
	e, err := symbolic.Parse("y + 1", table)
	if err != nil {
		t.Fatal(err)
	}
	if s := e.String(); s != "y(x) + 1" {
		t.Errorf("want y(x) + 1, got %s", s)
	}
}

func TestParse_Errors(t *testing.T) {
	for _, text := range []string{"1/0", "sin(x, 2)", "(x + 1", "sin", "x +"} {
		if _, err := symbolic.Parse(text, symbolic.Elementary()); err == nil {
			t.Errorf("%q should not parse", text)
		}
	}
}

// ============================================================
// JSON and tools
// ============================================================

func TestFromJSON_Tree(t *testing.T) {
	e := symbolic.AddOf(symbolic.MulOf(symbolic.N(3), symbolic.PowOf(x, symbolic.N(2))), symbolic.SinOf(x))
	got, err := symbolic.FromJSON(symbolic.Tree(e))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(e) {
		t.Errorf("want %s, got %s", e, got)
	}
}

func TestToJSON_Valid(t *testing.T) {
	s, err := symbolic.ToJSON(symbolic.MulOf(symbolic.N(2), x))
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Errorf("invalid JSON: %v", err)
	}
}

func TestHandleToolCall_Diff(t *testing.T) {
	resp := symbolic.HandleToolCall(symbolic.ToolRequest{
		Tool:   "diff",
		Params: map[string]interface{}{"expr": "x^3", "var": "x"},
	})
	if resp.Error != "" {
		t.Fatal(resp.Error)
	}
	if resp.String != "3*x^2" {
		t.Errorf("want 3*x^2, got %s", resp.String)
	}
}

func TestHandleToolCall_Solve(t *testing.T) {
	resp := symbolic.HandleToolCall(symbolic.ToolRequest{
		Tool:   "solve",
		Params: map[string]interface{}{"expr": "x^2 - 9", "var": "x"},
	})
	if resp.Error != "" {
		t.Fatal(resp.Error)
	}
	if !strings.Contains(resp.String, "3") {
		t.Errorf("want roots ±3, got %s", resp.String)
	}
}

func TestHandleToolCall_UnknownTool(t *testing.T) {
	resp := symbolic.HandleToolCall(symbolic.ToolRequest{Tool: "nope"})
	if resp.Error != "unknown tool: nope" {
		t.Errorf("want unknown tool error, got %q", resp.Error)
	}
}

func TestMCPToolSpec_IncludesExtra(t *testing.T) {
	extra := symbolic.ToolSchema("solve_ode", "Solve an ODE", []string{"equation"}, map[string]string{"equation": "string"})
	spec := symbolic.MCPToolSpec(extra)
	var parsed struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	if err := json.Unmarshal([]byte(spec), &parsed); err != nil {
		t.Fatal(err)
	}
	if len(parsed.Tools) == 0 || parsed.Tools[0].Name != "solve_ode" {
		t.Errorf("extra tool should come first, got %+v", parsed.Tools)
	}
}

func TestEvalf_Undefined(t *testing.T) {
	if _, ok := symbolic.Evalf(symbolic.LnOf(symbolic.N(-1)), nil); ok {
		t.Errorf("ln(-1) should not evaluate")
	}
	if _, ok := symbolic.Evalf(x, nil); ok {
		t.Errorf("unbound symbol should not evaluate")
	}
}
