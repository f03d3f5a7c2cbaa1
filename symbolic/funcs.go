package symbolic

import (
	"math"
	"strings"
)

// ============================================================
// Func: named elementary function applications
// ============================================================

type Func struct {
	name string
	arg  Expr
}

func funcOf(name string, arg Expr) *Func { return &Func{name: name, arg: arg} }

func SinOf(arg Expr) Expr  { return funcOf("sin", arg).Simplify() }
func CosOf(arg Expr) Expr  { return funcOf("cos", arg).Simplify() }
func TanOf(arg Expr) Expr  { return funcOf("tan", arg).Simplify() }
func ExpOf(arg Expr) Expr  { return funcOf("exp", arg).Simplify() }
func LnOf(arg Expr) Expr   { return funcOf("ln", arg).Simplify() }
func AbsOf(arg Expr) Expr  { return funcOf("abs", arg).Simplify() }
func AsinOf(arg Expr) Expr { return funcOf("asin", arg).Simplify() }
func AcosOf(arg Expr) Expr { return funcOf("acos", arg).Simplify() }
func AtanOf(arg Expr) Expr { return funcOf("atan", arg).Simplify() }

// E is Euler's number, kept exact as exp(1).
func E() Expr { return funcOf("exp", N(1)) }

// inverses maps each function to the one undoing it on its principal branch.
var inverses = map[string]func(Expr) Expr{
	"exp":  LnOf,
	"ln":   ExpOf,
	"sin":  AsinOf,
	"cos":  AcosOf,
	"tan":  AtanOf,
	"asin": SinOf,
	"acos": CosOf,
	"atan": TanOf,
}

// Simplify applies exact identities only; numeric arguments without an exact
// value stay unevaluated.
func (f *Func) Simplify() Expr {
	arg := f.arg.Simplify()
	switch f.name {
	case "sin", "tan":
		if isNumEqual(arg, 0) {
			return N(0)
		}
		if _, ok := piMultiple(arg); ok {
			return N(0)
		}
		if c, rest := splitCoeff(arg); c.IsNegative() {
			return Neg(funcOf(f.name, MulOf(numNeg(c), rest)).Simplify())
		}
	case "cos":
		if isNumEqual(arg, 0) {
			return N(1)
		}
		if k, ok := piMultiple(arg); ok {
			if k%2 == 0 {
				return N(1)
			}
			return N(-1)
		}
		if c, rest := splitCoeff(arg); c.IsNegative() {
			return funcOf("cos", MulOf(numNeg(c), rest)).Simplify()
		}
	case "exp":
		if isNumEqual(arg, 0) {
			return N(1)
		}
		if inner, ok := arg.(*Func); ok && inner.name == "ln" {
			return inner.arg
		}
		if pulled, rest, ok := pullLogs(arg); ok {
			return MulOf(append(pulled, ExpOf(rest))...)
		}
	case "ln":
		if isNumEqual(arg, 1) {
			return N(0)
		}
		if inner, ok := arg.(*Func); ok && inner.name == "exp" {
			return inner.arg
		}
	case "abs":
		if n, ok := arg.(*Num); ok {
			return numAbs(n)
		}
		if c, rest := splitCoeff(arg); c.IsNegative() {
			return AbsOf(MulOf(numNeg(c), rest))
		}
	case "asin", "atan":
		if isNumEqual(arg, 0) {
			return N(0)
		}
	case "acos":
		if isNumEqual(arg, 1) {
			return N(0)
		}
	}
	return &Func{name: f.name, arg: arg}
}

// piMultiple reports k when arg is exactly k*pi for an integer k.
func piMultiple(arg Expr) (int64, bool) {
	c, rest := splitCoeff(arg)
	if _, ok := rest.(*Const); !ok || !rest.Equal(Pi) {
		return 0, false
	}
	return c.Int64()
}

// pullLogs rewrites exp(a + k*ln(b)) as b^k * exp(a) for numeric k.
func pullLogs(arg Expr) ([]Expr, Expr, bool) {
	var pulled, rest []Expr
	for _, t := range Terms(arg) {
		c, r := splitCoeff(t)
		if lf, ok := r.(*Func); ok && lf.name == "ln" {
			pulled = append(pulled, PowOf(lf.arg, c))
			continue
		}
		rest = append(rest, t)
	}
	if len(pulled) == 0 {
		return nil, nil, false
	}
	return pulled, AddOf(rest...), true
}

func (f *Func) String() string {
	if f.name == "exp" && isNumEqual(f.arg, 1) {
		return "E"
	}
	return f.name + "(" + f.arg.String() + ")"
}

func (f *Func) LaTeX() string {
	switch f.name {
	case "exp":
		if isNumEqual(f.arg, 1) {
			return "e"
		}
		return "e^{" + f.arg.LaTeX() + "}"
	case "sin", "cos", "tan":
		return "\\" + f.name + "{\\left(" + f.arg.LaTeX() + " \\right)}"
	case "ln":
		return "\\log{\\left(" + f.arg.LaTeX() + " \\right)}"
	case "asin", "acos", "atan":
		return "\\operatorname{" + f.name + "}{\\left(" + f.arg.LaTeX() + " \\right)}"
	case "abs":
		return "\\left|{" + f.arg.LaTeX() + "}\\right|"
	}
	return "\\operatorname{" + f.name + "}\\left(" + f.arg.LaTeX() + "\\right)"
}

func (f *Func) Sub(name string, value Expr) Expr {
	return funcOf(f.name, f.arg.Sub(name, value)).Simplify()
}

func (f *Func) Diff(name string) Expr {
	du := f.arg.Diff(name)
	if IsZero(du) {
		return N(0)
	}
	var outer Expr
	switch f.name {
	case "sin":
		outer = CosOf(f.arg)
	case "cos":
		outer = Neg(SinOf(f.arg))
	case "tan":
		outer = AddOf(N(1), PowOf(TanOf(f.arg), N(2)))
	case "exp":
		outer = ExpOf(f.arg)
	case "ln":
		outer = PowOf(f.arg, N(-1))
	case "abs":
		outer = MulOf(f.arg, PowOf(AbsOf(f.arg), N(-1)))
	case "asin":
		outer = PowOf(Subtract(N(1), PowOf(f.arg, N(2))), F(-1, 2))
	case "acos":
		outer = Neg(PowOf(Subtract(N(1), PowOf(f.arg, N(2))), F(-1, 2)))
	case "atan":
		outer = PowOf(AddOf(N(1), PowOf(f.arg, N(2))), N(-1))
	default:
		outer = funcOf("D"+f.name, f.arg)
	}
	return MulOf(outer, du)
}

var floatFuncs = map[string]func(float64) float64{
	"sin":  math.Sin,
	"cos":  math.Cos,
	"tan":  math.Tan,
	"exp":  math.Exp,
	"ln":   math.Log,
	"abs":  math.Abs,
	"asin": math.Asin,
	"acos": math.Acos,
	"atan": math.Atan,
}

func (f *Func) Eval() (*Num, bool) {
	n, ok := f.arg.Eval()
	if !ok {
		return nil, false
	}
	fn, ok := floatFuncs[f.name]
	if !ok {
		return nil, false
	}
	r := NFloat(fn(n.Float64()))
	return r, r != nil
}

func (f *Func) Equal(other Expr) bool {
	o, ok := other.(*Func)
	return ok && f.name == o.name && f.arg.Equal(o.arg)
}

func (f *Func) exprType() string { return "func" }
func (f *Func) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "func", "name": f.name, "arg": f.arg.toJSON()}
}
func (f *Func) FuncName() string { return f.name }
func (f *Func) Arg() Expr        { return f.arg }

// NewFunc builds a known elementary function by name.
func NewFunc(name string, arg Expr) (Expr, bool) {
	name = strings.ToLower(name)
	if name == "log" {
		name = "ln"
	}
	if _, ok := floatFuncs[name]; !ok {
		return nil, false
	}
	return funcOf(name, arg).Simplify(), true
}
