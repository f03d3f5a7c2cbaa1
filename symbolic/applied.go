package symbolic

import (
	"fmt"
	"strings"
)

// ============================================================
// Applied: undefined function application, y(x)
// ============================================================

type Applied struct {
	name string
	arg  Expr
}

// Apply builds the application of the undefined function name to arg.
func Apply(name string, arg Expr) *Applied { return &Applied{name: name, arg: arg} }

func (a *Applied) Simplify() Expr { return &Applied{name: a.name, arg: a.arg.Simplify()} }
func (a *Applied) String() string { return a.name + "(" + a.arg.String() + ")" }
func (a *Applied) LaTeX() string {
	return a.name + "{\\left(" + a.arg.LaTeX() + " \\right)}"
}
func (a *Applied) Sub(name string, value Expr) Expr {
	return &Applied{name: a.name, arg: a.arg.Sub(name, value).Simplify()}
}
func (a *Applied) Diff(name string) Expr {
	if s, ok := a.arg.(*Sym); ok {
		if s.name == name {
			return &Derivative{fn: a, wrt: name, order: 1}
		}
		return N(0)
	}
	du := a.arg.Diff(name)
	if IsZero(du) {
		return N(0)
	}
	return MulOf(&Derivative{fn: a, wrt: name, order: 1}, du)
}
func (a *Applied) Eval() (*Num, bool) { return nil, false }
func (a *Applied) Equal(other Expr) bool {
	o, ok := other.(*Applied)
	return ok && o.name == a.name && a.arg.Equal(o.arg)
}
func (a *Applied) exprType() string { return "applied" }
func (a *Applied) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "applied", "name": a.name, "arg": a.arg.toJSON()}
}
func (a *Applied) FuncName() string { return a.name }
func (a *Applied) Arg() Expr        { return a.arg }

// ============================================================
// Derivative: d^n/dx^n of an applied function
// ============================================================

type Derivative struct {
	fn    *Applied
	wrt   string
	order int
}

// NewDerivative returns the order-th derivative of fn with respect to wrt.
func NewDerivative(fn *Applied, wrt string, order int) Expr {
	if order <= 0 {
		return fn
	}
	return &Derivative{fn: fn, wrt: wrt, order: order}
}

func (d *Derivative) Simplify() Expr { return d }
func (d *Derivative) String() string {
	if d.order == 1 {
		return fmt.Sprintf("Derivative(%s, %s)", d.fn, d.wrt)
	}
	return fmt.Sprintf("Derivative(%s, (%s, %d))", d.fn, d.wrt, d.order)
}
func (d *Derivative) LaTeX() string {
	if d.order == 1 {
		return fmt.Sprintf("\\frac{d}{d %s} %s", d.wrt, d.fn.LaTeX())
	}
	return fmt.Sprintf("\\frac{d^{%d}}{d %s^{%d}} %s", d.order, d.wrt, d.order, d.fn.LaTeX())
}
func (d *Derivative) Sub(name string, value Expr) Expr {
	if name == d.wrt {
		return d
	}
	return &Derivative{fn: d.fn.Sub(name, value).(*Applied), wrt: d.wrt, order: d.order}
}
func (d *Derivative) Diff(name string) Expr {
	if name != d.wrt {
		return N(0)
	}
	return &Derivative{fn: d.fn, wrt: d.wrt, order: d.order + 1}
}
func (d *Derivative) Eval() (*Num, bool) { return nil, false }
func (d *Derivative) Equal(other Expr) bool {
	o, ok := other.(*Derivative)
	return ok && o.order == d.order && o.wrt == d.wrt && o.fn.Equal(d.fn)
}
func (d *Derivative) exprType() string { return "derivative" }
func (d *Derivative) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "derivative", "fn": d.fn.toJSON(), "wrt": d.wrt, "order": d.order}
}
func (d *Derivative) Func() *Applied { return d.fn }
func (d *Derivative) Wrt() string    { return d.wrt }
func (d *Derivative) Order() int     { return d.order }

// ============================================================
// Equation
// ============================================================

type Equation struct{ LHS, RHS Expr }

func Eq(lhs, rhs Expr) *Equation { return &Equation{LHS: lhs, RHS: rhs} }
func (e *Equation) String() string {
	return e.LHS.String() + " = " + e.RHS.String()
}
func (e *Equation) LaTeX() string { return e.LHS.LaTeX() + " = " + e.RHS.LaTeX() }
func (e *Equation) Residual() Expr {
	return Subtract(e.LHS, e.RHS)
}

// OrderIn returns the highest derivative order of fn appearing in e, or -1
// when fn does not appear at all.
func OrderIn(e Expr, fn string) int {
	order := -1
	Walk(e, func(n Expr) bool {
		switch v := n.(type) {
		case *Applied:
			if v.name == fn && order < 0 {
				order = 0
			}
		case *Derivative:
			if v.fn.name == fn && v.order > order {
				order = v.order
			}
			return false
		}
		return true
	})
	return order
}

// PrimeNotation renders the n-th derivative of name the way users type it.
func PrimeNotation(name string, order int) string {
	if order <= 3 {
		return name + strings.Repeat("'", order)
	}
	return fmt.Sprintf("%s^(%d)", name, order)
}
