// Package symbolic is a deterministic computer-algebra kernel.
//
// Design goals:
//   - Exact rational arithmetic (math/big.Rat), no float folding of exact values
//   - Canonical simplification: like terms and like powers are collected
//   - Undefined functions y(x) and their derivatives as first-class nodes
//   - LaTeX output, JSON trees and a tool-call surface for agents
package symbolic

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

// ============================================================
// Core Interface
// ============================================================

type Expr interface {
	Simplify() Expr
	String() string
	LaTeX() string
	Sub(name string, value Expr) Expr
	Diff(name string) Expr
	Eval() (*Num, bool)
	Equal(other Expr) bool
	exprType() string
	toJSON() map[string]interface{}
}

// ============================================================
// Num: exact rational number
// ============================================================

type Num struct{ val *big.Rat }

func N(n int64) *Num { return &Num{val: new(big.Rat).SetInt64(n)} }
func F(p, q int64) *Num {
	if q == 0 {
		panic("symbolic: denominator is zero")
	}
	return &Num{val: new(big.Rat).SetFrac(big.NewInt(p), big.NewInt(q))}
}

// NFloat converts f exactly. NaN and infinities have no rational value and
// yield nil.
func NFloat(f float64) *Num {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &Num{val: new(big.Rat).SetFloat64(f)}
}

// ParseNum reads integers, decimals ("0.25") and fractions ("1/4") exactly.
func ParseNum(s string) (*Num, bool) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return nil, false
	}
	return &Num{val: r}, true
}

func (n *Num) Simplify() Expr        { return n }
func (n *Num) Sub(string, Expr) Expr { return n }
func (n *Num) Diff(string) Expr      { return N(0) }
func (n *Num) Eval() (*Num, bool)    { return n, true }
func (n *Num) Equal(other Expr) bool { o, ok := other.(*Num); return ok && n.val.Cmp(o.val) == 0 }
func (n *Num) exprType() string      { return "num" }
func (n *Num) Float64() float64      { f, _ := n.val.Float64(); return f }
func (n *Num) IsZero() bool          { return n.val.Sign() == 0 }
func (n *Num) IsOne() bool           { return n.val.Cmp(big.NewRat(1, 1)) == 0 }
func (n *Num) IsNegOne() bool        { return n.val.Cmp(big.NewRat(-1, 1)) == 0 }
func (n *Num) IsInteger() bool       { return n.val.IsInt() }
func (n *Num) Rat() *big.Rat         { return new(big.Rat).Set(n.val) }
func (n *Num) IsPositive() bool      { return n.val.Sign() > 0 }
func (n *Num) IsNegative() bool      { return n.val.Sign() < 0 }

// Int64 reports the value when it is an integer that fits in an int64.
func (n *Num) Int64() (int64, bool) {
	if !n.val.IsInt() || !n.val.Num().IsInt64() {
		return 0, false
	}
	return n.val.Num().Int64(), true
}

func (n *Num) String() string {
	if n.val.IsInt() {
		return n.val.Num().String()
	}
	return n.val.RatString()
}

func (n *Num) LaTeX() string {
	if n.val.IsInt() {
		return n.val.Num().String()
	}
	sign := ""
	v := new(big.Rat).Set(n.val)
	if v.Sign() < 0 {
		sign = "-"
		v.Neg(v)
	}
	return fmt.Sprintf("%s\\frac{%s}{%s}", sign, v.Num().String(), v.Denom().String())
}

func (n *Num) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "num", "value": n.String()}
}

var bigOne = big.NewInt(1)

func newRat(num, den *big.Int) *big.Rat { return new(big.Rat).SetFrac(num, den) }

func numAdd(a, b *Num) *Num { return &Num{val: new(big.Rat).Add(a.val, b.val)} }
func numSub(a, b *Num) *Num { return &Num{val: new(big.Rat).Sub(a.val, b.val)} }
func numMul(a, b *Num) *Num { return &Num{val: new(big.Rat).Mul(a.val, b.val)} }
func numNeg(a *Num) *Num    { return &Num{val: new(big.Rat).Neg(a.val)} }
func numRecip(a *Num) *Num {
	if a.IsZero() {
		panic("symbolic: division by zero")
	}
	return &Num{val: new(big.Rat).Inv(a.val)}
}
func numDiv(a, b *Num) *Num { return numMul(a, numRecip(b)) }
func numAbs(a *Num) *Num {
	r := new(big.Rat).Set(a.val)
	if r.Sign() < 0 {
		r.Neg(r)
	}
	return &Num{val: r}
}
func numCmp(a, b *Num) int { return a.val.Cmp(b.val) }

// numPowInt raises a to an integer power exactly.
func numPowInt(a *Num, e int64) *Num {
	neg := e < 0
	if neg {
		e = -e
	}
	num := new(big.Int).Exp(a.val.Num(), big.NewInt(e), nil)
	den := new(big.Int).Exp(a.val.Denom(), big.NewInt(e), nil)
	r := &Num{val: new(big.Rat).SetFrac(num, den)}
	if neg {
		return numRecip(r)
	}
	return r
}

// intRoot returns the exact q-th root of a non-negative integer, if any.
func intRoot(v *big.Int, q int64) (*big.Int, bool) {
	if v.Sign() < 0 {
		return nil, false
	}
	if v.Sign() == 0 || q == 1 {
		return new(big.Int).Set(v), true
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	guess := int64(math.Round(math.Pow(f, 1/float64(q))))
	for d := int64(-1); d <= 1; d++ {
		c := big.NewInt(guess + d)
		if c.Sign() < 0 {
			continue
		}
		if new(big.Int).Exp(c, big.NewInt(q), nil).Cmp(v) == 0 {
			return c, true
		}
	}
	return nil, false
}

// ============================================================
// Sym: symbolic variable
// ============================================================

type Sym struct{ name string }

func S(name string) *Sym      { return &Sym{name: name} }
func (s *Sym) Simplify() Expr { return s }
func (s *Sym) String() string { return s.name }
func (s *Sym) LaTeX() string {
	// C1 -> C_{1}
	i := strings.IndexAny(s.name, "0123456789")
	if i > 0 && !strings.ContainsRune(s.name, '_') {
		return s.name[:i] + "_{" + s.name[i:] + "}"
	}
	return s.name
}
func (s *Sym) Eval() (*Num, bool) {
	return nil, false
}
func (s *Sym) Equal(other Expr) bool { o, ok := other.(*Sym); return ok && s.name == o.name }
func (s *Sym) exprType() string      { return "sym" }
func (s *Sym) Name() string          { return s.name }
func (s *Sym) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "sym", "name": s.name}
}
func (s *Sym) Sub(name string, value Expr) Expr {
	if s.name == name {
		return value
	}
	return s
}
func (s *Sym) Diff(name string) Expr {
	if s.name == name {
		return N(1)
	}
	return N(0)
}

// ============================================================
// Const: named transcendental constant
// ============================================================

type Const struct {
	name  string
	latex string
	value float64
}

var Pi = &Const{name: "pi", latex: "\\pi", value: math.Pi}

func (c *Const) Simplify() Expr        { return c }
func (c *Const) String() string        { return c.name }
func (c *Const) LaTeX() string         { return c.latex }
func (c *Const) Sub(string, Expr) Expr { return c }
func (c *Const) Diff(string) Expr      { return N(0) }
func (c *Const) Eval() (*Num, bool)    { return NFloat(c.value), true }
func (c *Const) Equal(other Expr) bool { o, ok := other.(*Const); return ok && o.name == c.name }
func (c *Const) exprType() string      { return "const" }
func (c *Const) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "const", "name": c.name}
}

// ============================================================
// Helpers
// ============================================================

func isNumEqual(e Expr, v int64) bool {
	n, ok := e.(*Num)
	return ok && n.Equal(N(v))
}

// IsZero reports whether e simplifies to the exact number 0.
func IsZero(e Expr) bool { return isNumEqual(e.Simplify(), 0) }

func Neg(e Expr) Expr          { return MulOf(N(-1), e) }
func Subtract(a, b Expr) Expr  { return AddOf(a, Neg(b)) }
func Quo(num, den Expr) Expr   { return MulOf(num, PowOf(den, N(-1))) }
func Simplify(e Expr) Expr     { return e.Simplify() }
func String(e Expr) string     { return e.String() }
func LaTeX(e Expr) string      { return e.LaTeX() }
func Sub(e Expr, name string, value Expr) Expr {
	return e.Sub(name, value).Simplify()
}

func Diff(e Expr, name string) Expr { return e.Diff(name).Simplify() }

func DiffN(e Expr, name string, n int) Expr {
	result := e
	for i := 0; i < n; i++ {
		result = Diff(result, name)
	}
	return result
}

// splitCoeff separates the leading numeric coefficient of a canonical term.
func splitCoeff(e Expr) (*Num, Expr) {
	switch v := e.(type) {
	case *Num:
		return v, N(1)
	case *Mul:
		if c, ok := v.factors[0].(*Num); ok {
			rest := v.factors[1:]
			if len(rest) == 1 {
				return c, rest[0]
			}
			return c, &Mul{factors: rest}
		}
	}
	return N(1), e
}

// scale multiplies an already canonical, coefficient-free term by c.
func scale(c *Num, rest Expr) Expr {
	if c.IsOne() {
		return rest
	}
	if m, ok := rest.(*Mul); ok {
		return &Mul{factors: append([]Expr{c}, m.factors...)}
	}
	return &Mul{factors: []Expr{c, rest}}
}
