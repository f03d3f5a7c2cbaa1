package symbolic

import (
	"math"
	"sort"
	"strings"
)

// ============================================================
// Add: sum of terms
// ============================================================

type Add struct{ terms []Expr }

func AddOf(terms ...Expr) Expr { return (&Add{terms: terms}).Simplify() }

// Simplify flattens nested sums, folds numbers and collects like terms
// (terms equal up to a numeric coefficient).
func (a *Add) Simplify() Expr {
	flat := make([]Expr, 0, len(a.terms))
	for _, t := range a.terms {
		s := t.Simplify()
		if inner, ok := s.(*Add); ok {
			flat = append(flat, inner.terms...)
		} else {
			flat = append(flat, s)
		}
	}
	constant := N(0)
	type group struct {
		coeff *Num
		rest  Expr
	}
	groups := map[string]*group{}
	keys := []string{}
	for _, t := range flat {
		if n, ok := t.(*Num); ok {
			constant = numAdd(constant, n)
			continue
		}
		c, rest := splitCoeff(t)
		key := rest.String()
		g, seen := groups[key]
		if !seen {
			g = &group{coeff: N(0), rest: rest}
			groups[key] = g
			keys = append(keys, key)
		}
		g.coeff = numAdd(g.coeff, c)
	}
	sort.Strings(keys)
	result := make([]Expr, 0, len(keys)+1)
	for _, k := range keys {
		g := groups[k]
		if g.coeff.IsZero() {
			continue
		}
		result = append(result, scale(g.coeff, g.rest))
	}
	if !constant.IsZero() {
		result = append(result, constant)
	}
	switch len(result) {
	case 0:
		return N(0)
	case 1:
		return result[0]
	}
	return &Add{terms: result}
}

func (a *Add) String() string {
	if len(a.terms) == 0 {
		return "0"
	}
	var sb strings.Builder
	for i, t := range a.terms {
		c, _ := splitCoeff(t)
		switch {
		case i == 0:
			sb.WriteString(t.String())
		case c.IsNegative():
			sb.WriteString(" - ")
			sb.WriteString(Neg(t).String())
		default:
			sb.WriteString(" + ")
			sb.WriteString(t.String())
		}
	}
	return sb.String()
}

func (a *Add) LaTeX() string {
	var sb strings.Builder
	for i, t := range a.terms {
		c, _ := splitCoeff(t)
		switch {
		case i == 0:
			sb.WriteString(t.LaTeX())
		case c.IsNegative():
			sb.WriteString(" - ")
			sb.WriteString(Neg(t).LaTeX())
		default:
			sb.WriteString(" + ")
			sb.WriteString(t.LaTeX())
		}
	}
	return sb.String()
}

func (a *Add) Sub(name string, value Expr) Expr {
	newTerms := make([]Expr, len(a.terms))
	for i, t := range a.terms {
		newTerms[i] = t.Sub(name, value)
	}
	return AddOf(newTerms...)
}

func (a *Add) Diff(name string) Expr {
	dTerms := make([]Expr, len(a.terms))
	for i, t := range a.terms {
		dTerms[i] = t.Diff(name)
	}
	return AddOf(dTerms...)
}

func (a *Add) Eval() (*Num, bool) {
	acc := N(0)
	for _, t := range a.terms {
		v, ok := t.Eval()
		if !ok {
			return nil, false
		}
		acc = numAdd(acc, v)
	}
	return acc, true
}

func (a *Add) Equal(other Expr) bool {
	o, ok := other.(*Add)
	if !ok || len(a.terms) != len(o.terms) {
		return false
	}
	for i := range a.terms {
		if !a.terms[i].Equal(o.terms[i]) {
			return false
		}
	}
	return true
}

func (a *Add) exprType() string { return "add" }
func (a *Add) toJSON() map[string]interface{} {
	ts := make([]map[string]interface{}, len(a.terms))
	for i, t := range a.terms {
		ts[i] = t.toJSON()
	}
	return map[string]interface{}{"type": "add", "terms": ts}
}
func (a *Add) Terms() []Expr { return a.terms }

// Terms returns the summands of e, or e itself when it is not a sum.
func Terms(e Expr) []Expr {
	if a, ok := e.(*Add); ok {
		return a.terms
	}
	return []Expr{e}
}

// ============================================================
// Mul: product of factors
// ============================================================

type Mul struct{ factors []Expr }

func MulOf(factors ...Expr) Expr { return (&Mul{factors: factors}).Simplify() }

// Simplify flattens nested products, folds the numeric coefficient, merges
// powers of a common base and combines exponentials into one exp(...).
// A numeric coefficient times a single sum is distributed.
func (m *Mul) Simplify() Expr {
	flat := make([]Expr, 0, len(m.factors))
	for _, f := range m.factors {
		s := f.Simplify()
		if inner, ok := s.(*Mul); ok {
			flat = append(flat, inner.factors...)
		} else {
			flat = append(flat, s)
		}
	}

	coeff := N(1)
	type powGroup struct {
		base Expr
		exps []Expr
	}
	groups := map[string]*powGroup{}
	order := []string{}
	var expArgs []Expr
	for _, f := range flat {
		switch v := f.(type) {
		case *Num:
			coeff = numMul(coeff, v)
			continue
		case *Func:
			if v.name == "exp" {
				expArgs = append(expArgs, v.arg)
				continue
			}
		}
		base, exp := asPow(f)
		key := base.String()
		g, seen := groups[key]
		if !seen {
			g = &powGroup{base: base}
			groups[key] = g
			order = append(order, key)
		}
		g.exps = append(g.exps, exp)
	}
	if coeff.IsZero() {
		return N(0)
	}

	others := make([]Expr, 0, len(order)+1)
	// absorb folds a rebuilt factor back into the product.
	needsResimplify := false
	absorb := func(e Expr) {
		switch v := e.(type) {
		case *Num:
			coeff = numMul(coeff, v)
		case *Mul:
			needsResimplify = true
			others = append(others, v.factors...)
		default:
			others = append(others, e)
		}
	}
	for _, key := range order {
		g := groups[key]
		var exp Expr
		if len(g.exps) == 1 {
			exp = g.exps[0]
		} else {
			exp = AddOf(g.exps...)
		}
		absorb(PowOf(g.base, exp))
	}
	if len(expArgs) > 0 {
		var arg Expr
		if len(expArgs) == 1 {
			arg = expArgs[0]
		} else {
			arg = AddOf(expArgs...)
		}
		absorb(ExpOf(arg))
	}
	if needsResimplify {
		return (&Mul{factors: append(others, coeff)}).Simplify()
	}
	if coeff.IsZero() {
		return N(0)
	}
	if len(others) == 0 {
		return coeff
	}
	sortFactors(others)

	if !coeff.IsOne() && len(others) == 1 {
		if sum, ok := others[0].(*Add); ok {
			terms := make([]Expr, len(sum.terms))
			for i, t := range sum.terms {
				terms[i] = MulOf(coeff, t)
			}
			return AddOf(terms...)
		}
	}
	if coeff.IsOne() {
		if len(others) == 1 {
			return others[0]
		}
		return &Mul{factors: others}
	}
	return &Mul{factors: append([]Expr{coeff}, others...)}
}

// asPow views any factor as base^exp.
func asPow(e Expr) (Expr, Expr) {
	if p, ok := e.(*Pow); ok {
		return p.base, p.exp
	}
	return e, N(1)
}

func factorRank(e Expr) int {
	switch e.(type) {
	case *Num:
		return 0
	case *Sym, *Const:
		return 1
	case *Pow:
		if _, ok := e.(*Pow).base.(*Sym); ok {
			return 1
		}
		return 2
	case *Add:
		return 3
	case *Func:
		return 4
	}
	return 5
}

func sortFactors(fs []Expr) {
	type keyed struct {
		e    Expr
		rank int
		key  string
	}
	ks := make([]keyed, len(fs))
	for i, e := range fs {
		ks[i] = keyed{e: e, rank: factorRank(e), key: e.String()}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		if ks[i].rank != ks[j].rank {
			return ks[i].rank < ks[j].rank
		}
		return ks[i].key < ks[j].key
	})
	for i := range ks {
		fs[i] = ks[i].e
	}
}

// Factors returns the multiplicands of e, or e itself when it is not a product.
func Factors(e Expr) []Expr {
	if m, ok := e.(*Mul); ok {
		return m.factors
	}
	return []Expr{e}
}

// fraction splits a product into numerator and denominator factor lists.
func fraction(m *Mul) (coeff *Num, num, den []Expr) {
	coeff, rest := splitCoeff(m)
	for _, f := range Factors(rest) {
		if p, ok := f.(*Pow); ok {
			if en, ok := p.exp.(*Num); ok && en.IsNegative() {
				den = append(den, PowOf(p.base, numNeg(en)))
				continue
			}
		}
		num = append(num, f)
	}
	return coeff, num, den
}

func (m *Mul) String() string {
	if len(m.factors) == 0 {
		return "1"
	}
	coeff, num, den := fraction(m)
	sign := ""
	if coeff.IsNegative() {
		sign = "-"
		coeff = numAbs(coeff)
	}
	numParts := []string{}
	denParts := []string{}
	if !coeff.val.IsInt() {
		if c := coeff.val.Num(); c.Cmp(bigOne) != 0 {
			numParts = append(numParts, c.String())
		}
		denParts = append(denParts, coeff.val.Denom().String())
	} else if !coeff.IsOne() {
		numParts = append(numParts, coeff.String())
	}
	for _, f := range num {
		numParts = append(numParts, wrapString(f, true))
	}
	for _, f := range den {
		denParts = append(denParts, wrapString(f, true))
	}
	s := strings.Join(numParts, "*")
	if s == "" {
		s = "1"
	}
	if len(denParts) > 0 {
		d := strings.Join(denParts, "*")
		if len(denParts) > 1 {
			d = "(" + d + ")"
		}
		s += "/" + d
	}
	return sign + s
}

func (m *Mul) LaTeX() string {
	coeff, num, den := fraction(m)
	sign := ""
	if coeff.IsNegative() {
		sign = "-"
		coeff = numAbs(coeff)
	}
	numParts := []string{}
	denParts := []string{}
	if !coeff.val.IsInt() {
		if c := coeff.val.Num(); c.Cmp(bigOne) != 0 {
			numParts = append(numParts, c.String())
		}
		denParts = append(denParts, coeff.val.Denom().String())
	} else if !coeff.IsOne() {
		numParts = append(numParts, coeff.String())
	}
	for _, f := range num {
		numParts = append(numParts, wrapLaTeX(f))
	}
	for _, f := range den {
		denParts = append(denParts, wrapLaTeX(f))
	}
	s := strings.Join(numParts, " ")
	if len(denParts) == 0 {
		return sign + s
	}
	if s == "" {
		s = "1"
	}
	return sign + "\\frac{" + s + "}{" + strings.Join(denParts, " ") + "}"
}

func wrapString(e Expr, inProduct bool) string {
	switch v := e.(type) {
	case *Add:
		return "(" + v.String() + ")"
	case *Num:
		if inProduct && (v.IsNegative() || !v.IsInteger()) {
			return "(" + v.String() + ")"
		}
	}
	return e.String()
}

func wrapLaTeX(e Expr) string {
	if _, ok := e.(*Add); ok {
		return "\\left(" + e.LaTeX() + "\\right)"
	}
	return e.LaTeX()
}

func (m *Mul) Sub(name string, value Expr) Expr {
	newFactors := make([]Expr, len(m.factors))
	for i, f := range m.factors {
		newFactors[i] = f.Sub(name, value)
	}
	return MulOf(newFactors...)
}

func (m *Mul) Diff(name string) Expr {
	terms := make([]Expr, len(m.factors))
	for i, fi := range m.factors {
		dfi := fi.Diff(name)
		others := make([]Expr, 0, len(m.factors))
		others = append(others, dfi)
		for j, fj := range m.factors {
			if j != i {
				others = append(others, fj)
			}
		}
		terms[i] = MulOf(others...)
	}
	return AddOf(terms...)
}

func (m *Mul) Eval() (*Num, bool) {
	acc := N(1)
	for _, f := range m.factors {
		v, ok := f.Eval()
		if !ok {
			return nil, false
		}
		acc = numMul(acc, v)
	}
	return acc, true
}

func (m *Mul) Equal(other Expr) bool {
	o, ok := other.(*Mul)
	if !ok || len(m.factors) != len(o.factors) {
		return false
	}
	for i := range m.factors {
		if !m.factors[i].Equal(o.factors[i]) {
			return false
		}
	}
	return true
}

func (m *Mul) exprType() string { return "mul" }
func (m *Mul) toJSON() map[string]interface{} {
	fs := make([]map[string]interface{}, len(m.factors))
	for i, f := range m.factors {
		fs[i] = f.toJSON()
	}
	return map[string]interface{}{"type": "mul", "factors": fs}
}
func (m *Mul) Factors() []Expr { return m.factors }

// ============================================================
// Pow: base^exponent
// ============================================================

type Pow struct{ base, exp Expr }

func PowOf(base, exp Expr) Expr { return (&Pow{base: base, exp: exp}).Simplify() }
func SqrtOf(arg Expr) Expr      { return PowOf(arg, F(1, 2)) }

func (p *Pow) Simplify() Expr {
	base := p.base.Simplify()
	exp := p.exp.Simplify()

	en, expIsNum := exp.(*Num)
	if expIsNum && en.IsZero() {
		return N(1)
	}
	if expIsNum && en.IsOne() {
		return base
	}

	if bn, ok := base.(*Num); ok {
		switch {
		case bn.IsZero():
			// 0^0 and 0^negative stay unevaluated.
			if expIsNum && en.IsPositive() {
				return N(0)
			}
			return &Pow{base: base, exp: exp}
		case bn.IsOne():
			return N(1)
		}
		if expIsNum {
			if e, ok := en.Int64(); ok && e >= -64 && e <= 64 {
				return numPowInt(bn, e)
			}
			if r, ok := numRationalPow(bn, en); ok {
				return r
			}
		}
	}

	switch b := base.(type) {
	case *Pow:
		// (b^e1)^e2 = b^(e1*e2) holds for integer e2.
		if expIsNum && en.IsInteger() {
			return PowOf(b.base, MulOf(b.exp, exp))
		}
	case *Mul:
		if expIsNum && en.IsInteger() {
			fs := make([]Expr, len(b.factors))
			for i, f := range b.factors {
				fs[i] = PowOf(f, exp)
			}
			return MulOf(fs...)
		}
		if c, rest := splitCoeff(b); expIsNum && c.IsPositive() && !c.IsOne() {
			return MulOf(PowOf(c, exp), PowOf(rest, exp))
		}
	case *Func:
		if b.name == "exp" && expIsNum {
			return ExpOf(MulOf(exp, b.arg))
		}
	}
	return &Pow{base: base, exp: exp}
}

// numRationalPow evaluates b^(p/q) when the q-th root of b is exact.
func numRationalPow(b, e *Num) (Expr, bool) {
	if b.IsNegative() {
		return nil, false
	}
	q := e.val.Denom()
	if !q.IsInt64() || q.Int64() > 16 {
		return nil, false
	}
	num, ok1 := intRoot(b.val.Num(), q.Int64())
	den, ok2 := intRoot(b.val.Denom(), q.Int64())
	if !ok1 || !ok2 {
		return nil, false
	}
	root := &Num{val: newRat(num, den)}
	p := e.val.Num()
	if !p.IsInt64() {
		return nil, false
	}
	return numPowInt(root, p.Int64()), true
}

func (p *Pow) String() string {
	if en, ok := p.exp.(*Num); ok {
		if en.IsNegative() {
			return "1/" + wrapString(PowOf(p.base, numNeg(en)), true)
		}
		if en.Equal(F(1, 2)) {
			return "sqrt(" + p.base.String() + ")"
		}
	}
	baseStr := p.base.String()
	switch v := p.base.(type) {
	case *Add, *Mul, *Pow:
		baseStr = "(" + baseStr + ")"
	case *Num:
		if v.IsNegative() || !v.IsInteger() {
			baseStr = "(" + baseStr + ")"
		}
	}
	expStr := p.exp.String()
	switch v := p.exp.(type) {
	case *Sym, *Const:
	case *Num:
		if v.IsNegative() || !v.IsInteger() {
			expStr = "(" + expStr + ")"
		}
	default:
		expStr = "(" + expStr + ")"
	}
	return baseStr + "^" + expStr
}

func (p *Pow) LaTeX() string {
	if en, ok := p.exp.(*Num); ok {
		if en.IsNegative() {
			return "\\frac{1}{" + PowOf(p.base, numNeg(en)).LaTeX() + "}"
		}
		if en.Equal(F(1, 2)) {
			return "\\sqrt{" + p.base.LaTeX() + "}"
		}
	}
	baseStr := p.base.LaTeX()
	switch p.base.(type) {
	case *Add, *Mul, *Pow:
		baseStr = "\\left(" + baseStr + "\\right)"
	}
	return baseStr + "^{" + p.exp.LaTeX() + "}"
}

func (p *Pow) Sub(name string, value Expr) Expr {
	return PowOf(p.base.Sub(name, value), p.exp.Sub(name, value))
}

func (p *Pow) Diff(name string) Expr {
	du := p.base.Diff(name)
	dv := p.exp.Diff(name)
	if IsZero(dv) {
		newExp := AddOf(p.exp, N(-1))
		return MulOf(p.exp, PowOf(p.base, newExp), du)
	}
	if IsZero(du) {
		return MulOf(PowOf(p.base, p.exp), LnOf(p.base), dv)
	}
	logTerm := MulOf(dv, LnOf(p.base))
	divTerm := MulOf(p.exp, du, PowOf(p.base, N(-1)))
	return MulOf(PowOf(p.base, p.exp), AddOf(logTerm, divTerm))
}

func (p *Pow) Eval() (*Num, bool) {
	b, ok1 := p.base.Eval()
	e, ok2 := p.exp.Eval()
	if !ok1 || !ok2 {
		return nil, false
	}
	if ei, ok := e.Int64(); ok && ei >= -64 && ei <= 64 && !(b.IsZero() && ei <= 0) {
		return numPowInt(b, ei), true
	}
	r := NFloat(math.Pow(b.Float64(), e.Float64()))
	return r, r != nil
}

func (p *Pow) Equal(other Expr) bool {
	o, ok := other.(*Pow)
	return ok && p.base.Equal(o.base) && p.exp.Equal(o.exp)
}

func (p *Pow) exprType() string { return "pow" }
func (p *Pow) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "pow", "base": p.base.toJSON(), "exp": p.exp.toJSON()}
}
func (p *Pow) Base() Expr    { return p.base }
func (p *Pow) ExpExpr() Expr { return p.exp }
