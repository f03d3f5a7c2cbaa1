package symbolic

import "errors"

// ============================================================
// Integration (rule-based, indefinite)
// ============================================================

// ErrNoIntegral reports that no rule produced a closed-form antiderivative.
var ErrNoIntegral = errors.New("no closed-form antiderivative")

// Integrate returns an antiderivative of expr with respect to name, without
// the constant of integration. ln is used for 1/x, matching ODE conventions.
func Integrate(expr Expr, name string) (Expr, bool) {
	e := expr.Simplify()
	if r, ok := integrate(e, name); ok {
		return r.Simplify(), true
	}
	if ex := Expand(e); !ex.Equal(e) {
		if r, ok := integrate(ex, name); ok {
			return r.Simplify(), true
		}
	}
	return nil, false
}

func integrate(e Expr, x string) (Expr, bool) {
	if !Contains(e, x) {
		return MulOf(e, S(x)), true
	}
	switch v := e.(type) {
	case *Sym:
		return MulOf(F(1, 2), PowOf(v, N(2))), true
	case *Add:
		terms := make([]Expr, len(v.terms))
		for i, t := range v.terms {
			it, ok := Integrate(t, x)
			if !ok {
				return nil, false
			}
			terms[i] = it
		}
		return AddOf(terms...), true
	case *Mul:
		var consts, deps []Expr
		for _, f := range v.factors {
			if Contains(f, x) {
				deps = append(deps, f)
			} else {
				consts = append(consts, f)
			}
		}
		var r Expr
		var ok bool
		if len(deps) == 1 {
			r, ok = integrate(deps[0], x)
		} else {
			r, ok = integrateProduct(deps, x)
		}
		if !ok {
			return nil, false
		}
		return MulOf(append(consts, r)...), true
	case *Pow:
		return integratePow(v, x)
	case *Func:
		return integrateFunc(v, x)
	}
	return nil, false
}

func integratePow(p *Pow, x string) (Expr, bool) {
	if a, _, ok := Linear(p.base, x); ok && !Contains(p.exp, x) {
		if n, isNum := p.exp.(*Num); isNum && n.IsNegOne() {
			return Quo(LnOf(p.base), a), true
		}
		if n, isNum := p.exp.(*Num); isNum {
			k := numAdd(n, N(1))
			return Quo(PowOf(p.base, k), MulOf(a, k)), true
		}
		return nil, false
	}
	if !Contains(p.base, x) {
		if c, _, ok := Linear(p.exp, x); ok {
			return Quo(p, MulOf(c, LnOf(p.base))), true
		}
	}
	if n, ok := p.exp.(*Num); ok && n.IsInteger() && n.IsNegative() {
		return integrateRational(N(1), p, x)
	}
	return nil, false
}

func integrateFunc(f *Func, x string) (Expr, bool) {
	a, _, ok := Linear(f.arg, x)
	if !ok {
		return nil, false
	}
	u := f.arg
	switch f.name {
	case "exp":
		return Quo(f, a), true
	case "sin":
		return Quo(Neg(CosOf(u)), a), true
	case "cos":
		return Quo(SinOf(u), a), true
	case "tan":
		return Quo(Neg(LnOf(CosOf(u))), a), true
	case "ln":
		return Quo(Subtract(MulOf(u, LnOf(u)), u), a), true
	case "atan":
		return Quo(Subtract(MulOf(u, AtanOf(u)), MulOf(F(1, 2), LnOf(AddOf(N(1), PowOf(u, N(2)))))), a), true
	}
	return nil, false
}

// integrateProduct handles products of several x-dependent factors.
func integrateProduct(fs []Expr, x string) (Expr, bool) {
	if r, ok := derivativeDivides(fs, x); ok {
		return r, true
	}
	if r, ok := byParts(fs, x); ok {
		return r, true
	}
	if r, ok := expTrig(fs, x); ok {
		return r, true
	}
	if r, ok := logPower(fs, x); ok {
		return r, true
	}
	var num, den []Expr
	for _, f := range fs {
		if p, ok := f.(*Pow); ok {
			if n, ok := p.exp.(*Num); ok && n.IsNegative() {
				den = append(den, PowOf(p.base, numNeg(n)))
				continue
			}
		}
		num = append(num, f)
	}
	if len(den) > 0 {
		return integrateRational(MulOf(num...), PowOf(MulOf(den...), N(-1)), x)
	}
	return nil, false
}

// derivativeDivides recognises g(u(x)) * c*u'(x) for a single composite
// factor and integrates by substitution.
func derivativeDivides(fs []Expr, x string) (Expr, bool) {
	for i, f := range fs {
		var inner Expr
		var outer func(Expr) (Expr, bool)
		switch v := f.(type) {
		case *Func:
			inner = v.arg
			name := v.name
			outer = func(u Expr) (Expr, bool) {
				r, ok := integrateFunc(funcOf(name, S("_u")).Simplify().(*Func), "_u")
				if !ok {
					return nil, false
				}
				return r.Sub("_u", u).Simplify(), true
			}
		case *Pow:
			n, ok := v.exp.(*Num)
			if !ok {
				continue
			}
			inner = v.base
			outer = func(u Expr) (Expr, bool) {
				if n.IsNegOne() {
					return LnOf(u), true
				}
				k := numAdd(n, N(1))
				return Quo(PowOf(u, k), k), true
			}
		default:
			continue
		}
		if _, isSym := inner.(*Sym); isSym {
			continue
		}
		du := Diff(inner, x)
		if IsZero(du) {
			continue
		}
		rest := make([]Expr, 0, len(fs)-1)
		for j, g := range fs {
			if j != i {
				rest = append(rest, g)
			}
		}
		ratio := Expand(Quo(MulOf(rest...), du))
		if Contains(ratio, x) {
			continue
		}
		r, ok := outer(inner)
		if !ok {
			continue
		}
		return MulOf(ratio, r), true
	}
	return nil, false
}

// byParts integrates polynomial * {exp, sin, cos}(a*x+b) with the tabular
// method.
func byParts(fs []Expr, x string) (Expr, bool) {
	var g *Func
	var poly []Expr
	for _, f := range fs {
		if fn, ok := f.(*Func); ok && (fn.name == "exp" || fn.name == "sin" || fn.name == "cos") {
			if g != nil {
				return nil, false
			}
			if _, _, ok := Linear(fn.arg, x); !ok {
				return nil, false
			}
			g = fn
			continue
		}
		poly = append(poly, f)
	}
	if g == nil {
		return nil, false
	}
	p := MulOf(poly...)
	deg := Degree(p, x)
	if deg < 1 {
		return nil, false
	}
	var terms []Expr
	anti := Expr(g)
	deriv := p
	for k := 0; k <= deg; k++ {
		next, ok := integrate(anti, x)
		if !ok {
			return nil, false
		}
		anti = next
		term := MulOf(deriv, anti)
		if k%2 == 1 {
			term = Neg(term)
		}
		terms = append(terms, term)
		deriv = Diff(deriv, x)
	}
	return Expand(AddOf(terms...)), true
}

// expTrig integrates exp(p) * sin(q) and exp(p) * cos(q) for linear p, q.
func expTrig(fs []Expr, x string) (Expr, bool) {
	if len(fs) != 2 {
		return nil, false
	}
	var ex, tr *Func
	for _, f := range fs {
		fn, ok := f.(*Func)
		if !ok {
			return nil, false
		}
		switch fn.name {
		case "exp":
			ex = fn
		case "sin", "cos":
			tr = fn
		}
	}
	if ex == nil || tr == nil {
		return nil, false
	}
	a, _, ok1 := Linear(ex.arg, x)
	b, _, ok2 := Linear(tr.arg, x)
	if !ok1 || !ok2 {
		return nil, false
	}
	den := AddOf(PowOf(a, N(2)), PowOf(b, N(2)))
	s, c := SinOf(tr.arg), CosOf(tr.arg)
	var num Expr
	if tr.name == "sin" {
		num = Subtract(MulOf(a, s), MulOf(b, c))
	} else {
		num = AddOf(MulOf(a, c), MulOf(b, s))
	}
	return Expand(Quo(MulOf(ex, num), den)), true
}

// logPower integrates x^n * ln(x).
func logPower(fs []Expr, x string) (Expr, bool) {
	if len(fs) != 2 {
		return nil, false
	}
	var lnf *Func
	var other Expr
	for _, f := range fs {
		if fn, ok := f.(*Func); ok && fn.name == "ln" {
			lnf = fn
		} else {
			other = f
		}
	}
	if lnf == nil || other == nil {
		return nil, false
	}
	if s, ok := lnf.arg.(*Sym); !ok || s.name != x {
		return nil, false
	}
	base, exp := asPow(other)
	if s, ok := base.(*Sym); !ok || s.name != x {
		return nil, false
	}
	n, ok := exp.(*Num)
	if !ok {
		return nil, false
	}
	if n.IsNegOne() {
		return MulOf(F(1, 2), PowOf(lnf, N(2))), true
	}
	k := numAdd(n, N(1))
	xk := PowOf(S(x), k)
	return Subtract(Quo(MulOf(xk, lnf), k), Quo(xk, MulOf(k, k))), true
}

// integrateRational integrates num/den when both are polynomials in x with
// rational coefficients and den splits into distinct rational linear
// factors or is an irreducible quadratic.
func integrateRational(num, recipDen Expr, x string) (Expr, bool) {
	den := PowOf(recipDen, N(-1))
	np, ok1 := NumericPoly(num, x)
	dp, ok2 := NumericPoly(den, x)
	if !ok1 || !ok2 || len(dp) < 2 {
		return nil, false
	}
	q, r := polyDivMod(np, dp)
	X := S(x)
	var out []Expr
	if pq := polyExpr(q, X); !IsZero(pq) {
		iq, ok := integrate(Expand(pq), x)
		if !ok {
			return nil, false
		}
		out = append(out, iq)
	}
	r = trimPoly(r)
	if len(r) == 1 && r[0].IsZero() {
		return AddOf(out...), true
	}
	roots, rest := RationalRoots(dp)
	if len(rest) == 1 && len(roots) == len(dp)-1 && distinct(roots) {
		// Residues at simple poles: r(a)/d'(a).
		dd := polyDeriv(dp)
		for _, a := range roots {
			res := numDiv(polyEval(r, a), polyEval(dd, a))
			if res.IsZero() {
				continue
			}
			out = append(out, MulOf(res, LnOf(Subtract(X, a))))
		}
		return AddOf(out...), true
	}
	if len(dp) == 3 && len(r) <= 2 {
		a, b, c := dp[2], dp[1], dp[0]
		disc := numSub(numMul(N(4), numMul(a, c)), numMul(b, b))
		if !disc.IsPositive() {
			return nil, false
		}
		p := N(0)
		if len(r) == 2 {
			p = r[1]
		}
		q0 := r[0]
		quad := polyExpr(dp, X)
		sq := SqrtOf(disc)
		// (p x + q)/(a x^2 + b x + c)
		logPart := MulOf(numDiv(p, numMul(N(2), a)), LnOf(quad))
		k := numSub(q0, numDiv(numMul(p, b), numMul(N(2), a)))
		atanArg := Quo(AddOf(MulOf(numMul(N(2), a), X), b), sq)
		atanPart := MulOf(k, N(2), PowOf(sq, N(-1)), AtanOf(atanArg))
		out = append(out, logPart, atanPart)
		return AddOf(out...), true
	}
	return nil, false
}

func distinct(ns []*Num) bool {
	for i := 1; i < len(ns); i++ {
		if numCmp(ns[i-1], ns[i]) == 0 {
			return false
		}
	}
	return true
}
