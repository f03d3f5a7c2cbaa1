package symbolic

import (
	"math/big"
	"sort"
)

// ============================================================
// Expansion
// ============================================================

// Expand distributes products over sums, expands small positive integer
// powers of sums and expands function arguments.
func Expand(e Expr) Expr { return expandExpr(e.Simplify()).Simplify() }

func expandExpr(e Expr) Expr {
	switch v := e.(type) {
	case *Mul:
		var result Expr = N(1)
		for _, f := range v.factors {
			result = distribute(result, expandExpr(f))
		}
		return result
	case *Add:
		newTerms := make([]Expr, len(v.terms))
		for i, t := range v.terms {
			newTerms[i] = expandExpr(t)
		}
		return AddOf(newTerms...)
	case *Pow:
		base := expandExpr(v.base)
		if n, ok := v.exp.(*Num); ok {
			if k, ok := n.Int64(); ok && k >= 2 && k <= 10 {
				if _, isAdd := base.(*Add); isAdd {
					result := base
					for i := int64(1); i < k; i++ {
						result = distribute(result, base)
					}
					return result
				}
			}
		}
		return PowOf(base, expandExpr(v.exp))
	case *Func:
		return funcOf(v.name, expandExpr(v.arg)).Simplify()
	case *Applied:
		return v
	}
	return e
}

// distribute multiplies two expanded expressions term by term. Products of
// single terms never hold a sum of the operands, so the sum is rebuilt here
// rather than by MulOf, which would fold (a+b)*(a+b) back into a power.
func distribute(a, b Expr) Expr {
	ta, tb := Terms(a), Terms(b)
	if len(ta) == 1 && len(tb) == 1 {
		return settle(MulOf(ta[0], tb[0]))
	}
	out := make([]Expr, 0, len(ta)*len(tb))
	for _, p := range ta {
		for _, q := range tb {
			out = append(out, settle(MulOf(p, q)))
		}
	}
	return AddOf(out...)
}

// settle expands a product of two terms again only when combining them
// produced a sum factor, e.g. sqrt(x+1)*sqrt(x+1).
func settle(p Expr) Expr {
	switch v := p.(type) {
	case *Add:
		return expandExpr(v)
	case *Pow:
		if _, ok := v.base.(*Add); ok {
			return expandExpr(v)
		}
	case *Mul:
		for _, f := range v.factors {
			switch g := f.(type) {
			case *Add:
				return expandExpr(v)
			case *Pow:
				if _, ok := g.base.(*Add); ok {
					if n, ok := g.exp.(*Num); ok {
						if k, ok := n.Int64(); ok && k >= 2 && k <= 10 {
							return expandExpr(v)
						}
					}
				}
			}
		}
	}
	return p
}

// ============================================================
// Polynomial utilities
// ============================================================

// PolyCoeffs views expr as a polynomial in name and returns its coefficients
// by degree. It fails when some term is not c*name^k with c free of name and
// k a non-negative integer.
func PolyCoeffs(expr Expr, name string) (map[int]Expr, bool) {
	buckets := map[int][]Expr{}
	for _, t := range Terms(Expand(expr)) {
		deg := 0
		var coeff []Expr
		for _, f := range Factors(t) {
			if !Contains(f, name) {
				coeff = append(coeff, f)
				continue
			}
			k, ok := powerOf(f, name)
			if !ok {
				return nil, false
			}
			deg += k
		}
		buckets[deg] = append(buckets[deg], MulOf(coeff...))
	}
	out := make(map[int]Expr, len(buckets))
	for d, cs := range buckets {
		if c := AddOf(cs...); !IsZero(c) {
			out[d] = c
		}
	}
	return out, true
}

// powerOf reports k when f is name or name^k for a non-negative integer k.
func powerOf(f Expr, name string) (int, bool) {
	switch v := f.(type) {
	case *Sym:
		if v.name == name {
			return 1, true
		}
	case *Pow:
		if s, ok := v.base.(*Sym); ok && s.name == name {
			if n, ok := v.exp.(*Num); ok {
				if k, ok := n.Int64(); ok && k >= 0 {
					return int(k), true
				}
			}
		}
	}
	return 0, false
}

// Degree returns the polynomial degree of expr in name, or -1 when expr is
// not a polynomial in name.
func Degree(expr Expr, name string) int {
	cs, ok := PolyCoeffs(expr, name)
	if !ok {
		return -1
	}
	deg := 0
	for d := range cs {
		if d > deg {
			deg = d
		}
	}
	return deg
}

// Linear splits expr as a*name + b with a, b free of name.
func Linear(expr Expr, name string) (a, b Expr, ok bool) {
	cs, ok := PolyCoeffs(expr, name)
	if !ok {
		return nil, nil, false
	}
	for d := range cs {
		if d > 1 {
			return nil, nil, false
		}
	}
	a, b = cs[1], cs[0]
	if a == nil {
		return nil, nil, false
	}
	if b == nil {
		b = N(0)
	}
	return a, b, true
}

func coeffOr0(cs map[int]Expr, d int) Expr {
	if c, ok := cs[d]; ok {
		return c
	}
	return N(0)
}

// ============================================================
// Numeric polynomials (coefficients low to high degree)
// ============================================================

// NumericPoly returns the rational coefficients of expr in name.
func NumericPoly(expr Expr, name string) ([]*Num, bool) {
	cs, ok := PolyCoeffs(expr, name)
	if !ok {
		return nil, false
	}
	deg := 0
	for d := range cs {
		if d > deg {
			deg = d
		}
	}
	out := make([]*Num, deg+1)
	for i := range out {
		out[i] = N(0)
	}
	for d, c := range cs {
		n, ok := c.(*Num)
		if !ok {
			return nil, false
		}
		out[d] = n
	}
	return out, true
}

func trimPoly(p []*Num) []*Num {
	for len(p) > 1 && p[len(p)-1].IsZero() {
		p = p[:len(p)-1]
	}
	return p
}

func polyEval(p []*Num, x *Num) *Num {
	acc := N(0)
	for i := len(p) - 1; i >= 0; i-- {
		acc = numAdd(numMul(acc, x), p[i])
	}
	return acc
}

func polyDeriv(p []*Num) []*Num {
	if len(p) <= 1 {
		return []*Num{N(0)}
	}
	out := make([]*Num, len(p)-1)
	for i := 1; i < len(p); i++ {
		out[i-1] = numMul(N(int64(i)), p[i])
	}
	return out
}

// polyDivLinear divides p by (x - r) with synthetic division.
func polyDivLinear(p []*Num, r *Num) (q []*Num, rem *Num) {
	n := len(p) - 1
	q = make([]*Num, n)
	carry := N(0)
	for i := n; i >= 1; i-- {
		carry = numAdd(numMul(carry, r), p[i])
		q[i-1] = carry
	}
	rem = numAdd(numMul(carry, r), p[0])
	return q, rem
}

// polyDivMod is long division of numerator by denominator.
func polyDivMod(num, den []*Num) (q, r []*Num) {
	num = trimPoly(append([]*Num(nil), num...))
	den = trimPoly(den)
	if len(num) < len(den) {
		return []*Num{N(0)}, num
	}
	q = make([]*Num, len(num)-len(den)+1)
	for i := range q {
		q[i] = N(0)
	}
	lead := den[len(den)-1]
	for len(num) >= len(den) && !(len(num) == 1 && num[0].IsZero()) {
		shift := len(num) - len(den)
		c := numDiv(num[len(num)-1], lead)
		q[shift] = c
		for i, d := range den {
			num[i+shift] = numSub(num[i+shift], numMul(c, d))
		}
		num = trimPoly(num[:len(num)-1])
		if len(num) == 0 {
			num = []*Num{N(0)}
		}
	}
	return q, num
}

// polyExpr rebuilds a numeric polynomial as an expression in x.
func polyExpr(p []*Num, x Expr) Expr {
	terms := make([]Expr, 0, len(p))
	for i, c := range p {
		if c.IsZero() {
			continue
		}
		terms = append(terms, MulOf(c, PowOf(x, N(int64(i)))))
	}
	return AddOf(terms...)
}

// RationalRoots finds every rational root of p with multiplicity and returns
// them in ascending order together with the deflated remainder polynomial.
func RationalRoots(p []*Num) (roots []*Num, rest []*Num) {
	rest = trimPoly(append([]*Num(nil), p...))
	for len(rest) > 1 && rest[0].IsZero() {
		roots = append(roots, N(0))
		rest = rest[1:]
	}
	for {
		if len(rest) <= 1 {
			break
		}
		found := false
		for _, cand := range rootCandidates(rest) {
			if !polyEval(rest, cand).IsZero() {
				continue
			}
			q, _ := polyDivLinear(rest, cand)
			rest = q
			roots = append(roots, cand)
			found = true
			break
		}
		if !found {
			break
		}
	}
	sort.Slice(roots, func(i, j int) bool { return numCmp(roots[i], roots[j]) < 0 })
	return roots, rest
}

// rootCandidates lists ±p/q for p | a0 and q | an after clearing denominators.
func rootCandidates(p []*Num) []*Num {
	lcm := big.NewInt(1)
	for _, c := range p {
		d := c.val.Denom()
		g := new(big.Int).GCD(nil, nil, lcm, d)
		lcm.Mul(lcm, new(big.Int).Quo(d, g))
	}
	ints := make([]*big.Int, len(p))
	for i, c := range p {
		v := new(big.Rat).Mul(c.val, new(big.Rat).SetInt(lcm))
		ints[i] = new(big.Int).Set(v.Num())
	}
	a0 := new(big.Int).Abs(ints[0])
	an := new(big.Int).Abs(ints[len(ints)-1])
	if a0.Sign() == 0 {
		return []*Num{N(0)}
	}
	ps := divisors(a0)
	qs := divisors(an)
	seen := map[string]bool{}
	var out []*Num
	for _, pp := range ps {
		for _, qq := range qs {
			for _, sign := range []int64{1, -1} {
				r := new(big.Rat).SetFrac(new(big.Int).Mul(pp, big.NewInt(sign)), qq)
				k := r.RatString()
				if seen[k] {
					continue
				}
				seen[k] = true
				out = append(out, &Num{val: r})
			}
		}
	}
	return out
}

func divisors(n *big.Int) []*big.Int {
	if !n.IsInt64() || n.Int64() > 1_000_000 {
		return []*big.Int{big.NewInt(1)}
	}
	v := n.Int64()
	var out []*big.Int
	for d := int64(1); d*d <= v; d++ {
		if v%d == 0 {
			out = append(out, big.NewInt(d))
			if d*d != v {
				out = append(out, big.NewInt(v/d))
			}
		}
	}
	return out
}
