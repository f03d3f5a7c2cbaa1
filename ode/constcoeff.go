package ode

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/njchilds90/odesolve/symbolic"
)

// ============================================================
// Linear equations: sum a_k y^(k) = g(x)
// ============================================================

type linearODE struct {
	a []symbolic.Expr
	g symbolic.Expr
}

// placeholderIndex reports k for the placeholder of the k-th derivative.
func placeholderIndex(name string) (int, bool) {
	if name == ySym {
		return 0, true
	}
	if !strings.HasPrefix(name, ySym) {
		return 0, false
	}
	k, err := strconv.Atoi(name[len(ySym):])
	return k, err == nil && k > 0
}

func mentionsPlaceholder(e symbolic.Expr) bool {
	for name := range symbolic.FreeSymbols(e) {
		if _, ok := placeholderIndex(name); ok {
			return true
		}
	}
	return false
}

func (p *problem) linear() (*linearODE, bool) {
	parts := make([][]symbolic.Expr, p.order+1)
	var forcing []symbolic.Expr
	for _, t := range symbolic.Terms(p.residual) {
		k := -1
		var coeff []symbolic.Expr
		for _, f := range symbolic.Factors(t) {
			if s, ok := f.(*symbolic.Sym); ok {
				if idx, ok := placeholderIndex(s.Name()); ok {
					if k >= 0 {
						return nil, false
					}
					k = idx
					continue
				}
			}
			if mentionsPlaceholder(f) {
				return nil, false
			}
			coeff = append(coeff, f)
		}
		if k < 0 {
			forcing = append(forcing, t)
			continue
		}
		parts[k] = append(parts[k], symbolic.MulOf(coeff...))
	}
	lin := &linearODE{a: make([]symbolic.Expr, p.order+1), g: symbolic.Neg(symbolic.AddOf(forcing...))}
	for k := range parts {
		lin.a[k] = symbolic.AddOf(parts[k]...)
	}
	if symbolic.IsZero(lin.a[p.order]) {
		return nil, false
	}
	return lin, true
}

func (l *linearODE) constantCoefficients(x string) bool {
	for _, c := range l.a {
		if symbolic.Contains(c, x) {
			return false
		}
	}
	return true
}

// ============================================================
// Characteristic roots
// ============================================================

// charRoot is re + i*im with multiplicity; im is nil for a real root. A
// complex root stands for its conjugate pair.
type charRoot struct {
	re, im symbolic.Expr
	mult   int
}

func characteristicRoots(a []symbolic.Expr) ([]charRoot, error) {
	coeffs := make([]*symbolic.Num, len(a))
	numeric := true
	for i, c := range a {
		n, ok := c.(*symbolic.Num)
		if !ok {
			numeric = false
			break
		}
		coeffs[i] = n
	}
	if numeric {
		return numericRoots(coeffs)
	}
	switch len(a) - 1 {
	case 1:
		return []charRoot{{re: symbolic.Expand(symbolic.Quo(symbolic.Neg(a[0]), a[1])), mult: 1}}, nil
	case 2:
		return quadraticRoots(a[0], a[1], a[2]), nil
	}
	return nil, fmt.Errorf("%w: characteristic polynomial of degree %d with symbolic coefficients", ErrNotApplicable, len(a)-1)
}

func numericRoots(coeffs []*symbolic.Num) ([]charRoot, error) {
	rational, rest := symbolic.RationalRoots(coeffs)
	var out []charRoot
	for _, r := range rational {
		out = addRoot(out, charRoot{re: r, mult: 1})
	}
	switch deg := len(rest) - 1; {
	case deg <= 0:
	case deg == 2:
		for _, r := range quadraticRoots(rest[0], rest[1], rest[2]) {
			out = addRoot(out, r)
		}
	case deg == 4 && rest[1].IsZero() && rest[3].IsZero():
		rs, err := biquadraticRoots(rest[0], rest[2], rest[4])
		if err != nil {
			return nil, err
		}
		for _, r := range rs {
			out = addRoot(out, r)
		}
	default:
		return nil, fmt.Errorf("%w: no closed-form roots for a degree %d factor of the characteristic polynomial", ErrNotApplicable, deg)
	}
	sortRoots(out)
	return out, nil
}

// quadraticRoots solves c2 r^2 + c1 r + c0 = 0.
func quadraticRoots(c0, c1, c2 symbolic.Expr) []charRoot {
	disc := symbolic.Expand(symbolic.Subtract(symbolic.PowOf(c1, symbolic.N(2)), symbolic.MulOf(symbolic.N(4), c2, c0)))
	twoA := symbolic.MulOf(symbolic.N(2), c2)
	mid := symbolic.Expand(symbolic.Quo(symbolic.Neg(c1), twoA))
	if d, ok := disc.(*symbolic.Num); ok {
		switch {
		case d.IsZero():
			return []charRoot{{re: mid, mult: 2}}
		case d.IsNegative():
			im := symbolic.Quo(symbolic.SqrtOf(symbolic.Neg(d)), twoA)
			if n, ok := symbolic.Simplify(c2).(*symbolic.Num); ok && n.IsNegative() {
				im = symbolic.Neg(im)
			}
			return []charRoot{{re: mid, im: symbolic.Simplify(im), mult: 1}}
		}
	}
	half := symbolic.Quo(symbolic.SqrtOf(disc), twoA)
	return []charRoot{
		{re: symbolic.Expand(symbolic.Subtract(mid, half)), mult: 1},
		{re: symbolic.Expand(symbolic.AddOf(mid, half)), mult: 1},
	}
}

// biquadraticRoots solves c4 r^4 + c2 r^2 + c0 = 0 through s = r^2.
func biquadraticRoots(c0, c2, c4 *symbolic.Num) ([]charRoot, error) {
	var out []charRoot
	for _, s := range quadraticRoots(c0, c2, c4) {
		if s.im != nil {
			return nil, fmt.Errorf("%w: characteristic roots of complex squares", ErrNotApplicable)
		}
		v, ok := symbolic.Evalf(s.re, nil)
		if !ok || v == 0 {
			return nil, fmt.Errorf("%w: cannot place root %s", ErrNotApplicable, s.re)
		}
		if v > 0 {
			r := symbolic.SqrtOf(s.re)
			out = append(out, charRoot{re: symbolic.Neg(r), mult: s.mult}, charRoot{re: r, mult: s.mult})
			continue
		}
		out = append(out, charRoot{re: symbolic.N(0), im: symbolic.SqrtOf(symbolic.Neg(s.re)), mult: s.mult})
	}
	return out, nil
}

// addRoot merges r into roots, summing multiplicities of equal roots.
func addRoot(roots []charRoot, r charRoot) []charRoot {
	for i := range roots {
		if sameRoot(roots[i], r.re, r.im) {
			roots[i].mult += r.mult
			return roots
		}
	}
	return append(roots, r)
}

func sameRoot(r charRoot, re, im symbolic.Expr) bool {
	if (r.im == nil) != (im == nil || symbolic.IsZero(im)) {
		return false
	}
	if !symbolic.IsZero(symbolic.Expand(symbolic.Subtract(r.re, re))) {
		return false
	}
	if r.im == nil {
		return true
	}
	return symbolic.IsZero(symbolic.Expand(symbolic.Subtract(r.im, im))) ||
		symbolic.IsZero(symbolic.Expand(symbolic.AddOf(r.im, im)))
}

// sortRoots orders real roots ascending, then complex pairs.
func sortRoots(roots []charRoot) {
	key := func(r charRoot) (int, float64) {
		v, _ := symbolic.Evalf(r.re, nil)
		if r.im != nil {
			w, _ := symbolic.Evalf(r.im, nil)
			return 1, math.Abs(w)*1e6 + v
		}
		return 0, v
	}
	sort.SliceStable(roots, func(i, j int) bool {
		ci, vi := key(roots[i])
		cj, vj := key(roots[j])
		if ci != cj {
			return ci < cj
		}
		return vi < vj
	})
}

// basis lists the fundamental solutions for the roots.
func basis(roots []charRoot, x string) []symbolic.Expr {
	X := symbolic.S(x)
	var out []symbolic.Expr
	for _, r := range roots {
		e := symbolic.ExpOf(symbolic.MulOf(r.re, X))
		for j := 0; j < r.mult; j++ {
			xj := symbolic.PowOf(X, symbolic.N(int64(j)))
			if r.im == nil {
				out = append(out, symbolic.MulOf(xj, e))
				continue
			}
			arg := symbolic.MulOf(r.im, X)
			out = append(out,
				symbolic.MulOf(xj, e, symbolic.SinOf(arg)),
				symbolic.MulOf(xj, e, symbolic.CosOf(arg)))
		}
	}
	return out
}

// complementary returns sum C_i b_i over the fundamental solutions.
func complementary(l *linearODE, x string) (symbolic.Expr, []charRoot, error) {
	roots, err := characteristicRoots(l.a)
	if err != nil {
		return nil, nil, err
	}
	b := basis(roots, x)
	terms := make([]symbolic.Expr, len(b))
	for i, f := range b {
		terms[i] = symbolic.MulOf(constant(i+1), f)
	}
	return symbolic.AddOf(terms...), roots, nil
}

func constCoeffLinear(p *problem) (*linearODE, bool) {
	l, ok := p.linear()
	if !ok || !l.constantCoefficients(p.x) {
		return nil, false
	}
	return l, true
}

func matchConstCoeffHomogeneous(p *problem) bool {
	l, ok := constCoeffLinear(p)
	return ok && symbolic.IsZero(l.g)
}

func solveConstCoeffHomogeneous(p *problem) ([]symbolic.Expr, error) {
	l, ok := constCoeffLinear(p)
	if !ok || !symbolic.IsZero(l.g) {
		return nil, ErrNotApplicable
	}
	y, _, err := complementary(l, p.x)
	if err != nil {
		return nil, err
	}
	return []symbolic.Expr{y}, nil
}

// ============================================================
// Undetermined coefficients
// ============================================================

// forcingClass groups forcing terms sharing e^(alpha x) and sin/cos(beta x).
type forcingClass struct {
	alpha, beta symbolic.Expr
	degree      int
}

// forcingClasses decomposes g into poly * e^(alpha x) * {sin, cos}(beta x)
// terms.
func forcingClasses(g symbolic.Expr, x string) ([]forcingClass, bool) {
	var out []forcingClass
	index := map[string]int{}
	for _, t := range symbolic.Terms(symbolic.Expand(g)) {
		alpha, beta := symbolic.Expr(symbolic.N(0)), symbolic.Expr(symbolic.N(0))
		degree := 0
		trig := false
		for _, f := range symbolic.Factors(t) {
			if !symbolic.Contains(f, x) {
				continue
			}
			if s, ok := f.(*symbolic.Sym); ok && s.Name() == x {
				degree++
				continue
			}
			if pw, ok := f.(*symbolic.Pow); ok {
				s, isSym := pw.Base().(*symbolic.Sym)
				n, isNum := pw.ExpExpr().(*symbolic.Num)
				if !isSym || s.Name() != x || !isNum {
					return nil, false
				}
				k, ok := n.Int64()
				if !ok || k < 0 {
					return nil, false
				}
				degree += int(k)
				continue
			}
			fn, ok := f.(*symbolic.Func)
			if !ok {
				return nil, false
			}
			a, _, ok := symbolic.Linear(fn.Arg(), x)
			if !ok {
				return nil, false
			}
			switch fn.FuncName() {
			case "exp":
				alpha = symbolic.AddOf(alpha, a)
			case "sin", "cos":
				if trig {
					return nil, false
				}
				trig = true
				beta = a
			default:
				return nil, false
			}
		}
		key := alpha.String() + "|" + beta.String()
		if i, seen := index[key]; seen {
			if degree > out[i].degree {
				out[i].degree = degree
			}
			continue
		}
		index[key] = len(out)
		out = append(out, forcingClass{alpha: alpha, beta: beta, degree: degree})
	}
	return out, true
}

func matchUndetermined(p *problem) bool {
	l, ok := constCoeffLinear(p)
	if !ok || symbolic.IsZero(l.g) {
		return false
	}
	_, ok = forcingClasses(l.g, p.x)
	return ok
}

// solveUndetermined adds a particular solution, found by matching
// coefficients of a trial function, to the complementary solution.
func solveUndetermined(p *problem) ([]symbolic.Expr, error) {
	l, ok := constCoeffLinear(p)
	if !ok || symbolic.IsZero(l.g) {
		return nil, ErrNotApplicable
	}
	classes, ok := forcingClasses(l.g, p.x)
	if !ok {
		return nil, ErrNotApplicable
	}
	yc, roots, err := complementary(l, p.x)
	if err != nil {
		return nil, err
	}
	X := symbolic.S(p.x)
	var unknowns []string
	next := func() symbolic.Expr {
		name := fmt.Sprintf("_A%d", len(unknowns))
		unknowns = append(unknowns, name)
		return symbolic.S(name)
	}
	poly := func(s, m int) symbolic.Expr {
		terms := make([]symbolic.Expr, 0, m+1)
		for j := 0; j <= m; j++ {
			terms = append(terms, symbolic.MulOf(next(), symbolic.PowOf(X, symbolic.N(int64(j+s)))))
		}
		return symbolic.AddOf(terms...)
	}
	var trial []symbolic.Expr
	for _, c := range classes {
		s := 0
		for _, r := range roots {
			if sameRoot(r, c.alpha, c.beta) {
				s = r.mult
				break
			}
		}
		e := symbolic.ExpOf(symbolic.MulOf(c.alpha, X))
		if symbolic.IsZero(c.beta) {
			trial = append(trial, symbolic.MulOf(poly(s, c.degree), e))
			continue
		}
		arg := symbolic.MulOf(c.beta, X)
		trial = append(trial,
			symbolic.MulOf(poly(s, c.degree), e, symbolic.CosOf(arg)),
			symbolic.MulOf(poly(s, c.degree), e, symbolic.SinOf(arg)))
	}
	yp := symbolic.Expand(symbolic.AddOf(trial...))
	eqs := matchCoefficients(symbolic.Expand(p.substitute(yp)), p.x)
	sets, err := symbolic.SolveSystem(eqs, unknowns)
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("%w: trial coefficients are inconsistent", symbolic.ErrCannotSolve)
	}
	values := map[string]symbolic.Expr{}
	for _, u := range unknowns {
		values[u] = symbolic.N(0)
	}
	for k, v := range sets[0] {
		values[k] = v
	}
	particular := symbolic.Expand(symbolic.SubAll(yp, values))
	return []symbolic.Expr{symbolic.AddOf(yc, particular)}, nil
}

// matchCoefficients groups e by its x-dependent part; every group's
// coefficient must vanish.
func matchCoefficients(e symbolic.Expr, x string) []symbolic.Expr {
	groups := map[string][]symbolic.Expr{}
	var keys []string
	for _, t := range symbolic.Terms(e) {
		var dep, coeff []symbolic.Expr
		for _, f := range symbolic.Factors(t) {
			if symbolic.Contains(f, x) {
				dep = append(dep, f)
			} else {
				coeff = append(coeff, f)
			}
		}
		key := symbolic.MulOf(dep...).String()
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], symbolic.MulOf(coeff...))
	}
	out := make([]symbolic.Expr, 0, len(keys))
	for _, k := range keys {
		if c := symbolic.AddOf(groups[k]...); !symbolic.IsZero(c) {
			out = append(out, c)
		}
	}
	return out
}
