package symbolic

import (
	"errors"
	"fmt"
	"sort"
)

// ============================================================
// Solvers
// ============================================================

// ErrCannotSolve reports that no closed form was found.
var ErrCannotSolve = errors.New("cannot solve")

// SolveFor returns the solutions of expr = 0 for the symbol name. Multiple
// results are alternative branches, negative square roots first.
func SolveFor(expr Expr, name string) ([]Expr, error) {
	e := expr.Simplify()
	if !Contains(e, name) {
		return nil, fmt.Errorf("%w: %s does not contain %s", ErrCannotSolve, e, name)
	}
	if sols, ok := solvePolynomial(e, name); ok {
		return sols, nil
	}
	if sols, ok := isolate(e, N(0), name, 0); ok {
		return sols, nil
	}
	// Clear a common denominator and retry.
	if num, ok := numerator(e, name); ok {
		if sols, ok := solvePolynomial(num, name); ok {
			return sols, nil
		}
		if sols, ok := isolate(num, N(0), name, 0); ok {
			return sols, nil
		}
	}
	return nil, fmt.Errorf("%w: %s = 0 for %s", ErrCannotSolve, e, name)
}

func solvePolynomial(e Expr, name string) ([]Expr, bool) {
	cs, ok := PolyCoeffs(e, name)
	if !ok {
		return nil, false
	}
	deg := 0
	for d := range cs {
		if d > deg {
			deg = d
		}
	}
	switch {
	case deg == 1:
		return []Expr{Expand(Quo(Neg(coeffOr0(cs, 0)), cs[1]))}, true
	case deg == 2:
		a, b, c := cs[2], coeffOr0(cs, 1), coeffOr0(cs, 0)
		disc := Expand(Subtract(PowOf(b, N(2)), MulOf(N(4), a, c)))
		if n, ok := disc.(*Num); ok && n.IsNegative() {
			return nil, false
		}
		twoA := MulOf(N(2), a)
		if IsZero(disc) {
			return []Expr{Expand(Quo(Neg(b), twoA))}, true
		}
		sq := SqrtOf(disc)
		return []Expr{
			Expand(Quo(Subtract(Neg(b), sq), twoA)),
			Expand(Quo(AddOf(Neg(b), sq), twoA)),
		}, true
	case deg > 2 && len(cs) <= 2:
		if len(cs) == 1 {
			// c*name^n = 0
			return []Expr{N(0)}, true
		}
		// c_n name^n + c_0 = 0
		rhs := Expand(Quo(Neg(coeffOr0(cs, 0)), cs[deg]))
		root := PowOf(rhs, F(1, int64(deg)))
		if deg%2 == 1 {
			return []Expr{root}, true
		}
		return []Expr{Neg(root), root}, true
	}
	return nil, false
}

// isolate peels invertible operations off lhs until the symbol is alone.
func isolate(lhs, rhs Expr, name string, depth int) ([]Expr, bool) {
	if depth > 32 {
		return nil, false
	}
	switch v := lhs.(type) {
	case *Sym:
		if v.name == name {
			return []Expr{rhs.Simplify()}, true
		}
	case *Add:
		var dep, indep []Expr
		for _, t := range v.terms {
			if Contains(t, name) {
				dep = append(dep, t)
			} else {
				indep = append(indep, t)
			}
		}
		newRHS := Subtract(rhs, AddOf(indep...))
		if len(dep) != 1 {
			return solvePolynomial(Subtract(AddOf(dep...), newRHS), name)
		}
		return isolate(dep[0], newRHS, name, depth+1)
	case *Mul:
		var dep, indep []Expr
		for _, f := range v.factors {
			if Contains(f, name) {
				dep = append(dep, f)
			} else {
				indep = append(indep, f)
			}
		}
		if len(dep) != 1 {
			return nil, false
		}
		if IsZero(rhs) {
			// A product vanishes when its dependent factor does.
			return isolate(dep[0], N(0), name, depth+1)
		}
		return isolate(dep[0], Quo(rhs, MulOf(indep...)), name, depth+1)
	case *Pow:
		switch {
		case Contains(v.base, name) && !Contains(v.exp, name):
			if n, ok := v.exp.(*Num); ok {
				if k, ok := n.Int64(); ok && k%2 == 0 && k != 0 {
					root := Expand(PowOf(rhs, numRecip(n)))
					if IsZero(root) {
						return isolate(v.base, root, name, depth+1)
					}
					neg, ok1 := isolate(v.base, Neg(root), name, depth+1)
					pos, ok2 := isolate(v.base, root, name, depth+1)
					if !ok1 || !ok2 {
						return nil, false
					}
					return append(neg, pos...), true
				}
			}
			if IsZero(rhs) {
				return isolate(v.base, N(0), name, depth+1)
			}
			return isolate(v.base, Expand(PowOf(rhs, PowOf(v.exp, N(-1)))), name, depth+1)
		case Contains(v.exp, name) && !Contains(v.base, name):
			return isolate(v.exp, Quo(LnOf(rhs), LnOf(v.base)), name, depth+1)
		}
	case *Func:
		inv, ok := inverses[v.name]
		if !ok {
			return nil, false
		}
		return isolate(v.arg, inv(rhs), name, depth+1)
	}
	return nil, false
}

// numerator multiplies e through by the denominators that contain name.
func numerator(e Expr, name string) (Expr, bool) {
	var dens []Expr
	seen := map[string]bool{}
	for _, t := range Terms(e) {
		for _, f := range Factors(t) {
			p, ok := f.(*Pow)
			if !ok || !Contains(p.base, name) {
				continue
			}
			n, ok := p.exp.(*Num)
			if !ok || !n.IsNegative() {
				continue
			}
			d := PowOf(p.base, numNeg(n))
			if k := d.String(); !seen[k] {
				seen[k] = true
				dens = append(dens, d)
			}
		}
	}
	if len(dens) == 0 {
		return nil, false
	}
	return Expand(MulOf(append([]Expr{e}, dens...)...)), true
}

// ============================================================
// Systems
// ============================================================

// SolveSystem solves eqs (each read as expr = 0) for unknowns. Linear
// systems use exact Gaussian elimination; a rank-deficient system leaves the
// free unknowns unassigned. Other systems are solved by successive
// single-unknown elimination, keeping the first branch each time. An
// inconsistent system yields no assignment sets.
func SolveSystem(eqs []Expr, unknowns []string) ([]map[string]Expr, error) {
	if len(unknowns) == 0 {
		return nil, fmt.Errorf("%w: no unknowns", ErrCannotSolve)
	}
	if A, b, ok := linearSystem(eqs, unknowns); ok {
		sol, consistent := gaussJordan(A, b, unknowns)
		if !consistent {
			return nil, nil
		}
		return []map[string]Expr{sol}, nil
	}
	return eliminate(eqs, unknowns)
}

// linearSystem extracts A and b with A*u = b.
func linearSystem(eqs []Expr, unknowns []string) ([][]Expr, []Expr, bool) {
	index := map[string]int{}
	for i, u := range unknowns {
		index[u] = i
	}
	A := make([][]Expr, len(eqs))
	b := make([]Expr, len(eqs))
	for i, eq := range eqs {
		row := make([][]Expr, len(unknowns))
		var constant []Expr
		for _, t := range Terms(Expand(eq)) {
			col := -1
			var coeff []Expr
			for _, f := range Factors(t) {
				s, isSym := f.(*Sym)
				if isSym {
					if j, ok := index[s.name]; ok {
						if col >= 0 {
							return nil, nil, false
						}
						col = j
						continue
					}
				}
				if ContainsAny(f, unknowns...) {
					return nil, nil, false
				}
				coeff = append(coeff, f)
			}
			if col < 0 {
				constant = append(constant, t)
			} else {
				row[col] = append(row[col], MulOf(coeff...))
			}
		}
		A[i] = make([]Expr, len(unknowns))
		for j := range unknowns {
			A[i][j] = AddOf(row[j]...)
		}
		b[i] = Neg(AddOf(constant...))
	}
	return A, b, true
}

func gaussJordan(A [][]Expr, b []Expr, unknowns []string) (map[string]Expr, bool) {
	rows, cols := len(A), len(unknowns)
	pivotCol := []int{}
	r := 0
	for c := 0; c < cols && r < rows; c++ {
		p := -1
		for i := r; i < rows; i++ {
			if !IsZero(A[i][c]) {
				p = i
				break
			}
		}
		if p < 0 {
			continue
		}
		A[r], A[p] = A[p], A[r]
		b[r], b[p] = b[p], b[r]
		pivot := A[r][c]
		for k := c; k < cols; k++ {
			A[r][k] = Expand(Quo(A[r][k], pivot))
		}
		b[r] = Expand(Quo(b[r], pivot))
		for i := 0; i < rows; i++ {
			if i == r || IsZero(A[i][c]) {
				continue
			}
			factor := A[i][c]
			for k := c; k < cols; k++ {
				A[i][k] = Expand(Subtract(A[i][k], MulOf(factor, A[r][k])))
			}
			b[i] = Expand(Subtract(b[i], MulOf(factor, b[r])))
		}
		pivotCol = append(pivotCol, c)
		r++
	}
	for i := r; i < rows; i++ {
		if !IsZero(b[i]) {
			return nil, false
		}
	}
	isPivot := map[int]bool{}
	for _, c := range pivotCol {
		isPivot[c] = true
	}
	sol := map[string]Expr{}
	for i, c := range pivotCol {
		v := b[i]
		for k := 0; k < cols; k++ {
			if !isPivot[k] && !IsZero(A[i][k]) {
				v = Subtract(v, MulOf(A[i][k], S(unknowns[k])))
			}
		}
		sol[unknowns[c]] = Expand(v)
	}
	return sol, true
}

func eliminate(eqs []Expr, unknowns []string) ([]map[string]Expr, error) {
	pending := make([]Expr, len(eqs))
	copy(pending, eqs)
	remaining := append([]string(nil), unknowns...)
	sol := map[string]Expr{}
	for len(remaining) > 0 && len(pending) > 0 {
		// Prefer an equation with a single remaining unknown.
		best, bestVar := -1, ""
		for i, eq := range pending {
			var in []string
			for _, u := range remaining {
				if Contains(eq, u) {
					in = append(in, u)
				}
			}
			if len(in) == 0 {
				if !IsZero(Expand(eq)) {
					return nil, nil
				}
				continue
			}
			if best < 0 || len(in) == 1 {
				best, bestVar = i, in[0]
				if len(in) == 1 {
					break
				}
			}
		}
		if best < 0 {
			break
		}
		roots, err := SolveFor(pending[best], bestVar)
		if err != nil {
			return nil, err
		}
		if len(roots) == 0 {
			return nil, nil
		}
		val := roots[0]
		sol[bestVar] = val
		for k, v := range sol {
			sol[k] = Sub(v, bestVar, val)
		}
		pending = append(pending[:best], pending[best+1:]...)
		for i := range pending {
			pending[i] = Sub(pending[i], bestVar, val)
		}
		remaining = removeString(remaining, bestVar)
	}
	for _, eq := range pending {
		if len(FreeSymbols(eq)) == 0 && !IsZero(Expand(eq)) {
			return nil, nil
		}
	}
	return []map[string]Expr{sol}, nil
}

func removeString(ss []string, s string) []string {
	out := ss[:0]
	for _, v := range ss {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

// SortedKeys returns the keys of an assignment set in lexical order.
func SortedKeys(m map[string]Expr) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
