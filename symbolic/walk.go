package symbolic

import (
	"math"
	"sort"
)

// ============================================================
// Tree traversal
// ============================================================

// Children returns the direct subexpressions of e.
func Children(e Expr) []Expr {
	switch v := e.(type) {
	case *Add:
		return v.terms
	case *Mul:
		return v.factors
	case *Pow:
		return []Expr{v.base, v.exp}
	case *Func:
		return []Expr{v.arg}
	case *Applied:
		return []Expr{v.arg}
	}
	return nil
}

// rebuild returns a node of e's kind over new children, unsimplified.
func rebuild(e Expr, children []Expr) Expr {
	switch v := e.(type) {
	case *Add:
		return &Add{terms: children}
	case *Mul:
		return &Mul{factors: children}
	case *Pow:
		return &Pow{base: children[0], exp: children[1]}
	case *Func:
		return &Func{name: v.name, arg: children[0]}
	case *Applied:
		return &Applied{name: v.name, arg: children[0]}
	}
	return e
}

// Walk visits e in pre-order; returning false skips a node's children.
func Walk(e Expr, visit func(Expr) bool) {
	if !visit(e) {
		return
	}
	for _, c := range Children(e) {
		Walk(c, visit)
	}
}

// Transform rewrites e top-down. When fn reports a replacement it is used
// as-is; otherwise the node is rebuilt over transformed children and
// simplified.
func Transform(e Expr, fn func(Expr) (Expr, bool)) Expr {
	if r, ok := fn(e); ok {
		return r
	}
	cs := Children(e)
	if len(cs) == 0 {
		return e
	}
	out := make([]Expr, len(cs))
	for i, c := range cs {
		out[i] = Transform(c, fn)
	}
	return rebuild(e, out).Simplify()
}

// ============================================================
// Free Symbols
// ============================================================

func FreeSymbols(e Expr) map[string]struct{} {
	result := map[string]struct{}{}
	Walk(e, func(n Expr) bool {
		if s, ok := n.(*Sym); ok {
			result[s.name] = struct{}{}
		}
		if d, ok := n.(*Derivative); ok {
			result[d.wrt] = struct{}{}
			Walk(d.fn, func(m Expr) bool {
				if s, ok := m.(*Sym); ok {
					result[s.name] = struct{}{}
				}
				return true
			})
		}
		return true
	})
	return result
}

// SortedSymbols returns the free symbol names of e in lexical order.
func SortedSymbols(e Expr) []string {
	set := FreeSymbols(e)
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether the symbol name occurs in e.
func Contains(e Expr, name string) bool {
	_, ok := FreeSymbols(e)[name]
	return ok
}

// ContainsAny reports whether any of names occurs in e.
func ContainsAny(e Expr, names ...string) bool {
	free := FreeSymbols(e)
	for _, n := range names {
		if _, ok := free[n]; ok {
			return true
		}
	}
	return false
}

// CountSym counts the occurrences of the symbol name in e.
func CountSym(e Expr, name string) int {
	n := 0
	Walk(e, func(x Expr) bool {
		if s, ok := x.(*Sym); ok && s.name == name {
			n++
		}
		return true
	})
	return n
}

// HasApplied reports whether e mentions the undefined function fn or one of
// its derivatives.
func HasApplied(e Expr, fn string) bool { return OrderIn(e, fn) >= 0 }

// Rename substitutes symbols by name in a single pass, so swaps are safe.
func Rename(e Expr, names map[string]string) Expr {
	return Transform(e, func(n Expr) (Expr, bool) {
		if s, ok := n.(*Sym); ok {
			if to, ok := names[s.name]; ok {
				return S(to), true
			}
		}
		return nil, false
	})
}

// SubAll substitutes several symbols at once.
func SubAll(e Expr, values map[string]Expr) Expr {
	return Transform(e, func(n Expr) (Expr, bool) {
		if s, ok := n.(*Sym); ok {
			if v, ok := values[s.name]; ok {
				return v, true
			}
		}
		return nil, false
	})
}

// ============================================================
// Floating-point evaluation
// ============================================================

// Evalf evaluates e in float64 with symbols bound by env. It fails on
// unbound symbols, undefined functions and non-finite results.
func Evalf(e Expr, env map[string]float64) (float64, bool) {
	v, ok := evalf(e, env)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func evalf(e Expr, env map[string]float64) (float64, bool) {
	switch v := e.(type) {
	case *Num:
		return v.Float64(), true
	case *Const:
		return v.value, true
	case *Sym:
		f, ok := env[v.name]
		return f, ok
	case *Add:
		acc := 0.0
		for _, t := range v.terms {
			f, ok := evalf(t, env)
			if !ok {
				return 0, false
			}
			acc += f
		}
		return acc, true
	case *Mul:
		acc := 1.0
		for _, t := range v.factors {
			f, ok := evalf(t, env)
			if !ok {
				return 0, false
			}
			acc *= f
		}
		return acc, true
	case *Pow:
		b, ok1 := evalf(v.base, env)
		x, ok2 := evalf(v.exp, env)
		if !ok1 || !ok2 {
			return 0, false
		}
		return math.Pow(b, x), true
	case *Func:
		a, ok := evalf(v.arg, env)
		if !ok {
			return 0, false
		}
		fn, ok := floatFuncs[v.name]
		if !ok {
			return 0, false
		}
		return fn(a), true
	}
	return 0, false
}
