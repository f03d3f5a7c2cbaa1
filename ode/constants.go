package ode

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/njchilds90/odesolve/symbolic"
)

var constantName = regexp.MustCompile(`^C([1-9][0-9]*)$`)

// IsConstant reports whether name is an integration constant C1, C2, ...
func IsConstant(name string) bool { return constantName.MatchString(name) }

func constant(i int) symbolic.Expr { return symbolic.S(fmt.Sprintf("C%d", i)) }

func highestConstant(e symbolic.Expr) int {
	hi := 0
	for name := range symbolic.FreeSymbols(e) {
		if m := constantName.FindStringSubmatch(name); m != nil {
			if i, _ := strconv.Atoi(m[1]); i > hi {
				hi = i
			}
		}
	}
	return hi
}

// tidy absorbs redundant factors and terms into the integration constants
// and renumbers them in order of appearance across all branches.
func tidy(sols []symbolic.Expr) []symbolic.Expr {
	out := make([]symbolic.Expr, len(sols))
	for i, s := range sols {
		out[i] = absorb(symbolic.Simplify(s))
	}
	return renumber(out)
}

func absorb(e symbolic.Expr) symbolic.Expr {
	for i := 0; i < 8; i++ {
		next := absorbOnce(e)
		if next.String() == e.String() {
			return e
		}
		e = next
	}
	return e
}

// absorbOnce rewrites k*C, exp(A + C) and C + k for a constant C that
// occurs once, where k has no free symbols.
func absorbOnce(e symbolic.Expr) symbolic.Expr {
	once := map[string]bool{}
	for name := range symbolic.FreeSymbols(e) {
		if IsConstant(name) && symbolic.CountSym(e, name) == 1 {
			once[name] = true
		}
	}
	if len(once) == 0 {
		return e
	}
	return symbolic.Transform(e, func(n symbolic.Expr) (symbolic.Expr, bool) {
		if c, ok := scaledConstant(n, once); ok {
			if _, bare := n.(*symbolic.Sym); !bare {
				return c, true
			}
			return nil, false
		}
		switch v := n.(type) {
		case *symbolic.Add:
			var kept []symbolic.Expr
			var c symbolic.Expr
			for _, t := range v.Terms() {
				if sc, ok := scaledConstant(t, once); ok && c == nil {
					c = sc
					continue
				}
				kept = append(kept, t)
			}
			if c == nil {
				return nil, false
			}
			var rest []symbolic.Expr
			for _, t := range kept {
				if len(symbolic.FreeSymbols(t)) > 0 {
					rest = append(rest, t)
				}
			}
			if len(rest) == len(kept) && c.Equal(findTerm(v, c)) {
				return nil, false
			}
			return symbolic.AddOf(append(rest, c)...), true
		case *symbolic.Func:
			if v.FuncName() != "exp" {
				return nil, false
			}
			if c, ok := scaledConstant(v.Arg(), once); ok {
				return c, true
			}
			var rest []symbolic.Expr
			var c symbolic.Expr
			for _, t := range symbolic.Terms(v.Arg()) {
				if sc, ok := scaledConstant(t, once); ok && c == nil {
					c = sc
					continue
				}
				if len(symbolic.FreeSymbols(t)) > 0 {
					rest = append(rest, t)
				}
			}
			if c == nil {
				return nil, false
			}
			return symbolic.MulOf(c, symbolic.ExpOf(symbolic.AddOf(rest...))), true
		}
		return nil, false
	})
}

// findTerm returns the term of a equal to c, or zero.
func findTerm(a *symbolic.Add, c symbolic.Expr) symbolic.Expr {
	for _, t := range a.Terms() {
		if t.Equal(c) {
			return t
		}
	}
	return symbolic.N(0)
}

// scaledConstant reports C when e is C or k*C with k free of symbols.
func scaledConstant(e symbolic.Expr, once map[string]bool) (symbolic.Expr, bool) {
	var c symbolic.Expr
	for _, f := range symbolic.Factors(e) {
		if s, ok := f.(*symbolic.Sym); ok && once[s.Name()] {
			if c != nil {
				return nil, false
			}
			c = s
			continue
		}
		if len(symbolic.FreeSymbols(f)) > 0 {
			return nil, false
		}
	}
	return c, c != nil
}

func renumber(sols []symbolic.Expr) []symbolic.Expr {
	names := map[string]string{}
	for _, s := range sols {
		symbolic.Walk(s, func(n symbolic.Expr) bool {
			if v, ok := n.(*symbolic.Sym); ok && IsConstant(v.Name()) {
				if _, seen := names[v.Name()]; !seen {
					names[v.Name()] = fmt.Sprintf("C%d", len(names)+1)
				}
			}
			return true
		})
	}
	out := make([]symbolic.Expr, len(sols))
	for i, s := range sols {
		out[i] = symbolic.Rename(s, names)
	}
	return out
}

// Constants lists the integration constants of the branches in order of
// first appearance.
func Constants(sols []symbolic.Expr) []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range sols {
		symbolic.Walk(s, func(n symbolic.Expr) bool {
			if v, ok := n.(*symbolic.Sym); ok && IsConstant(v.Name()) && !seen[v.Name()] {
				seen[v.Name()] = true
				out = append(out, v.Name())
			}
			return true
		})
	}
	return out
}
