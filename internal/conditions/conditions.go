// Package conditions reads initial and boundary conditions and uses them to
// fix the integration constants of a general solution.
package conditions

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/njchilds90/odesolve/internal/normalize"
	"github.com/njchilds90/odesolve/internal/parser"
	"github.com/njchilds90/odesolve/internal/trace"
	"github.com/njchilds90/odesolve/symbolic"
)

// Condition states that the Order-th derivative of y at Point equals Value.
// Order 0 is the value of y itself.
type Condition struct {
	Point symbolic.Expr
	Value symbolic.Expr
	Order int
}

// Assignments maps constant names to explicit values, keeping the order in
// which they were given. The zero value is ready to use.
type Assignments struct {
	names  []string
	values map[string]symbolic.Expr
}

// Set stores v for name. Setting a name again replaces its value but keeps
// its original position.
func (a *Assignments) Set(name string, v symbolic.Expr) {
	if a.values == nil {
		a.values = map[string]symbolic.Expr{}
	}
	if _, ok := a.values[name]; !ok {
		a.names = append(a.names, name)
	}
	a.values[name] = v
}

func (a *Assignments) Get(name string) (symbolic.Expr, bool) {
	v, ok := a.values[name]
	return v, ok
}

// Names returns the assigned names in insertion order.
func (a *Assignments) Names() []string { return append([]string(nil), a.names...) }

func (a *Assignments) Len() int { return len(a.names) }

// Set is everything parsed out of one conditions string.
type Set struct {
	Conditions  []Condition
	Assignments Assignments
}

// Empty reports whether nothing usable was parsed.
func (s *Set) Empty() bool { return len(s.Conditions) == 0 && s.Assignments.Len() == 0 }

var (
	assignment = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_]*)\s*=\s*(.+)$`)
	primed     = regexp.MustCompile(`^y('*)\(([^)]+)\)\s*=\s*(.+)$`)
	higher     = regexp.MustCompile(`^y\^\(([0-9]+)\)\(([^)]+)\)\s*=\s*(.+)$`)
)

// Parse reads comma-separated clauses such as "y(0)=1, y'(0)=2, C1=3".
// Clauses that match no grammar, or whose values cannot be read, are
// reported in tr and dropped.
func Parse(text string, tr *trace.Trace) Set {
	var set Set
	p := parser.New()
	for _, clause := range splitClauses(normalize.Unicode(text)) {
		if clause == "" {
			continue
		}

		if m := assignment.FindStringSubmatch(clause); m != nil && m[1] != parser.Func {
			v, err := value(p, m[2])
			if err != nil {
				tr.Add("   ⚠️ Could not parse the constant: %s", clause)
				continue
			}
			set.Assignments.Set(m[1], v)
			tr.Add("   📌 Condition detected: $%s = %s$", m[1], v.LaTeX())
			continue
		}

		order, point, target, ok := matchCondition(clause)
		if !ok {
			tr.Add("   ⚠️ Unrecognized format: %s", clause)
			continue
		}
		at, err := value(p, point)
		if err != nil {
			tr.Add("   ⚠️ Could not parse x in: %s", clause)
			continue
		}
		v, err := value(p, target)
		if err != nil {
			tr.Add("   ⚠️ Could not parse y in: %s", clause)
			continue
		}
		set.Conditions = append(set.Conditions, Condition{Point: at, Value: v, Order: order})
		tr.Add("   📌 Initial condition detected: $%s(%s) = %s$",
			symbolic.PrimeNotation(parser.Func, order), at.LaTeX(), v.LaTeX())
	}
	return set
}

func matchCondition(clause string) (order int, point, target string, ok bool) {
	if m := primed.FindStringSubmatch(clause); m != nil {
		return len(m[1]), strings.TrimSpace(m[2]), strings.TrimSpace(m[3]), true
	}
	if m := higher.FindStringSubmatch(clause); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, "", "", false
		}
		return n, strings.TrimSpace(m[2]), strings.TrimSpace(m[3]), true
	}
	return 0, "", "", false
}

// value reads a numeric literal exactly, including forms like "0.5" and
// "1e-3"; anything else goes through the equation parser.
func value(p *parser.Parser, text string) (symbolic.Expr, error) {
	text = strings.TrimSpace(text)
	if n, ok := symbolic.ParseNum(text); ok {
		return n, nil
	}
	return p.Expr(text)
}

// splitClauses cuts at commas outside parentheses.
func splitClauses(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(out, strings.TrimSpace(s[start:]))
}

// IntegrationConstants returns the free symbols of e other than the
// independent variable, the unknown function and names starting with '_',
// sorted by name.
func IntegrationConstants(e symbolic.Expr) []string {
	var out []string
	for name := range symbolic.FreeSymbols(e) {
		if name == parser.Var || name == parser.Func || strings.HasPrefix(name, "_") {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
