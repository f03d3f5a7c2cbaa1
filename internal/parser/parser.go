// Package parser turns canonical equation text into a symbolic equation
// in the unknown y(x).
//
// Each side is read by the kernel's structured parser first. When that
// fails the side is handed to Evaluate, a restricted operator-precedence
// evaluator that can only resolve names through the same fixed table.
package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/njchilds90/odesolve/internal/normalize"
	"github.com/njchilds90/odesolve/symbolic"
)

const (
	// Var is the independent variable.
	Var = "x"
	// Func is the unknown function.
	Func = "y"
)

// Unknown returns the applied unknown y(x).
func Unknown() *symbolic.Applied { return symbolic.Apply(Func, symbolic.S(Var)) }

// Table returns the fixed table equations are parsed against: x, y as a
// function, diff, exp, log, ln, sin, cos, tan, sqrt, abs, Symbol, Eq, pi,
// e and E.
func Table() *symbolic.Table {
	t := symbolic.Elementary()
	for _, name := range []string{"asin", "acos", "atan"} {
		delete(t.Functions, name)
	}
	t.Symbols[Var] = symbolic.S(Var)
	t.Unknowns[Func] = true
	t.Implicit = Var
	t.Functions["diff"] = diff
	t.Functions["Symbol"] = symbol
	t.Functions["Eq"] = eqResidual
	return t
}

// diff(f, x, n) is the n-th derivative of f. Applied to the unknown it
// stays an unevaluated derivative.
func diff(args []symbolic.Arg) (symbolic.Expr, error) {
	if len(args) < 1 || len(args) > 3 || args[0].IsText {
		return nil, fmt.Errorf("diff() takes an expression, a variable and an optional order")
	}
	wrt, n := Var, 1
	if len(args) >= 2 {
		s, ok := args[1].Expr.(*symbolic.Sym)
		if args[1].IsText || !ok {
			return nil, fmt.Errorf("diff() variable must be a symbol")
		}
		wrt = s.Name()
	}
	if len(args) == 3 {
		num, ok := args[2].Expr.(*symbolic.Num)
		if args[2].IsText || !ok {
			return nil, fmt.Errorf("diff() order must be a positive integer")
		}
		k, ok := num.Int64()
		if !ok || k < 1 {
			return nil, fmt.Errorf("diff() order must be a positive integer")
		}
		n = int(k)
	}
	switch f := args[0].Expr.(type) {
	case *symbolic.Applied:
		return symbolic.NewDerivative(f, wrt, n), nil
	case *symbolic.Derivative:
		if f.Wrt() == wrt {
			return symbolic.NewDerivative(f.Func(), wrt, f.Order()+n), nil
		}
	}
	return symbolic.DiffN(args[0].Expr, wrt, n), nil
}

func symbol(args []symbolic.Arg) (symbolic.Expr, error) {
	if len(args) != 1 || !args[0].IsText || args[0].Text == "" {
		return nil, fmt.Errorf("Symbol() takes one string argument")
	}
	return symbolic.S(args[0].Text), nil
}

// eqResidual reads Eq(a, b) inside an expression as a - b.
func eqResidual(args []symbolic.Arg) (symbolic.Expr, error) {
	if len(args) != 2 || args[0].IsText || args[1].IsText {
		return nil, fmt.Errorf("Eq() takes two expressions")
	}
	return symbolic.Subtract(args[0].Expr, args[1].Expr), nil
}

// ============================================================
// Errors
// ============================================================

const errLimit = 100

// Error reports a side that neither the structured parser nor the
// fallback evaluator could read.
type Error struct {
	// Left and Right are the exact substrings attempted. Split is false
	// when the text had no '='.
	Left, Right string
	Split       bool
	Structured  error
	Fallback    error
}

func (e *Error) Error() string {
	where := fmt.Sprintf("expression: '%s'", e.Left)
	if e.Split {
		where = fmt.Sprintf("left: '%s', right: '%s'", e.Left, e.Right)
	}
	return fmt.Sprintf("cannot parse equation: parser=%s, evaluator=%s. %s",
		clip(e.Structured), clip(e.Fallback), where)
}

func (e *Error) Unwrap() []error { return []error{e.Structured, e.Fallback} }

func clip(err error) string {
	if err == nil {
		return "<nil>"
	}
	s := err.Error()
	if len(s) > errLimit {
		return s[:errLimit]
	}
	return s
}

// ============================================================
// Parser
// ============================================================

// Parser reads equations against a fixed table. The table is never
// mutated after New, so a Parser may be shared.
type Parser struct {
	table *symbolic.Table
}

func New() *Parser { return &Parser{table: Table()} }

var (
	beforePlaceholder = regexp.MustCompile(`([A-Za-z0-9_)])(@@D[0-9]@@)`)
	digitBeforeY      = regexp.MustCompile(`(\d)(y\(x\))`)
	letterBeforeY     = regexp.MustCompile(`([A-Za-z])(y\(x\))`)
	bareY             = regexp.MustCompile(`\by\b`)
)

// ParseEquation splits canonical text at its first top-level '=' and parses
// both sides. Without '=' the right side is 0.
func (p *Parser) ParseEquation(canonical string) (*symbolic.Equation, error) {
	left, right, split := splitEquation(canonical)
	lhs, perr := p.side(left)
	if perr == nil && !split {
		return symbolic.Eq(lhs, symbolic.N(0)), nil
	}
	var rhs symbolic.Expr
	if perr == nil {
		rhs, perr = p.side(right)
	}
	if perr != nil {
		perr.Left, perr.Right, perr.Split = left, right, split
		return nil, perr
	}
	return symbolic.Eq(lhs, rhs), nil
}

// Expr parses a plain expression, such as a condition value, with the
// same two-stage strategy.
func (p *Parser) Expr(text string) (symbolic.Expr, error) {
	e, perr := p.side(text)
	if perr != nil {
		perr.Left = text
		return nil, perr
	}
	return e, nil
}

func (p *Parser) side(text string) (symbolic.Expr, *Error) {
	prepared := Prepare(text)
	if strings.TrimSpace(prepared) == "" {
		err := fmt.Errorf("empty expression")
		return nil, &Error{Structured: err, Fallback: err}
	}
	e, sErr := symbolic.Parse(prepared, p.table)
	if sErr == nil {
		return e, nil
	}
	e, fErr := Evaluate(prepared, p.table)
	if fErr == nil {
		return e, nil
	}
	return nil, &Error{Structured: sErr, Fallback: fErr}
}

// Prepare expands derivative placeholders into diff(y(x), x, n), makes
// multiplication by y(x) explicit and applies every bare y to x.
func Prepare(side string) string {
	s := beforePlaceholder.ReplaceAllString(side, "$1*$2")
	s = normalize.PlaceholderPattern.ReplaceAllStringFunc(s, func(tok string) string {
		n, _ := normalize.PlaceholderOrder(tok)
		return fmt.Sprintf("diff(y(x), x, %d)", n)
	})
	s = digitBeforeY.ReplaceAllString(s, "$1*$2")
	s = letterBeforeY.ReplaceAllString(s, "$1*$2")
	return applyBareY(s)
}

func applyBareY(s string) string {
	var sb strings.Builder
	last := 0
	for _, loc := range bareY.FindAllStringIndex(s, -1) {
		end := loc[1]
		sb.WriteString(s[last:end])
		if end >= len(s) || s[end] != '(' {
			sb.WriteString("(x)")
		}
		last = end
	}
	sb.WriteString(s[last:])
	return sb.String()
}

// splitEquation cuts at the first '=' outside parentheses.
func splitEquation(s string) (left, right string, split bool) {
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case '=':
			if depth == 0 {
				return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:]), true
			}
		}
	}
	return strings.TrimSpace(s), "0", false
}
