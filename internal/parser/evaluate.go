package parser

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/njchilds90/odesolve/symbolic"
)

// The fallback grammar is deliberately small: numbers, names resolved
// through the table, quoted strings as call arguments, the binary
// operators + - * / ** with unary minus, parentheses and commas. There is
// no implicit multiplication and no name is ever created on the fly.

type tokKind int

const (
	tNum tokKind = iota
	tName
	tStr
	tOp
	tLParen
	tRParen
	tComma
)

type tok struct {
	kind tokKind
	text string
	pos  int
}

func lex(s string) ([]tok, error) {
	var out []tok
	rs := []rune(s)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsDigit(r) || (r == '.' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			j := i
			for j < len(rs) && (unicode.IsDigit(rs[j]) || rs[j] == '.') {
				j++
			}
			out = append(out, tok{tNum, string(rs[i:j]), i})
			i = j
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(rs) && (unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j]) || rs[j] == '_') {
				j++
			}
			out = append(out, tok{tName, string(rs[i:j]), i})
			i = j
		case r == '\'' || r == '"':
			j := i + 1
			for j < len(rs) && rs[j] != r {
				j++
			}
			if j >= len(rs) {
				return nil, fmt.Errorf("unterminated string at offset %d", i)
			}
			out = append(out, tok{tStr, string(rs[i+1 : j]), i})
			i = j + 1
		case r == '*' && i+1 < len(rs) && rs[i+1] == '*':
			out = append(out, tok{tOp, "**", i})
			i += 2
		case strings.ContainsRune("+-*/", r):
			out = append(out, tok{tOp, string(r), i})
			i++
		case r == '(':
			out = append(out, tok{tLParen, "(", i})
			i++
		case r == ')':
			out = append(out, tok{tRParen, ")", i})
			i++
		case r == ',':
			out = append(out, tok{tComma, ",", i})
			i++
		default:
			return nil, fmt.Errorf("character %q at offset %d is not allowed", r, i)
		}
	}
	return out, nil
}

const (
	opFrame = iota
	parenFrame
	callFrame
)

type frame struct {
	kind int
	op   string // operator, or "neg" for unary minus
	name string // called name
	base int    // value stack height when the call opened
	pos  int
}

var precedence = map[string]int{"+": 1, "-": 1, "*": 2, "/": 2, "neg": 3, "**": 4}

// binds reports whether the stacked operator top must be applied before
// pushing incoming.
func binds(top, incoming string) bool {
	pt, pi := precedence[top], precedence[incoming]
	if incoming == "**" {
		return pt > pi
	}
	return pt >= pi
}

type evaluator struct {
	table *symbolic.Table
	vals  []symbolic.Arg
	ops   []frame
}

// Evaluate reads text with the restricted grammar. Every name must be
// bound in table, either as a value or as a callable.
func Evaluate(text string, table *symbolic.Table) (symbolic.Expr, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}
	ev := &evaluator{table: table}
	expectOperand := true
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch t.kind {
		case tNum, tStr, tName:
			if !expectOperand {
				return nil, fmt.Errorf("missing operator before %q at offset %d", t.text, t.pos)
			}
			if t.kind == tName && i+1 < len(toks) && toks[i+1].kind == tLParen {
				ev.ops = append(ev.ops, frame{kind: callFrame, name: t.text, base: len(ev.vals), pos: t.pos})
				i++
				continue
			}
			v, err := ev.operand(t)
			if err != nil {
				return nil, err
			}
			ev.vals = append(ev.vals, v)
			expectOperand = false

		case tLParen:
			if !expectOperand {
				return nil, fmt.Errorf("missing operator before '(' at offset %d", t.pos)
			}
			ev.ops = append(ev.ops, frame{kind: parenFrame, pos: t.pos})

		case tOp:
			if expectOperand {
				switch t.text {
				case "-":
					ev.ops = append(ev.ops, frame{kind: opFrame, op: "neg", pos: t.pos})
					continue
				case "+":
					continue
				}
				return nil, fmt.Errorf("unexpected operator %q at offset %d", t.text, t.pos)
			}
			for len(ev.ops) > 0 {
				top := ev.ops[len(ev.ops)-1]
				if top.kind != opFrame || !binds(top.op, t.text) {
					break
				}
				if err := ev.reduce(); err != nil {
					return nil, err
				}
			}
			ev.ops = append(ev.ops, frame{kind: opFrame, op: t.text, pos: t.pos})
			expectOperand = true

		case tComma:
			if expectOperand {
				return nil, fmt.Errorf("unexpected ',' at offset %d", t.pos)
			}
			if err := ev.reduceOperators(); err != nil {
				return nil, err
			}
			if len(ev.ops) == 0 || ev.ops[len(ev.ops)-1].kind != callFrame {
				return nil, fmt.Errorf("',' outside a call at offset %d", t.pos)
			}
			expectOperand = true

		case tRParen:
			if expectOperand {
				n := len(ev.ops)
				if n == 0 || ev.ops[n-1].kind != callFrame || len(ev.vals) != ev.ops[n-1].base {
					return nil, fmt.Errorf("unexpected ')' at offset %d", t.pos)
				}
			}
			if err := ev.reduceOperators(); err != nil {
				return nil, err
			}
			if len(ev.ops) == 0 {
				return nil, fmt.Errorf("unbalanced ')' at offset %d", t.pos)
			}
			top := ev.ops[len(ev.ops)-1]
			ev.ops = ev.ops[:len(ev.ops)-1]
			if top.kind == callFrame {
				args := append([]symbolic.Arg(nil), ev.vals[top.base:]...)
				ev.vals = ev.vals[:top.base]
				e, err := ev.table.Call(top.name, args)
				if err != nil {
					return nil, err
				}
				ev.vals = append(ev.vals, symbolic.Arg{Expr: e})
			}
			expectOperand = false
		}
	}
	if expectOperand {
		return nil, fmt.Errorf("unexpected end of input")
	}
	if err := ev.reduceOperators(); err != nil {
		return nil, err
	}
	if len(ev.ops) > 0 {
		return nil, fmt.Errorf("missing ')' for '(' at offset %d", ev.ops[len(ev.ops)-1].pos)
	}
	if len(ev.vals) != 1 || ev.vals[0].IsText {
		return nil, fmt.Errorf("input is not a single expression")
	}
	return ev.vals[0].Expr, nil
}

func (ev *evaluator) operand(t tok) (symbolic.Arg, error) {
	switch t.kind {
	case tNum:
		n, ok := symbolic.ParseNum(t.text)
		if !ok {
			return symbolic.Arg{}, fmt.Errorf("invalid number %q at offset %d", t.text, t.pos)
		}
		return symbolic.Arg{Expr: n}, nil
	case tStr:
		return symbolic.Arg{Text: t.text, IsText: true}, nil
	}
	v, ok := ev.table.Lookup(t.text)
	if !ok {
		return symbolic.Arg{}, fmt.Errorf("name '%s' is not defined", t.text)
	}
	return symbolic.Arg{Expr: v}, nil
}

// reduceOperators applies stacked operators down to the nearest
// parenthesis or call.
func (ev *evaluator) reduceOperators() error {
	for len(ev.ops) > 0 && ev.ops[len(ev.ops)-1].kind == opFrame {
		if err := ev.reduce(); err != nil {
			return err
		}
	}
	return nil
}

func (ev *evaluator) pop() (symbolic.Expr, error) {
	if len(ev.vals) == 0 {
		return nil, fmt.Errorf("missing operand")
	}
	v := ev.vals[len(ev.vals)-1]
	ev.vals = ev.vals[:len(ev.vals)-1]
	if v.IsText {
		return nil, fmt.Errorf("string '%s' used as a value", v.Text)
	}
	return v.Expr, nil
}

func (ev *evaluator) reduce() error {
	f := ev.ops[len(ev.ops)-1]
	ev.ops = ev.ops[:len(ev.ops)-1]
	b, err := ev.pop()
	if err != nil {
		return err
	}
	if f.op == "neg" {
		ev.vals = append(ev.vals, symbolic.Arg{Expr: symbolic.Neg(b)})
		return nil
	}
	a, err := ev.pop()
	if err != nil {
		return err
	}
	var r symbolic.Expr
	switch f.op {
	case "+":
		r = symbolic.AddOf(a, b)
	case "-":
		r = symbolic.Subtract(a, b)
	case "*":
		r = symbolic.MulOf(a, b)
	case "/":
		if n, ok := b.(*symbolic.Num); ok && n.IsZero() {
			return fmt.Errorf("division by zero at offset %d", f.pos)
		}
		r = symbolic.Quo(a, b)
	case "**":
		r = symbolic.PowOf(a, b)
	}
	ev.vals = append(ev.vals, symbolic.Arg{Expr: r})
	return nil
}
