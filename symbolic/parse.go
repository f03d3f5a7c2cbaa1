package symbolic

import (
	"fmt"
	"strings"
	"unicode"
)

// ============================================================
// Symbol tables
// ============================================================

// Arg is a call argument: an expression, or a quoted string literal.
type Arg struct {
	Expr   Expr
	Text   string
	IsText bool
}

// Builtin implements a named callable of a Table.
type Builtin func(args []Arg) (Expr, error)

// Table binds the names an expression may use.
type Table struct {
	Symbols   map[string]Expr
	Functions map[string]Builtin
	// Unknowns are undefined functions; a bare name is applied to Implicit.
	Unknowns map[string]bool
	Implicit string
}

// Lookup resolves a plain name.
func (t *Table) Lookup(name string) (Expr, bool) {
	if v, ok := t.Symbols[name]; ok {
		return v, true
	}
	if t.Unknowns[name] && t.Implicit != "" {
		return Apply(name, S(t.Implicit)), true
	}
	return nil, false
}

// Call invokes a function or applies an unknown function.
func (t *Table) Call(name string, args []Arg) (Expr, error) {
	if fn, ok := t.Functions[name]; ok {
		return fn(args)
	}
	if t.Unknowns[name] {
		if len(args) != 1 || args[0].IsText {
			return nil, fmt.Errorf("%s() takes exactly one expression argument", name)
		}
		return Apply(name, args[0].Expr), nil
	}
	return nil, fmt.Errorf("name '%s' is not callable", name)
}

// ============================================================
// Tokenizer
// ============================================================

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNum
	tokIdent
	tokString
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// SyntaxError locates a parse failure in the input.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string { return fmt.Sprintf("%s at offset %d", e.Msg, e.Pos) }

func tokenize(s string) ([]token, error) {
	var toks []token
	rs := []rune(s)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsDigit(r) || (r == '.' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			start := i
			for i < len(rs) && (unicode.IsDigit(rs[i]) || rs[i] == '.') {
				i++
			}
			toks = append(toks, token{kind: tokNum, text: string(rs[start:i]), pos: start})
		case r == '_' || (r < unicode.MaxASCII && unicode.IsLetter(r)):
			start := i
			for i < len(rs) && (rs[i] == '_' || (rs[i] < unicode.MaxASCII && (unicode.IsLetter(rs[i]) || unicode.IsDigit(rs[i])))) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: string(rs[start:i]), pos: start})
		case r == '\'' || r == '"':
			start := i
			i++
			for i < len(rs) && rs[i] != r {
				i++
			}
			if i >= len(rs) {
				return nil, &SyntaxError{Pos: start, Msg: "unterminated string literal"}
			}
			toks = append(toks, token{kind: tokString, text: string(rs[start+1 : i]), pos: start})
			i++
		case r == '*' && i+1 < len(rs) && rs[i+1] == '*':
			toks = append(toks, token{kind: tokOp, text: "**", pos: i})
			i += 2
		case strings.ContainsRune("+-*/^", r):
			text := string(r)
			if r == '^' {
				text = "**"
			}
			toks = append(toks, token{kind: tokOp, text: text, pos: i})
			i++
		case r == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case r == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case r == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: i})
			i++
		default:
			return nil, &SyntaxError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", r)}
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(rs)})
	return toks, nil
}

// ============================================================
// Structured parser
// ============================================================

// Parse reads an infix expression. It accepts implicit multiplication
// ("2x", "x(x+1)", "2 sin(x)"), ** and ^ for powers, splits unknown
// multi-letter lowercase names into single-letter factors ("xy" is x*y) and
// creates symbols for any other unknown name.
func Parse(text string, table *Table) (Expr, error) {
	toks, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	if len(toks) == 1 {
		return nil, &SyntaxError{Pos: 0, Msg: "empty expression"}
	}
	p := &parser{toks: toks, table: table}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
	}
	return e.Simplify(), nil
}

type parser struct {
	toks  []token
	i     int
	table *Table
}

func (p *parser) peek() token { return p.toks[p.i] }
func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) expr() (Expr, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "+" && t.text != "-") {
			return left, nil
		}
		p.next()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		if t.text == "-" {
			right = Neg(right)
		}
		left = AddOf(left, right)
	}
}

func startsOperand(t token) bool {
	return t.kind == tokNum || t.kind == tokIdent || t.kind == tokLParen
}

func (p *parser) term() (Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		switch {
		case t.kind == tokOp && (t.text == "*" || t.text == "/"):
			p.next()
			right, err := p.unary()
			if err != nil {
				return nil, err
			}
			if t.text == "/" {
				if IsZero(right) {
					return nil, &SyntaxError{Pos: t.pos, Msg: "division by zero"}
				}
				right = PowOf(right, N(-1))
			}
			left = MulOf(left, right)
		case startsOperand(t):
			right, err := p.power()
			if err != nil {
				return nil, err
			}
			left = MulOf(left, right)
		default:
			return left, nil
		}
	}
}

func (p *parser) unary() (Expr, error) {
	t := p.peek()
	if t.kind == tokOp && (t.text == "-" || t.text == "+") {
		p.next()
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		if t.text == "-" {
			return Neg(operand), nil
		}
		return operand, nil
	}
	return p.power()
}

func (p *parser) power() (Expr, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind == tokOp && t.text == "**" {
		p.next()
		exp, err := p.unary()
		if err != nil {
			return nil, err
		}
		return PowOf(base, exp), nil
	}
	return base, nil
}

func (p *parser) primary() (Expr, error) {
	t := p.next()
	switch t.kind {
	case tokNum:
		n, ok := ParseNum(t.text)
		if !ok {
			return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("invalid number %q", t.text)}
		}
		return n, nil
	case tokLParen:
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if c := p.next(); c.kind != tokRParen {
			return nil, &SyntaxError{Pos: c.pos, Msg: "expected ')'"}
		}
		return e, nil
	case tokIdent:
		return p.identifier(t)
	case tokEOF:
		return nil, &SyntaxError{Pos: t.pos, Msg: "unexpected end of input"}
	}
	return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
}

func (p *parser) identifier(t token) (Expr, error) {
	name := t.text
	_, isFunc := p.table.Functions[name]
	callable := isFunc || p.table.Unknowns[name]
	if callable && p.peek().kind == tokLParen {
		p.next()
		args, err := p.args()
		if err != nil {
			return nil, err
		}
		e, err := p.table.Call(name, args)
		if err != nil {
			return nil, &SyntaxError{Pos: t.pos, Msg: err.Error()}
		}
		return e, nil
	}
	if isFunc {
		return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("function %s needs parenthesised arguments", name)}
	}
	if v, ok := p.table.Lookup(name); ok {
		return v, nil
	}
	if splittable(name) {
		factors := make([]Expr, 0, len(name))
		for _, r := range name {
			part := string(r)
			if v, ok := p.table.Lookup(part); ok {
				factors = append(factors, v)
			} else {
				factors = append(factors, S(part))
			}
		}
		return MulOf(factors...), nil
	}
	return S(name), nil
}

// splittable reports whether an unknown name is a run of single-letter
// symbols written without operators.
func splittable(name string) bool {
	if len(name) < 2 {
		return false
	}
	for _, r := range name {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

func (p *parser) args() ([]Arg, error) {
	var out []Arg
	if p.peek().kind == tokRParen {
		p.next()
		return out, nil
	}
	for {
		if t := p.peek(); t.kind == tokString {
			p.next()
			out = append(out, Arg{Text: t.text, IsText: true})
		} else {
			e, err := p.expr()
			if err != nil {
				return nil, err
			}
			out = append(out, Arg{Expr: e})
		}
		switch t := p.next(); t.kind {
		case tokComma:
			continue
		case tokRParen:
			return out, nil
		default:
			return nil, &SyntaxError{Pos: t.pos, Msg: "expected ',' or ')'"}
		}
	}
}

// Elementary returns a fresh table of the elementary functions and
// constants. Callers may extend it.
func Elementary() *Table {
	t := &Table{
		Symbols: map[string]Expr{
			"pi": Pi,
			"e":  E(),
			"E":  E(),
		},
		Functions: map[string]Builtin{},
		Unknowns:  map[string]bool{},
	}
	for _, name := range []string{"exp", "log", "ln", "sin", "cos", "tan", "abs", "asin", "acos", "atan"} {
		t.Functions[name] = func(args []Arg) (Expr, error) {
			arg, err := single(name, args)
			if err != nil {
				return nil, err
			}
			f, _ := NewFunc(name, arg)
			return f, nil
		}
	}
	t.Functions["sqrt"] = func(args []Arg) (Expr, error) {
		arg, err := single("sqrt", args)
		if err != nil {
			return nil, err
		}
		return SqrtOf(arg), nil
	}
	return t
}

func single(name string, args []Arg) (Expr, error) {
	if len(args) != 1 || args[0].IsText {
		return nil, fmt.Errorf("%s() takes exactly one expression argument (%d given)", name, len(args))
	}
	return args[0].Expr, nil
}
