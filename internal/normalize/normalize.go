// Package normalize rewrites loosely typed ODE notation into canonical
// algebraic text. Derivatives become placeholder tokens that later rules
// leave untouched; the parser expands them.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MaxOrder is the highest derivative order with a placeholder.
const MaxOrder = 3

// Placeholder returns the token standing for the order-th derivative of y.
func Placeholder(order int) string { return fmt.Sprintf("@@D%d@@", order) }

// PlaceholderPattern matches any placeholder; the submatch is the order.
var PlaceholderPattern = regexp.MustCompile(`@@D([0-9])@@`)

// PlaceholderOrder parses the order out of a placeholder match.
func PlaceholderOrder(token string) (int, bool) {
	m := PlaceholderPattern.FindStringSubmatch(token)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	return n, err == nil
}

var punctuation = strings.NewReplacer("−", "-", "–", "-", "—", "-", "′", "'", "″", "''")

var scripts = strings.NewReplacer(
	"⁰", "^0", "¹", "^1", "²", "^2", "³", "^3", "⁴", "^4",
	"⁵", "^5", "⁶", "^6", "⁷", "^7", "⁸", "^8", "⁹", "^9",
	"₀", "_0", "₁", "_1", "₂", "_2", "₃", "_3",
)

var (
	decimalComma = regexp.MustCompile(`(\d),(\d)`)

	// Highest order first so y'' is not read as y' followed by a quote.
	derivatives = []struct {
		re    *regexp.Regexp
		order int
	}{
		{regexp.MustCompile(`y'''`), 3},
		{regexp.MustCompile(`d(?:\*\*)?3\s*y\s*/\s*d\s*x\s*(?:\*\*)?3`), 3},
		{regexp.MustCompile(`y''`), 2},
		{regexp.MustCompile(`d(?:\*\*)?2\s*y\s*/\s*d\s*x\s*(?:\*\*)?2`), 2},
		{regexp.MustCompile(`y'`), 1},
		{regexp.MustCompile(`d\s*y\s*/\s*d\s*x`), 1},
	}

	digitLetter = regexp.MustCompile(`(\d)([A-Za-z])`)
	digitParen  = regexp.MustCompile(`(\d)\(`)
	parenTerm   = regexp.MustCompile(`\)([A-Za-z0-9])`)

	expParen = regexp.MustCompile(`\be\*\*\(([^()]*)\)`)
	expAtom  = regexp.MustCompile(`\be\*\*([A-Za-z0-9_.]+)`)
)

// Unicode trims s, maps Unicode dashes and primes to ASCII, and writes
// super/subscript digits as ^d and _d.
func Unicode(s string) string {
	s = strings.TrimSpace(s)
	s = punctuation.Replace(s)
	return scripts.Replace(s)
}

// Equation canonicalizes raw ODE text. It never fails: anything it does not
// recognize passes through unchanged, and it is idempotent on its output.
func Equation(raw string) string {
	s := Unicode(raw)
	s = decimalComma.ReplaceAllString(s, "$1.$2")
	s = strings.ReplaceAll(s, "^", "**")
	for _, d := range derivatives {
		s = d.re.ReplaceAllLiteralString(s, Placeholder(d.order))
	}
	s = ImplicitMultiplication(s)
	s = expParen.ReplaceAllString(s, "exp($1)")
	s = expAtom.ReplaceAllString(s, "exp($1)")
	return s
}

// ImplicitMultiplication inserts '*' for digit-letter, digit-'(' and
// ')'-letter/digit adjacency.
func ImplicitMultiplication(s string) string {
	s = digitLetter.ReplaceAllString(s, "$1*$2")
	s = digitParen.ReplaceAllString(s, "$1*(")
	return parenTerm.ReplaceAllString(s, ")*$1")
}
