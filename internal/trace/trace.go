// Package trace records the human-readable steps taken while resolving one
// request. A Trace belongs to a single request and is not safe for
// concurrent use.
package trace

import (
	"fmt"
	"strings"
)

// Trace is an append-only list of step lines.
type Trace struct {
	lines []string
}

func New() *Trace { return &Trace{} }

// Add appends one formatted line. Adding to a nil Trace is a no-op, so
// callers that do not care about steps may pass nil.
func (t *Trace) Add(format string, args ...any) {
	if t == nil {
		return
	}
	t.lines = append(t.lines, fmt.Sprintf(format, args...))
}

// Blank appends an empty separator line.
func (t *Trace) Blank() {
	if t == nil {
		return
	}
	t.lines = append(t.lines, "")
}

// Heading appends a bold section title.
func (t *Trace) Heading(format string, args ...any) {
	t.Add("**"+format+"**", args...)
}

// Math appends an indented display-math line.
func (t *Trace) Math(latex string) {
	t.Add("   $$%s$$", latex)
}

// Lines returns a copy of the recorded lines.
func (t *Trace) Lines() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.lines...)
}

func (t *Trace) Len() int {
	if t == nil {
		return 0
	}
	return len(t.lines)
}

// Contains reports whether any line contains substr.
func (t *Trace) Contains(substr string) bool {
	if t == nil {
		return false
	}
	for _, l := range t.lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

// Truncate shortens s to at most n bytes, marking the cut with "...".
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
