package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/njchilds90/odesolve/internal/parser"
	"github.com/njchilds90/odesolve/internal/pipeline"
)

var (
	colorAccent  = lipgloss.Color("#20B9B4")
	colorSuccess = lipgloss.Color("#2CD7C7")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
)

var styles = struct {
	Heading lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}{
	Heading: lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
	Success: lipgloss.NewStyle().Foreground(colorSuccess),
	Warning: lipgloss.NewStyle().Foreground(colorWarning),
	Error:   lipgloss.NewStyle().Foreground(colorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAccent).
		Padding(0, 1),
}

// printer writes a solve trace, styled only when w is a terminal.
type printer struct {
	w     io.Writer
	color bool
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, color: isTerminal(w)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *printer) result(res pipeline.Result) error {
	for _, step := range res.Steps {
		if _, err := fmt.Fprintln(p.w, p.line(step)); err != nil {
			return err
		}
	}
	if !res.Succeeded {
		return nil
	}

	solution := strings.Join(plainSolution(res), "\n")
	if p.color {
		solution = styles.Box.Render(solution)
	}
	_, err := fmt.Fprintf(p.w, "\n%s\n", solution)
	return err
}

// plainSolution renders the shown solution as y(x) = ... text, one line per
// branch. The trace and --json keep the LaTeX form.
func plainSolution(res pipeline.Result) []string {
	v := res.General
	if res.Particular != nil {
		v = res.Particular
	}
	lhs := parser.Unknown().String()
	lines := make([]string, len(v))
	for i, branch := range v {
		lines[i] = lhs + " = " + branch.String()
	}
	return lines
}

// line styles one trace line by its leading marker. Headings lose their
// ** markers on a terminal.
func (p *printer) line(step string) string {
	if !p.color {
		return step
	}
	trimmed := strings.TrimSpace(step)
	switch {
	case strings.HasPrefix(trimmed, "**") && strings.HasSuffix(trimmed, "**"):
		return styles.Heading.Render(strings.Trim(trimmed, "*"))
	case strings.HasPrefix(trimmed, "❌"):
		return styles.Error.Render(step)
	case strings.HasPrefix(trimmed, "⚠️"):
		return styles.Warning.Render(step)
	case strings.HasPrefix(trimmed, "✅"):
		return styles.Success.Render(strings.ReplaceAll(step, "**", ""))
	}
	return step
}
