// Package solver decides which solving methods to try for an equation and
// in which order, recording every attempt in the request trace.
//
// Two modes exist. Auto tries the first few classified hints in ranking
// order and finishes with an unhinted solve. A named Strategy
// tries its registered hints, then one unhinted retry, and on exhaustion
// re-enters auto mode with the hints it has not tried yet.
package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/njchilds90/odesolve/internal/engine"
	"github.com/njchilds90/odesolve/internal/parser"
	"github.com/njchilds90/odesolve/internal/trace"
	"github.com/njchilds90/odesolve/ode"
	"github.com/njchilds90/odesolve/symbolic"
)

// DefaultMaxHints caps the ranked hints tried in auto mode.
const DefaultMaxHints = 5

const reasonLimit = 200

var errNoSolution = errors.New("engine returned no solution")

// Orchestrator runs solve attempts against an Engine. It holds no
// per-request state and may be shared.
type Orchestrator struct {
	eng      engine.Engine
	maxHints int
	logger   *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxHints caps the hints tried in auto mode. Values below 1 keep the
// default.
func WithMaxHints(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxHints = n
		}
	}
}

// WithLogger sets the logger for per-attempt debug lines.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func New(eng engine.Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{eng: eng, maxHints: DefaultMaxHints, logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Classify returns the ranked hints for eq. An engine failure is written to
// tr and yields an empty list.
func Classify(ctx context.Context, eng engine.Engine, eq *symbolic.Equation, tr *trace.Trace) []ode.Hint {
	hints, err := eng.Classify(ctx, eq, parser.Unknown())
	if err != nil {
		tr.Add("⚠️ Classification error: %s", trace.Truncate(err.Error(), 100))
		return nil
	}
	return hints
}

// Solve produces a general solution for eq. It returns false when every
// available attempt failed; that is a normal outcome, explained in tr.
func (o *Orchestrator) Solve(ctx context.Context, eq *symbolic.Equation, s Strategy, tr *trace.Trace) (engine.Value, bool) {
	var (
		v  engine.Value
		ok bool
	)
	if s == Auto {
		v, ok = o.auto(ctx, eq, tr)
	} else {
		v, ok = o.named(ctx, eq, s, tr)
	}
	recordOutcome(s.String(), ok)
	if !ok {
		return engine.Value{}, false
	}
	return v, true
}

// attempt is one engine solve; an empty hint is the unhinted solve.
type attempt struct {
	hint ode.Hint
}

// reporter writes the mode-specific trace lines around each attempt.
type reporter struct {
	before  func(i int, a attempt)
	success func(i int, a attempt, v engine.Value)
	failure func(i int, a attempt, err error)
}

// tryInOrder runs attempts until one yields a solution.
func (o *Orchestrator) tryInOrder(ctx context.Context, eq *symbolic.Equation, attempts []attempt, rep reporter) (engine.Value, ode.Hint, bool) {
	for i, a := range attempts {
		if rep.before != nil {
			rep.before(i, a)
		}
		start := time.Now()
		v, err := o.eng.Solve(ctx, eq, parser.Unknown(), a.hint)
		if err == nil && v.Empty() {
			err = errNoSolution
		}
		elapsed := time.Since(start)

		switch {
		case err == nil:
			recordAttempt(a.hint, "success", elapsed)
		case errors.Is(err, engine.ErrBudgetExceeded):
			recordAttempt(a.hint, "budget", elapsed)
		default:
			recordAttempt(a.hint, "failure", elapsed)
		}
		o.logger.Debug("solve attempt",
			"hint", hintLabel(a.hint),
			"ok", err == nil,
			"duration", elapsed,
			"error", err)

		if err != nil {
			if rep.failure != nil {
				rep.failure(i, a, err)
			}
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if rep.success != nil {
			rep.success(i, a, v)
		}
		return v, a.hint, true
	}
	return nil, "", false
}

func (o *Orchestrator) capped(hints []ode.Hint) []ode.Hint {
	if len(hints) > o.maxHints {
		return hints[:o.maxHints]
	}
	return hints
}

func (o *Orchestrator) auto(ctx context.Context, eq *symbolic.Equation, tr *trace.Trace) (engine.Value, bool) {
	tr.Heading("Step 3: automatic classification of the equation")
	hints := o.capped(Classify(ctx, o.eng, eq, tr))

	if len(hints) == 0 {
		tr.Add("   No specific method could be detected for this equation.")
		tr.Heading("Step 3.1: trying a direct solve")
		tr.Add("   Solving without restricting the method...")
		v, _, ok := o.tryInOrder(ctx, eq, []attempt{{}}, reporter{
			success: func(_ int, _ attempt, v engine.Value) { o.writeValue(tr, "✅ Solution found", v) },
			failure: func(_ int, _ attempt, err error) { tr.Add("❌ Could not solve: %s", reason(err)) },
		})
		return v, ok
	}

	tr.Add("   The following applicable methods were detected:")
	for i, h := range hints {
		tr.Add("   %d. %s (%s)", i+1, DisplayName(h), h)
	}
	attempts := make([]attempt, 0, len(hints)+1)
	for _, h := range hints {
		attempts = append(attempts, attempt{hint: h})
	}
	attempts = append(attempts, attempt{})

	v, _, ok := o.tryInOrder(ctx, eq, attempts, reporter{
		before: func(i int, a attempt) {
			tr.Blank()
			if a.hint == "" {
				tr.Heading("Step 3.%d: trying a general solve (no specific method)", i+1)
				tr.Add("   The specific methods did not work, so a general method is tried...")
				return
			}
			tr.Heading("Step 3.%d: trying method '%s'", i+1, a.hint)
		},
		success: func(_ int, a attempt, v engine.Value) {
			if a.hint == "" {
				o.writeValue(tr, "✅ Solution found", v)
				return
			}
			o.writeValue(tr, fmt.Sprintf("✅ Success! Solution found using method '%s'", DisplayName(a.hint)), v)
		},
		failure: func(i int, a attempt, err error) {
			if a.hint == "" {
				tr.Add("❌ General solve failed: %s", reason(err))
				return
			}
			tr.Add("⚠️ Method '%s' is not applicable or failed.", DisplayName(a.hint))
			tr.Add("   Reason: %s", reason(err))
			if i < len(hints)-1 {
				tr.Add("   Trying next method...")
			}
		},
	})
	return v, ok
}

func (o *Orchestrator) named(ctx context.Context, eq *symbolic.Equation, s Strategy, tr *trace.Trace) (engine.Value, bool) {
	tr.Heading("%s", s.Title())
	tr.Add("Original equation: $$%s$$", eq.LaTeX())

	chain := Chain(s)
	attempts := make([]attempt, 0, len(chain)+1)
	for _, h := range chain {
		attempts = append(attempts, attempt{hint: h})
	}
	attempts = append(attempts, attempt{})

	v, _, ok := o.tryInOrder(ctx, eq, attempts, reporter{
		before: func(_ int, a attempt) {
			if a.hint == "" {
				tr.Add("⚠️ Trying an alternative method...")
			}
		},
		success: func(_ int, a attempt, v engine.Value) {
			if a.hint == "" {
				o.writeValue(tr, "✅ Solution found (general method)", v)
				return
			}
			o.writeValue(tr, "✅ Solution found", v)
		},
		failure: func(_ int, a attempt, err error) {
			if a.hint == "" {
				tr.Add("❌ Final error: %s", reason(err))
				return
			}
			tr.Add("❌ Method '%s' failed: %s", a.hint, reason(err))
		},
	})
	if ok {
		return v, true
	}

	tr.Add("⚠️ The method '%s' did not work, trying automatic detection...", s)
	return o.fallbackAuto(ctx, eq, chain, tr)
}

// fallbackAuto is auto mode after a named strategy failed. Hints already
// tried and the unhinted solve are not repeated.
func (o *Orchestrator) fallbackAuto(ctx context.Context, eq *symbolic.Equation, tried []ode.Hint, tr *trace.Trace) (engine.Value, bool) {
	hints := o.capped(Classify(ctx, o.eng, eq, tr))
	if len(hints) == 0 {
		tr.Add("   No applicable methods were detected.")
		return nil, false
	}
	names := make([]string, len(hints))
	for i, h := range hints {
		names[i] = string(h)
	}
	tr.Add("🔍 Available methods: %s", strings.Join(names, ", "))

	skip := make(map[ode.Hint]bool, len(tried))
	for _, h := range tried {
		skip[h] = true
	}
	var attempts []attempt
	for _, h := range hints {
		if skip[h] {
			tr.Add("   Skipping '%s' (already tried).", h)
			continue
		}
		attempts = append(attempts, attempt{hint: h})
	}
	if len(attempts) == 0 {
		tr.Add("   No untried methods remain.")
		return nil, false
	}

	v, _, ok := o.tryInOrder(ctx, eq, attempts, reporter{
		before: func(_ int, a attempt) { tr.Add("🔄 Trying method: '%s'...", a.hint) },
		success: func(_ int, a attempt, v engine.Value) {
			o.writeValue(tr, fmt.Sprintf("✅ Solution found using '%s' (auto-detected)", a.hint), v)
		},
		failure: func(_ int, a attempt, err error) {
			tr.Add("   Method '%s' failed: %s", a.hint, reason(err))
		},
	})
	return v, ok
}

// writeValue writes a title line followed by the branches of v.
func (o *Orchestrator) writeValue(tr *trace.Trace, title string, v engine.Value) {
	WriteValue(tr, o.eng, title, v)
}

// WriteValue writes title and the branches of v as y(x) = ... display
// lines. Multi-branch values are numbered.
func WriteValue(tr *trace.Trace, eng engine.Engine, title string, v engine.Value) {
	if v.Multi() {
		tr.Add("%s (multiple solutions):", title)
		for i, b := range v {
			tr.Add("   Solution %d: $$%s$$", i+1, SolutionLaTeX(eng, b))
		}
		return
	}
	tr.Add("%s:", title)
	for _, b := range v {
		tr.Math(SolutionLaTeX(eng, b))
	}
}

// SolutionLaTeX renders one branch as the equation y(x) = branch.
func SolutionLaTeX(eng engine.Engine, branch symbolic.Expr) string {
	return parser.Unknown().LaTeX() + " = " + eng.Display(branch)
}

func reason(err error) string {
	return trace.Truncate(err.Error(), reasonLimit)
}
