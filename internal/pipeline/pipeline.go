// Package pipeline runs one solve request end to end: normalize, parse,
// classify and solve, simplify, apply conditions and summarize.
//
// Every stage writes to the request's trace.Trace. Resolve never returns an
// error: failures are reported through Result.Outcome and the trace, and a
// panic anywhere below Resolve becomes an OutcomeFault result.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/njchilds90/odesolve/internal/conditions"
	"github.com/njchilds90/odesolve/internal/engine"
	"github.com/njchilds90/odesolve/internal/logging"
	"github.com/njchilds90/odesolve/internal/normalize"
	"github.com/njchilds90/odesolve/internal/parser"
	"github.com/njchilds90/odesolve/internal/solver"
	"github.com/njchilds90/odesolve/internal/trace"
	"github.com/njchilds90/odesolve/symbolic"
)

// diagnosticLimit bounds the stack excerpt written for a recovered panic.
const diagnosticLimit = 500

const tracerName = "github.com/njchilds90/odesolve/internal/pipeline"

// Outcome classifies how a request ended.
type Outcome string

const (
	OutcomeSolved   Outcome = "solved"
	OutcomeUnsolved Outcome = "unsolved"
	OutcomeInvalid  Outcome = "invalid"
	OutcomeFault    Outcome = "fault"
)

// RawInput is a solve request as received from a user.
type RawInput struct {
	Equation          string
	Method            string
	InitialConditions string
}

// Result is what Resolve produces for one request.
type Result struct {
	Outcome   Outcome
	Succeeded bool
	Strategy  solver.Strategy

	// General is the simplified general solution. Particular is set only
	// when conditions produced a solution different from General.
	General    engine.Value
	Particular engine.Value

	// Display is the LaTeX of the solution shown to the user: Particular
	// when set, General otherwise.
	Display           string
	GeneralDisplay    string
	ParticularDisplay string

	Steps []string
}

// Resolver is safe for concurrent use; each Resolve call owns its trace.
type Resolver struct {
	eng    engine.Engine
	parser *parser.Parser
	orch   *solver.Orchestrator
	logger *slog.Logger
	tracer oteltrace.Tracer
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the fallback logger. A request-scoped logger stored with
// logging.WithContext takes precedence.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t oteltrace.Tracer) Option {
	return func(r *Resolver) {
		if t != nil {
			r.tracer = t
		}
	}
}

// New returns a Resolver. A nil orch gets a default orchestrator over eng.
func New(eng engine.Engine, orch *solver.Orchestrator, opts ...Option) *Resolver {
	if orch == nil {
		orch = solver.New(eng)
	}
	r := &Resolver{
		eng:    eng,
		parser: parser.New(),
		orch:   orch,
		logger: logging.Discard(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve runs the whole pipeline for in.
func (r *Resolver) Resolve(ctx context.Context, in RawInput) (res Result) {
	ctx, span := r.tracer.Start(ctx, "pipeline.Resolve", oteltrace.WithAttributes(
		attribute.String("ode.method", in.Method),
		attribute.Bool("ode.has_conditions", strings.TrimSpace(in.InitialConditions) != ""),
	))
	defer span.End()

	logger := logging.FromContext(ctx, r.logger)
	start := time.Now()
	tr := trace.New()

	defer func() {
		if p := recover(); p != nil {
			tr.Add("❌ General processing error: %v", p)
			tr.Add("   Technical details: %s", trace.Truncate(string(debug.Stack()), diagnosticLimit))
			res = Result{Outcome: OutcomeFault, Steps: tr.Lines()}
			span.SetStatus(codes.Error, fmt.Sprint(p))
			logger.Error("pipeline panic recovered", "panic", fmt.Sprint(p))
		}
		elapsed := time.Since(start)
		recordResolution(res.Outcome, elapsed)
		span.SetAttributes(attribute.String("ode.outcome", string(res.Outcome)))
		logger.Info("equation resolved",
			"outcome", res.Outcome,
			"method", res.Strategy.String(),
			"steps", len(res.Steps),
			"duration", elapsed,
		)
	}()

	return r.resolve(ctx, in, tr)
}

func (r *Resolver) resolve(ctx context.Context, in RawInput, tr *trace.Trace) Result {
	tr.Heading("Step 1: Equation entered")
	tr.Add("   Original equation: `%s`", in.Equation)

	eq, ok := r.parse(ctx, in.Equation, tr)
	if !ok {
		return Result{Outcome: OutcomeInvalid, Steps: tr.Lines()}
	}

	strategy, err := solver.ParseStrategy(in.Method)
	if err != nil {
		tr.Add("⚠️ %s; using automatic detection instead.", err)
		strategy = solver.Auto
	}

	general, ok := r.solve(ctx, eq, strategy, tr)
	if !ok {
		if !tr.Contains("❌") {
			tr.Add("❌ Could not find a solution for this equation.")
		}
		return Result{Outcome: OutcomeUnsolved, Strategy: strategy, Steps: tr.Lines()}
	}

	general = r.simplify(ctx, general, tr)
	res := Result{
		Outcome:        OutcomeSolved,
		Succeeded:      true,
		Strategy:       strategy,
		General:        general,
		GeneralDisplay: Render(r.eng, general),
	}

	particular := r.applyConditions(ctx, general, in.InitialConditions, tr)
	if !particular.Empty() && particular.String() != general.String() {
		res.Particular = particular
		res.ParticularDisplay = Render(r.eng, particular)
	}
	res.Display = res.GeneralDisplay
	if res.Particular != nil {
		res.Display = res.ParticularDisplay
	}

	r.summarize(res, tr)
	res.Steps = tr.Lines()
	return res
}

func (r *Resolver) parse(ctx context.Context, raw string, tr *trace.Trace) (*symbolic.Equation, bool) {
	ctx, span := r.tracer.Start(ctx, "pipeline.parse")
	defer span.End()

	canonical := normalize.Equation(raw)
	span.SetAttributes(attribute.String("ode.canonical", canonical))
	eq, err := engine.Run(ctx, engine.BudgetOf(r.eng), "parse_equation", func() (*symbolic.Equation, error) {
		return r.parser.ParseEquation(canonical)
	})
	if err != nil {
		tr.Add("❌ Error parsing the equation: %s", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return nil, false
	}

	tr.Blank()
	tr.Heading("Step 2: Parsed equation")
	tr.Add("   The equation in mathematical form is:")
	tr.Math(eq.LaTeX())
	if order := symbolic.OrderIn(eq.Residual(), parser.Func); order > 0 {
		tr.Add("   This is a differential equation of order %d.", order)
	}
	return eq, true
}

func (r *Resolver) solve(ctx context.Context, eq *symbolic.Equation, s solver.Strategy, tr *trace.Trace) (engine.Value, bool) {
	ctx, span := r.tracer.Start(ctx, "pipeline.solve", oteltrace.WithAttributes(
		attribute.String("ode.strategy", s.String()),
	))
	defer span.End()

	tr.Blank()
	if s != solver.Auto {
		tr.Heading("Step 3: solving with the selected method")
	}
	v, ok := r.orch.Solve(ctx, eq, s, tr)
	span.SetAttributes(attribute.Int("ode.branches", len(v)))
	if !ok {
		span.SetStatus(codes.Error, "no solution")
	}
	return v, ok
}

func (r *Resolver) simplify(ctx context.Context, general engine.Value, tr *trace.Trace) engine.Value {
	ctx, span := r.tracer.Start(ctx, "pipeline.simplify")
	defer span.End()

	tr.Blank()
	tr.Heading("Step 4: Simplifying the general solution")
	simplified := solver.NormalizeSolution(ctx, r.eng, general, tr)
	if simplified.String() == general.String() {
		tr.Add("   The solution is already in its simplest form.")
		writeBranches(tr, r.eng, simplified)
		return simplified
	}
	solver.WriteValue(tr, r.eng, "   Simplified solution", simplified)
	return simplified
}

// applyConditions returns nil when no conditions were given or none could
// be read.
func (r *Resolver) applyConditions(ctx context.Context, general engine.Value, text string, tr *trace.Trace) engine.Value {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	ctx, span := r.tracer.Start(ctx, "pipeline.conditions")
	defer span.End()

	tr.Blank()
	tr.Heading("Step 5: Processing initial conditions")
	tr.Add("   Conditions entered: `%s`", text)
	set := conditions.Parse(text, tr)
	span.SetAttributes(
		attribute.Int("ode.conditions", len(set.Conditions)),
		attribute.Int("ode.assignments", set.Assignments.Len()),
	)
	if set.Empty() {
		tr.Add("   ⚠️ No valid initial conditions were detected.")
		tr.Add("   Only the general solution is shown.")
		return nil
	}
	return conditions.Solve(ctx, r.eng, general, set, tr)
}

func (r *Resolver) summarize(res Result, tr *trace.Trace) {
	tr.Blank()
	tr.Heading("Step 6: Final summary")

	if res.Particular != nil {
		tr.Blank()
		tr.Heading("General solution:")
		writeBranches(tr, r.eng, res.General)
		tr.Blank()
		tr.Heading("Particular solution (conditions applied):")
		writeBranches(tr, r.eng, res.Particular)
	} else {
		writeBranches(tr, r.eng, res.General)
		writeConstants(tr, constantsOf(res.General))
	}

	tr.Blank()
	tr.Add("✅ **Summary:** The differential equation was solved successfully.")
}

func writeConstants(tr *trace.Trace, names []string) {
	switch len(names) {
	case 0:
		return
	case 1:
		tr.Blank()
		tr.Add("   The solution contains the integration constant: $%s$", names[0])
		tr.Add("   This constant can take any real value.")
		tr.Add("   To obtain a particular solution, provide an initial condition (e.g. y(0)=3).")
	default:
		quoted := make([]string, len(names))
		for i, n := range names {
			quoted[i] = "$" + n + "$"
		}
		tr.Blank()
		tr.Add("   The solution contains the integration constants: %s", strings.Join(quoted, ", "))
		tr.Add("   These constants can take any real value.")
		tr.Add("   To obtain a particular solution, provide initial conditions (e.g. y(0)=3, y'(0)=1).")
	}
}

// constantsOf collects the integration constants of every branch, sorted.
func constantsOf(v engine.Value) []string {
	seen := map[string]bool{}
	var out []string
	for _, b := range v {
		for _, name := range conditions.IntegrationConstants(b) {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	sort.Strings(out)
	return out
}

func writeBranches(tr *trace.Trace, eng engine.Engine, v engine.Value) {
	for _, b := range v {
		tr.Math(solver.SolutionLaTeX(eng, b))
	}
}

// Render is the display form of v: "y(x) = ..." for one branch and a cases
// block for several. An empty v renders as "".
func Render(eng engine.Engine, v engine.Value) string {
	switch len(v) {
	case 0:
		return ""
	case 1:
		return solver.SolutionLaTeX(eng, v[0])
	}
	parts := make([]string, len(v))
	for i, b := range v {
		parts[i] = solver.SolutionLaTeX(eng, b)
	}
	return `\begin{cases} ` + strings.Join(parts, ` \\ `) + ` \end{cases}`
}
