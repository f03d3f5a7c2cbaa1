package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/odesolve/internal/config"
	"github.com/njchilds90/odesolve/internal/engine"
	"github.com/njchilds90/odesolve/internal/observability"
	"github.com/njchilds90/odesolve/internal/pipeline"
	"github.com/njchilds90/odesolve/symbolic"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSolve_PlainTrace(t *testing.T) {
	out, err := run(t, "solve", "y' = y")
	require.NoError(t, err)

	assert.Contains(t, out, "**Step 1: Equation entered**")
	assert.Contains(t, out, "The differential equation was solved successfully.")
	assert.Contains(t, out, "\ny(x) = ")
	assert.NotContains(t, lastLine(out), `\left`)
	assert.NotContains(t, out, "\x1b[", "a buffer is not a terminal")
}

func TestSolve_PlainTraceOneLinePerBranch(t *testing.T) {
	out, err := run(t, "solve", "y*y' = x", "--method", "separable")
	require.NoError(t, err)

	tail := out[strings.LastIndex(out, "\n\n")+2:]
	lines := strings.Split(strings.TrimRight(tail, "\n"), "\n")
	require.Len(t, lines, 2, out)
	for _, l := range lines {
		assert.True(t, strings.HasPrefix(l, "y(x) = "), l)
	}
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	return s[strings.LastIndex(s, "\n")+1:]
}

func TestSolve_JSON(t *testing.T) {
	out, err := run(t, "solve", "y' = y", "--ic", "y(0)=1", "--json")
	require.NoError(t, err)

	var got solveOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.Success)
	assert.Equal(t, "solved", got.Outcome)
	require.NotNil(t, got.Solution)
	require.NotNil(t, got.ParticularSolution)
	assert.Equal(t, *got.ParticularSolution, *got.Solution)
	assert.NotEmpty(t, got.Steps)
}

func TestSolve_NamedMethod(t *testing.T) {
	out, err := run(t, "solve", "y' + y = x", "--method", "linear", "--json")
	require.NoError(t, err)

	var got solveOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "linear", got.Strategy)
}

func TestSolve_UnparseableExitsNonZero(t *testing.T) {
	out, err := run(t, "solve", "y = )(", "--json")
	require.ErrorIs(t, err, errNotSolved)

	// The JSON document comes first; cobra appends the error line.
	var got solveOutput
	require.NoError(t, json.NewDecoder(strings.NewReader(out)).Decode(&got))
	assert.False(t, got.Success)
	assert.Equal(t, "invalid", got.Outcome)
	assert.Nil(t, got.Solution)
}

func TestSolve_RequiresEquation(t *testing.T) {
	_, err := run(t, "solve")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	out, err := run(t, "normalize", "dy/dx = 2x")
	require.NoError(t, err)
	assert.Equal(t, "@@D1@@ = 2*x\n", out)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "odesolve dev\n", out)
}

func TestConfig_Defaults(t *testing.T) {
	out, err := run(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "max_hints: 5")
	assert.Contains(t, out, "service_name: odesolve")
}

func TestConfig_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odesolve.yaml")
	require.NoError(t, os.WriteFile(path, []byte("solver:\n  max_hints: 3\n"), 0o600))

	out, err := run(t, "--config", path, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "max_hints: 3")
}

func TestConfig_InvalidFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odesolve.yaml")
	require.NoError(t, os.WriteFile(path, []byte("solver:\n  max_hints: 99\n"), 0o600))

	_, err := run(t, "--config", path, "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}

func TestTelemetryConfig(t *testing.T) {
	tel := config.DefaultConfig().Telemetry

	obs := telemetryConfig(tel)
	assert.Equal(t, observability.ExporterNone, obs.TraceExporter)
	assert.Equal(t, observability.ExporterPrometheus, obs.MetricExporter)
	assert.Equal(t, "odesolve", obs.ServiceName)

	tel.TracingEnabled = true
	tel.TraceExporter = "otlp"
	tel.MetricsEnabled = false
	obs = telemetryConfig(tel)
	assert.Equal(t, observability.ExporterOTLP, obs.TraceExporter)
	assert.Equal(t, observability.ExporterNone, obs.MetricExporter)
}

func TestPrinter_StylesOnlyOnTerminal(t *testing.T) {
	branch := symbolic.MulOf(symbolic.S("C1"), symbolic.ExpOf(symbolic.S("x")))
	res := pipeline.Result{
		Succeeded: true,
		General:   engine.Value{branch},
		Display:   `y{\left(x \right)} = C_{1} e^{x}`,
		Steps:     []string{"**Step 6: Final summary**", "❌ nope"},
	}

	var buf bytes.Buffer
	p := newPrinter(&buf)
	assert.False(t, p.color)
	require.NoError(t, p.result(res))
	assert.Equal(t, "**Step 6: Final summary**\n❌ nope\n\ny(x) = "+branch.String()+"\n", buf.String())

	p.color = true
	assert.Equal(t, "Step 6: Final summary", stripANSI(p.line("**Step 6: Final summary**")))
}

func TestPlainSolution_PrefersParticularAndSplitsBranches(t *testing.T) {
	x := symbolic.S("x")
	res := pipeline.Result{
		General:    engine.Value{symbolic.AddOf(x, symbolic.S("C1")), symbolic.Subtract(symbolic.S("C1"), x)},
		Particular: engine.Value{symbolic.AddOf(x, symbolic.N(2))},
	}
	assert.Equal(t, []string{"y(x) = " + res.Particular[0].String()}, plainSolution(res))

	res.Particular = nil
	lines := plainSolution(res)
	require.Len(t, lines, 2)
	for _, l := range lines {
		assert.True(t, strings.HasPrefix(l, "y(x) = "), l)
		assert.NotContains(t, l, `\left`)
	}
}

func stripANSI(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			inEscape = false
		case !inEscape:
			b.WriteRune(r)
		}
	}
	return b.String()
}
