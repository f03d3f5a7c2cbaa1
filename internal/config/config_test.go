package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "odesolve.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	assert.NoError(t, NewValidator().Validate(DefaultConfig()))
}

func TestLoadWithDefaults_NoFile(t *testing.T) {
	loader := NewConfigLoader(nil)

	cfg, err := loader.LoadWithDefaults("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = loader.LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  address: "127.0.0.1:9000"
  read_timeout: 5s
  max_concurrent_solves: 2
solver:
  max_hints: 3
  call_budget: 2s
logging:
  level: debug
  format: json
`)
	cfg, err := NewConfigLoader(NewValidator()).Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Address)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, int64(2), cfg.Server.MaxConcurrentSolves)
	assert.Equal(t, 3, cfg.Solver.MaxHints)
	assert.Equal(t, 2*time.Second, cfg.Solver.CallBudget)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// untouched keys keep their defaults
	assert.Equal(t, DefaultConfig().Server.WriteTimeout, cfg.Server.WriteTimeout)
	assert.Equal(t, "odesolve", cfg.Telemetry.ServiceName)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("ODESOLVE_SOLVER_MAX_HINTS", "2")
	t.Setenv("ODESOLVE_SERVER_RATE_LIMIT", "0")
	path := writeConfig(t, "solver:\n  max_hints: 4\n")

	cfg, err := NewConfigLoader(nil).Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Solver.MaxHints)
	assert.Zero(t, cfg.Server.RateLimit)
}

func TestLoad_Interpolation(t *testing.T) {
	t.Setenv("ODESOLVE_TEST_HOST", "10.1.2.3")
	path := writeConfig(t, `
server:
  address: "${ODESOLVE_TEST_HOST}:8081"
telemetry:
  service_name: "${ODESOLVE_TEST_UNSET}"
`)
	cfg, err := NewConfigLoader(nil).Load(path)
	require.NoError(t, err)
	assert.Equal(t, "10.1.2.3:8081", cfg.Server.Address)
	assert.Equal(t, "${ODESOLVE_TEST_UNSET}", cfg.Telemetry.ServiceName)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := NewConfigLoader(nil).Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoad_InvalidValuesAreReported(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: loud
solver:
  max_hints: 0
server:
  read_timeout: 0s
`)
	_, err := NewConfigLoader(nil).Load(path)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "configuration validation failed:")
	assert.Contains(t, msg, "logging.level must be one of [debug info warn warning error] (got: loud)")
	assert.Contains(t, msg, "solver.max_hints must be at least 1 (got: 0)")
	assert.Contains(t, msg, "server.read_timeout must be at least 1s")
}

func TestValidate_CrossFieldRules(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Telemetry.TracingEnabled = true
	cfg.Telemetry.TraceExporter = "otlp"
	cfg.Telemetry.OTLPEndpoint = " "
	err := NewValidator().Validate(cfg)
	assert.ErrorContains(t, err, "telemetry.otlp_endpoint is required")

	assert.ErrorContains(t, NewValidator().Validate(nil), "configuration is nil")
}

func TestDump_RoundTrips(t *testing.T) {
	want := DefaultConfig()
	want.Solver.MaxHints = 4
	want.Server.ShutdownTimeout = 3 * time.Second

	out, err := Dump(want)
	require.NoError(t, err)
	assert.Contains(t, string(out), "shutdown_timeout: 3s")

	got, err := NewConfigLoader(nil).Load(writeConfig(t, string(out)))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFormatFieldPath(t *testing.T) {
	assert.Equal(t, "server.rate_burst", formatFieldPath("Config.server.rate_burst"))
	assert.Equal(t, "solver.max_hints", formatFieldPath("Config.Solver.MaxHints"))
	assert.Equal(t, "Config", formatFieldPath("Config"))
}
