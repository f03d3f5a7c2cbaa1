// Package config holds the service configuration: defaults, YAML file
// loading with ODESOLVE_* environment overrides, and validation.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. ODESOLVE_SERVER_ADDRESS.
const EnvPrefix = "ODESOLVE"

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server" validate:"required"`
	Solver    SolverConfig    `mapstructure:"solver" yaml:"solver" validate:"required"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
}

// ServerConfig configures the HTTP listener and request admission.
type ServerConfig struct {
	Address         string        `mapstructure:"address" yaml:"address" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" validate:"min=1s"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"min=1s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"min=1s"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes" validate:"min=1024"`

	// RateLimit is the sustained request rate per second across all
	// clients. Zero disables rate limiting.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit" validate:"min=0"`
	RateBurst int     `mapstructure:"rate_burst" yaml:"rate_burst" validate:"min=1"`

	// MaxConcurrentSolves bounds pipelines running at once, including the
	// engine goroutines a timed-out request leaves behind.
	MaxConcurrentSolves int64 `mapstructure:"max_concurrent_solves" yaml:"max_concurrent_solves" validate:"min=1,max=1024"`
}

// SolverConfig tunes the orchestrator and the engine.
type SolverConfig struct {
	MaxHints   int           `mapstructure:"max_hints" yaml:"max_hints" validate:"min=1,max=8"`
	CallBudget time.Duration `mapstructure:"call_budget" yaml:"call_budget" validate:"min=100ms"`
}

// LoggingConfig selects level and handler format.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}

// TelemetryConfig controls tracing and metrics.
type TelemetryConfig struct {
	TracingEnabled bool   `mapstructure:"tracing_enabled" yaml:"tracing_enabled"`
	TraceExporter  string `mapstructure:"trace_exporter" yaml:"trace_exporter" validate:"oneof=stdout otlp"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `mapstructure:"otlp_insecure" yaml:"otlp_insecure"`
	ServiceName    string `mapstructure:"service_name" yaml:"service_name" validate:"required"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled" yaml:"metrics_enabled"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:             ":8080",
			ReadTimeout:         15 * time.Second,
			WriteTimeout:        60 * time.Second,
			ShutdownTimeout:     10 * time.Second,
			MaxBodyBytes:        64 << 10,
			RateLimit:           20,
			RateBurst:           40,
			MaxConcurrentSolves: 8,
		},
		Solver: SolverConfig{
			MaxHints:   5,
			CallBudget: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			TracingEnabled: false,
			TraceExporter:  "stdout",
			OTLPEndpoint:   "localhost:4317",
			OTLPInsecure:   true,
			ServiceName:    "odesolve",
			MetricsEnabled: true,
		},
	}
}

// Dump renders cfg as YAML, in the same layout a config file uses.
func Dump(cfg *Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}
