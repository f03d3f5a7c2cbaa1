package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// ConfigLoader handles loading configuration from files.
type ConfigLoader interface {
	Load(path string) (*Config, error)
	LoadWithDefaults(path string) (*Config, error)
}

// viperConfigLoader implements ConfigLoader using Viper.
type viperConfigLoader struct {
	validator ConfigValidator
}

// NewConfigLoader creates a new ConfigLoader instance.
func NewConfigLoader(validator ConfigValidator) ConfigLoader {
	if validator == nil {
		validator = NewValidator()
	}
	return &viperConfigLoader{validator: validator}
}

// Load reads the YAML file at path over the defaults, then applies
// ODESOLVE_* environment overrides and ${VAR} interpolation. The file must
// exist.
func (l *viperConfigLoader) Load(path string) (*Config, error) {
	v := l.newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return l.finish(v)
}

// LoadWithDefaults is Load, except that an empty path or a missing file
// yields the defaults with environment overrides applied.
func (l *viperConfigLoader) LoadWithDefaults(path string) (*Config, error) {
	if path == "" {
		return l.finish(l.newViper())
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return l.finish(l.newViper())
	}
	return l.Load(path)
}

func (l *viperConfigLoader) newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())
	return v
}

func (l *viperConfigLoader) finish(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyInterpolation(&cfg)

	if err := l.validator.Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so that AutomaticEnv can override keys
// the file does not mention.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.max_body_bytes", d.Server.MaxBodyBytes)
	v.SetDefault("server.rate_limit", d.Server.RateLimit)
	v.SetDefault("server.rate_burst", d.Server.RateBurst)
	v.SetDefault("server.max_concurrent_solves", d.Server.MaxConcurrentSolves)

	v.SetDefault("solver.max_hints", d.Solver.MaxHints)
	v.SetDefault("solver.call_budget", d.Solver.CallBudget)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("telemetry.tracing_enabled", d.Telemetry.TracingEnabled)
	v.SetDefault("telemetry.trace_exporter", d.Telemetry.TraceExporter)
	v.SetDefault("telemetry.otlp_endpoint", d.Telemetry.OTLPEndpoint)
	v.SetDefault("telemetry.otlp_insecure", d.Telemetry.OTLPInsecure)
	v.SetDefault("telemetry.service_name", d.Telemetry.ServiceName)
	v.SetDefault("telemetry.metrics_enabled", d.Telemetry.MetricsEnabled)
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolateString replaces ${VAR_NAME} with environment variable values.
// Unset variables are left as written.
func interpolateString(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val := os.Getenv(name); val != "" {
			return val
		}
		return match
	})
}

// applyInterpolation expands ${VAR} in the free-form string fields.
func applyInterpolation(cfg *Config) {
	cfg.Server.Address = interpolateString(cfg.Server.Address)
	cfg.Logging.Level = interpolateString(cfg.Logging.Level)
	cfg.Logging.Format = interpolateString(cfg.Logging.Format)
	cfg.Telemetry.OTLPEndpoint = interpolateString(cfg.Telemetry.OTLPEndpoint)
	cfg.Telemetry.ServiceName = interpolateString(cfg.Telemetry.ServiceName)
}
