// Package logging configures the structured slog loggers used by the
// service and the CLI.
//
// Components never reach for a global logger. They receive a *slog.Logger
// through their constructor, and request handlers attach a request-scoped
// logger (carrying request_id) to the context with WithContext.
//
// Basic usage:
//
//	logger := logging.New(logging.Config{Level: logging.LevelInfo, Service: "odesolve"})
//	logger.Info("server started", "address", addr)
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// =============================================================================
// Log Levels
// =============================================================================

// Level represents log severity levels, ordered Debug < Info < Warn < Error.
type Level int

const (
	// LevelDebug is for per-attempt detail such as each strategy tried.
	LevelDebug Level = iota

	// LevelInfo is for one line per request outcome and lifecycle events.
	LevelInfo

	// LevelWarn is for degraded but recoverable situations.
	LevelWarn

	// LevelError is for failed operations and recovered faults.
	LevelError
)

// String returns "DEBUG", "INFO", "WARN", "ERROR", or "UNKNOWN".
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// toSlogLevel maps unknown levels to Info.
func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel reads a level name as written in configuration files. Matching
// is case-insensitive and "warning" is accepted for LevelWarn.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// =============================================================================
// Configuration
// =============================================================================

// Config configures New. The zero value writes Info and above to stderr in
// text format.
type Config struct {
	// Level sets the minimum level written.
	Level Level

	// Service, when set, is attached to every entry as the "service" attribute.
	Service string

	// JSON switches from the human-readable text handler to JSON lines.
	JSON bool

	// Quiet discards all output. Used by the CLI's one-shot commands, where
	// stdout carries the result.
	Quiet bool

	// Output overrides the destination. Default: os.Stderr.
	Output io.Writer
}

// =============================================================================
// Construction
// =============================================================================

// New builds a logger from cfg.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Quiet {
		out = io.Discard
	}

	opts := &slog.HandlerOptions{Level: cfg.Level.toSlogLevel()}
	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	if cfg.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", cfg.Service)})
	}
	return slog.New(handler)
}

// Discard returns a logger that drops everything. Handy as a default in
// constructors and tests.
func Discard() *slog.Logger {
	return New(Config{Quiet: true})
}

// =============================================================================
// Context propagation
// =============================================================================

type ctxKey struct{}

// WithContext returns a copy of ctx carrying logger.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored by WithContext, or fallback when
// there is none. A nil fallback yields slog.Default().
func FromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
