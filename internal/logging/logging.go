// Package logging provides structured logging for the spark framework.
//
// This package wraps the standard library's log/slog package to provide
// consistent logging across all components. It supports both text and JSON
// output formats, configurable log levels, component-based loggers and a
// critical level used for fatal setup conditions.
//
// Usage:
//
//	// Initialize at startup
//	logging.Init(slog.LevelInfo, false) // Text format
//	logging.Init(slog.LevelDebug, true) // JSON format for batch jobs
//
//	// Get a component logger
//	log := logging.Component("tasks")
//	log.Info("queue built", "phases", 4)
//
//	// Fatal setup problems
//	logging.Critical("container not registered", "name", "ExampleCalPar")
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// LevelCritical is above slog.LevelError and marks conditions that abort a run.
const LevelCritical = slog.LevelError + 4

// Logger is the global logger instance.
var Logger *slog.Logger

// Init initializes the global logger with the specified level and format.
// If jsonFormat is true, logs are output as JSON; otherwise, human-readable text.
func Init(level slog.Level, jsonFormat bool) {
	InitTo(os.Stdout, level, jsonFormat)
}

// InitTo is Init with output to w.
func InitTo(w io.Writer, level slog.Level, jsonFormat bool) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:       level,
		AddSource:   level == slog.LevelDebug,
		ReplaceAttr: replaceLevel,
	}

	if jsonFormat {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	InitWithHandler(handler)
}

// InitWithHandler initializes the global logger with a custom handler.
// This is useful for testing or custom output destinations.
func InitWithHandler(handler slog.Handler) {
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// ParseLevel maps a config string to a slog level. Unknown values map to info.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "critical":
		return LevelCritical
	default:
		return slog.LevelInfo
	}
}

func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl >= LevelCritical {
		a.Value = slog.StringValue("CRITICAL")
	}
	return a
}

// With returns a new logger with additional attributes.
// These attributes are included in every log entry from the returned logger.
func With(args ...any) *slog.Logger {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	return Logger.With(args...)
}

// Component returns a logger for a specific component.
// The component name is added as an attribute to all log entries.
//
// Example:
//
//	log := logging.Component("model")
//	log.Info("category built") // Output: time=... level=INFO component=model msg="category built"
func Component(name string) *slog.Logger {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	return Logger.With("component", name)
}

// WithContext returns a logger that includes context values.
// The run id and event number are attached when present.
func WithContext(ctx context.Context) *slog.Logger {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}

	logger := Logger

	if runID, ok := ctx.Value(contextKeyRunID).(uint64); ok {
		logger = logger.With("run_id", runID)
	}
	if event, ok := ctx.Value(contextKeyEvent).(uint64); ok {
		logger = logger.With("event", event)
	}

	return logger
}

// Context key types for type-safe context value extraction.
type contextKey int

const (
	contextKeyRunID contextKey = iota
	contextKeyEvent
)

// ContextWithRunID adds a run id to the context for logging.
func ContextWithRunID(ctx context.Context, runID uint64) context.Context {
	return context.WithValue(ctx, contextKeyRunID, runID)
}

// ContextWithEvent adds the current event number to the context for logging.
func ContextWithEvent(ctx context.Context, event uint64) context.Context {
	return context.WithValue(ctx, contextKeyEvent, event)
}

// EventFromContext returns the event number added by ContextWithEvent.
func EventFromContext(ctx context.Context) (uint64, bool) {
	event, ok := ctx.Value(contextKeyEvent).(uint64)
	return event, ok
}

// =============================================================================
// Convenience Functions
// =============================================================================

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	Logger.Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	Logger.Info(msg, args...)
}

// Warn logs at warning level.
func Warn(msg string, args ...any) {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	Logger.Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	Logger.Error(msg, args...)
}

// Critical logs at critical level. It does not terminate the process.
func Critical(msg string, args ...any) {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	Logger.Log(context.Background(), LevelCritical, msg, args...)
}
