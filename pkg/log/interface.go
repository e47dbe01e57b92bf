// Package log provides the structured logging interface used by the SVM
// estimators and solver.
//
// The interface is slog-shaped (message plus alternating key/value pairs) and
// backed by zerolog. Estimators log through a Logger obtained from GetLogger or
// GetLoggerWithName, or one injected with an option.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("svm").With(
//	    log.ModelNameKey, "SVR",
//	    log.EstimatorIDKey, id,
//	)
//	logger.Info("Training completed",
//	    log.SVMNSupportKey, 12,
//	    log.SVMRhoKey, 0.31,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key/value pairs. A leading error value passed to
// Error is recorded under ErrAttrKey together with its stack trace.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	// Use it to skip building expensive per-iteration fields.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
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

// LoggerProvider defines an interface for creating and configuring loggers.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
