// Package log defines the public logging interface used across playmetrics packages.
package log

import (
	"context"
	"log/slog"
)

// Logger is the logging interface injected into collector components. It
// keeps the core independent of a concrete logging backend while following
// the slog level model.
type Logger interface {
	// Debugf logs a formatted message at the DEBUG level.
	Debugf(format string, args ...interface{})
	// Infof logs a formatted message at the INFO level.
	Infof(format string, args ...interface{})
	// Warnf logs a formatted message at the WARN level.
	Warnf(format string, args ...interface{})
	// Errorf logs a formatted message at the ERROR level. Implementations
	// should check whether the last argument is an error and log it
	// structurally.
	Errorf(format string, args ...interface{})

	// Log logs a message at the given slog.Level with key-value attributes.
	Log(level slog.Level, msg string, args ...interface{})
	// LogCtx is like Log but may extract context information such as trace
	// ids if the implementation supports it.
	LogCtx(ctx context.Context, level slog.Level, msg string, args ...interface{})

	// With returns a new Logger carrying the given attributes on every
	// subsequent entry.
	With(args ...interface{}) Logger
	// IsEnabled reports whether the logger emits entries at the given level.
	IsEnabled(level slog.Level) bool
}
