package artlens

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with artlens-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewJSONLoggerTo(os.Stderr, level)
}

// NewJSONLoggerTo is NewJSONLogger writing to w.
func NewJSONLoggerTo(w io.Writer, level slog.Level) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewTextLoggerTo(os.Stderr, level)
}

// NewTextLoggerTo is NewTextLogger writing to w.
func NewTextLoggerTo(w io.Writer, level slog.Level) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.Level(1000), // Unreachable level
		})),
	}
}

// WithRunID adds the run id of a build.
func (l *Logger) WithRunID(runID string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run_id", runID),
	}
}

// WithK adds a k (cluster count) field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("k", k),
	}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogBuild logs a clustering run.
func (l *Logger) LogBuild(ctx context.Context, records, k int, status string, iterations int, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"records", records,
			"k", k,
			"error", err,
		)
		return
	}
	level := slog.LevelInfo
	if status != "converged" {
		level = slog.LevelWarn
	}
	l.Log(ctx, level, "build completed",
		"records", records,
		"k", k,
		"status", status,
		"iterations", iterations,
		"duration", d,
	)
}

// LogInterpret logs the interpretation of all clusters.
func (l *Logger) LogInterpret(ctx context.Context, clusters int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "interpret failed",
			"clusters", clusters,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "interpret completed",
			"clusters", clusters,
		)
	}
}

// LogAssign logs a nearest-cluster assignment.
func (l *Logger) LogAssign(ctx context.Context, topK, clusterID int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "assign failed",
			"top_k", topK,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "assign completed",
			"top_k", topK,
			"cluster", clusterID,
		)
	}
}

// LogCaption logs caption generation for a subject.
func (l *Logger) LogCaption(ctx context.Context, subjectID string, clusterID int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "caption failed",
			"subject", subjectID,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "caption completed",
			"subject", subjectID,
			"cluster", clusterID,
		)
	}
}

// LogSnapshot logs a snapshot save or load.
func (l *Logger) LogSnapshot(ctx context.Context, op, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"op", op,
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot "+op,
			"name", name,
		)
	}
}
