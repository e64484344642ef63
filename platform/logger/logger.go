// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RunIDKey is the context key for the pipeline run ID
	RunIDKey contextKey = "run_id"
	// SubjectKey is the context key for the monitored subject
	SubjectKey contextKey = "subject"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports run_id and subject from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if runID, ok := ctx.Value(RunIDKey).(string); ok && runID != "" {
		newLogger = newLogger.WithRunID(runID)
	}

	if subject, ok := ctx.Value(SubjectKey).(string); ok && subject != "" {
		newLogger = &Logger{
			Logger: newLogger.With(slog.String("subject", subject)),
		}
	}

	return newLogger
}

// WithRunID returns a logger with the pipeline run ID attached.
func (l *Logger) WithRunID(runID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("run_id", runID)),
	}
}

// WithStage returns a logger with the pipeline stage attached.
func (l *Logger) WithStage(stage string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("stage", stage)),
	}
}

// StageSummary logs the final counts of a stage invocation.
func (l *Logger) StageSummary(stage string, processed, skipped, failed int) {
	l.Info("stage_summary",
		slog.String("stage", stage),
		slog.Int("processed", processed),
		slog.Int("skipped", skipped),
		slog.Int("failed", failed),
	)
}

// RecordProgress logs one processed record.
func (l *Logger) RecordProgress(stage, title string, attrs ...any) {
	args := append([]any{slog.String("stage", stage), slog.String("title", title)}, attrs...)
	l.Info("record_done", args...)
}

// RecordDropped logs a record dropped for this run. It stays unprocessed and
// is reselected on the next invocation.
func (l *Logger) RecordDropped(stage, title string, err error) {
	l.Warn("record_dropped",
		slog.String("stage", stage),
		slog.String("title", title),
		slog.String("error", err.Error()),
	)
}

// SourceSkipped logs an item source that failed and was skipped.
func (l *Logger) SourceSkipped(source string, err error) {
	l.Warn("source_skipped",
		slog.String("source", source),
		slog.String("error", err.Error()),
	)
}

// StoreError logs store errors
func (l *Logger) StoreError(operation string, err error) {
	l.Error("store_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}
