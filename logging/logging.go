// Package logging provides the structured logger shared by the fetch and
// cluster engines.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

// Logger wraps slog.Logger with geocluster-specific fields.
// Field names are kept consistent across engines so runs can be correlated.
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

// NewJSONLogger creates a Logger that writes JSON to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that writes human-readable text to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))
}

// ParseLevel maps "debug", "info", "warn" and "error" to a slog level.
// Unknown names map to info.
func ParseLevel(name string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// OrNoop returns l, or a NoopLogger when l is nil.
func OrNoop(l *Logger) *Logger {
	if l == nil {
		return NoopLogger()
	}
	return l
}

// WithRun adds the run id.
func (l *Logger) WithRun(id uuid.UUID) *Logger {
	return &Logger{Logger: l.Logger.With("run", id.String())}
}

// WithWorker adds a worker id.
func (l *Logger) WithWorker(id int) *Logger {
	return &Logger{Logger: l.Logger.With("worker", id)}
}

// WithK adds the cluster count.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{Logger: l.Logger.With("k", k)}
}

// WithComponent adds a component name ("fetch", "cluster", "pool").
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{Logger: l.Logger.With("component", name)}
}

// LogPage logs the arrival of a page at the coordinator.
func (l *Logger) LogPage(ctx context.Context, worker, offset, records, total int) {
	l.DebugContext(ctx, "page received",
		"worker", worker,
		"offset", offset,
		"records", records,
		"total", total,
	)
}

// LogRetry logs a retried attempt.
func (l *Logger) LogRetry(ctx context.Context, attempt int, delay time.Duration, err error) {
	l.WarnContext(ctx, "retrying request",
		"attempt", attempt,
		"delay", delay,
		"error", err,
	)
}

// LogWorkerError logs a failed worker.
func (l *Logger) LogWorkerError(ctx context.Context, worker int, err error) {
	l.ErrorContext(ctx, "worker failed",
		"worker", worker,
		"error", err,
	)
}

// LogIteration logs one completed clustering iteration.
func (l *Logger) LogIteration(ctx context.Context, iteration int, inertia float64, changed bool, reseeded int) {
	l.DebugContext(ctx, "iteration completed",
		"iteration", iteration,
		"inertia", inertia,
		"changed", changed,
		"reseeded", reseeded,
	)
}

// LogRunFinished logs the end of a run.
func (l *Logger) LogRunFinished(ctx context.Context, state string, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "run finished",
			"state", state,
			"duration", duration,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "run finished",
		"state", state,
		"duration", duration,
	)
}
