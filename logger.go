package lazyvec

import (
	"context"
	"log/slog"
	"os"

	"github.com/hupe1980/lazyvec/model"
)

// Logger wraps slog.Logger with lazyvec-specific helpers.
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
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithVersion adds a version field to the logger.
func (l *Logger) WithVersion(version model.Hash) *Logger {
	return &Logger{
		Logger: l.Logger.With("version", version),
	}
}

// LogPersist logs a persist of a root value.
func (l *Logger) LogPersist(ctx context.Context, kind string, idx model.FileIndex, err error) {
	if err != nil {
		l.ErrorContext(ctx, "persist failed",
			"kind", kind,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "persist completed",
			"kind", kind,
			"offset", idx.Offset,
			"version", idx.Version,
		)
	}
}

// LogLoad logs a load of a persisted value.
func (l *Logger) LogLoad(ctx context.Context, kind string, idx model.FileIndex, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"kind", kind,
			"index", idx.String(),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "load completed",
			"kind", kind,
			"offset", idx.Offset,
			"version", idx.Version,
		)
	}
}

// LogArchive logs an archive run.
func (l *Logger) LogArchive(ctx context.Context, versions int, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "archive failed",
			"versions", versions,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "archive completed",
			"versions", versions,
			"bytes", bytes,
		)
	}
}

// LogRestore logs the restore of one version file.
func (l *Logger) LogRestore(ctx context.Context, version model.Hash, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "restore failed",
			"version", version,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "restore completed",
			"version", version,
			"bytes", bytes,
		)
	}
}

// LogCommit logs a root catalog update.
func (l *Logger) LogCommit(ctx context.Context, name string, idx model.FileIndex, err error) {
	if err != nil {
		l.WarnContext(ctx, "commit rejected",
			"root", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "commit completed",
			"root", name,
			"offset", idx.Offset,
			"version", idx.Version,
		)
	}
}
