package logger

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// Field is a single structured key/value attached to a log record.
type Field struct {
	Key   string
	Value any
}

// Logger is the structured logger consumed by services and repositories.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
}

// AppLogger writes to stdout and, through the otelslog bridge, to the
// globally registered OpenTelemetry log provider.
type AppLogger struct {
	slog *slog.Logger
}

const instrumentationName = "skillswap"

// NewLogger builds the application logger. Production emits JSON; every
// other environment emits human readable text at debug level.
func NewLogger(appEnv string) *AppLogger {
	var stdout slog.Handler
	if appEnv == "production" {
		stdout = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		stdout = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}

	otel := otelslog.NewHandler(instrumentationName)

	return &AppLogger{
		slog: slog.New(fanout{handlers: []slog.Handler{stdout, otel}}),
	}
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() *AppLogger {
	return &AppLogger{slog: slog.New(fanout{})}
}

func (l *AppLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.slog.LogAttrs(ctx, slog.LevelDebug, msg, toAttrs(fields)...)
}

func (l *AppLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.slog.LogAttrs(ctx, slog.LevelInfo, msg, toAttrs(fields)...)
}

func (l *AppLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.slog.LogAttrs(ctx, slog.LevelWarn, msg, toAttrs(fields)...)
}

func (l *AppLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.slog.LogAttrs(ctx, slog.LevelError, msg, toAttrs(fields)...)
}

func toAttrs(fields []Field) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			attrs = append(attrs, slog.String(f.Key, err.Error()))
			continue
		}
		attrs = append(attrs, slog.Any(f.Key, f.Value))
	}
	return attrs
}
