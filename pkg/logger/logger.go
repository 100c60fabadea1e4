package logger

import (
	"context"
	"log/slog"
	"os"
)

type contextKey struct{}

func Setup(level string, format string) {
	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// WithMagicNumber tags the context so per-number log lines can be correlated
// across the walker, engine and sinks.
func WithMagicNumber(ctx context.Context, magic uint64) context.Context {
	return context.WithValue(ctx, contextKey{}, magic)
}

func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if magic, ok := ctx.Value(contextKey{}).(uint64); ok {
		logger = logger.With("magic_number", magic)
	}
	return logger
}

func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
