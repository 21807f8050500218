// Package logger configures the process-wide slog logger and carries
// request-scoped attributes through a context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey struct{}

type attrs struct {
	requestID string
	tenant    string
}

// Setup installs the default logger writing to stdout.
func Setup(level string, format string) {
	slog.SetDefault(New(os.Stdout, level, format))
}

// New builds a logger writing JSON (format "json") or text to w.
func New(w io.Writer, level string, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	a := fromCtx(ctx)
	a.requestID = requestID
	return context.WithValue(ctx, contextKey{}, a)
}

func WithTenant(ctx context.Context, tenant string) context.Context {
	a := fromCtx(ctx)
	a.tenant = tenant
	return context.WithValue(ctx, contextKey{}, a)
}

// RequestID returns the request id stored in ctx, or "".
func RequestID(ctx context.Context) string {
	return fromCtx(ctx).requestID
}

// FromContext returns the default logger annotated with whatever request id
// and tenant ctx carries.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	a := fromCtx(ctx)
	if a.requestID != "" {
		logger = logger.With("request_id", a.requestID)
	}
	if a.tenant != "" {
		logger = logger.With("tenant", a.tenant)
	}
	return logger
}

func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

func fromCtx(ctx context.Context) attrs {
	if a, ok := ctx.Value(contextKey{}).(attrs); ok {
		return a
	}
	return attrs{}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
