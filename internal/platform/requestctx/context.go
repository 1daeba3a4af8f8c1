package requestctx

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

const (
	loggerContextKey  contextKey = "github.com/webcitydotdev/woodwork-site-example/internal/platform/requestctx/logger"
	traceContextKey   contextKey = "github.com/webcitydotdev/woodwork-site-example/internal/platform/requestctx/trace"
	previewContextKey contextKey = "github.com/webcitydotdev/woodwork-site-example/internal/platform/requestctx/preview"
	editingContextKey contextKey = "github.com/webcitydotdev/woodwork-site-example/internal/platform/requestctx/editing"
)

var noopLogger = zap.NewNop()

// TraceInfo captures trace metadata propagated through request context.
type TraceInfo struct {
	TraceID   string
	SpanID    string
	Sampled   bool
	ProjectID string
}

// WithLogger stores the logger in context for downstream consumers.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = noopLogger
	}
	return context.WithValue(ctx, loggerContextKey, logger)
}

// Logger retrieves the zap logger from context or returns a no-op logger.
func Logger(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return noopLogger
	}
	if logger, ok := ctx.Value(loggerContextKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return noopLogger
}

// NoopLogger exposes the shared noop logger instance used across the package.
func NoopLogger() *zap.Logger { return noopLogger }

// WithTrace stores the trace metadata on the context for downstream usage.
func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, traceContextKey, info)
}

// Trace retrieves the trace metadata from context when available.
func Trace(ctx context.Context) (TraceInfo, bool) {
	if ctx == nil {
		return TraceInfo{}, false
	}
	info, ok := ctx.Value(traceContextKey).(TraceInfo)
	return info, ok
}

// TraceID extracts the trace identifier from context when present.
func TraceID(ctx context.Context) string {
	info, _ := Trace(ctx)
	return info.TraceID
}

// WithPreview marks the request as coming from the visual editor.
func WithPreview(ctx context.Context, preview bool) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, previewContextKey, preview)
}

// IsPreview reports whether the request is an editor preview.
func IsPreview(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(previewContextKey).(bool)
	return v
}

// WithEditing marks the request as loaded inside the editor frame.
func WithEditing(ctx context.Context, editing bool) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, editingContextKey, editing)
}

// IsEditing reports whether the editor frame requested the page.
func IsEditing(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(editingContextKey).(bool)
	return v
}
