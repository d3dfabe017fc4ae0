package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

type contextKey string

// ContextWithRequestID stores a request id that WithContext picks up.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey(FieldRequestID), id)
}

// ContextWithStreamID stores a stream id that WithContext picks up.
func ContextWithStreamID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey(FieldStreamID), id)
}

// WithContext returns a logger carrying the request and stream ids stored
// in ctx, and the trace and span ids of its active span.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	zc := l.logger.With()
	for _, key := range []string{FieldRequestID, FieldStreamID} {
		if v, ok := ctx.Value(contextKey(key)).(string); ok && v != "" {
			zc = zc.Str(key, v)
		}
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		zc = zc.Str(FieldTraceID, sc.TraceID().String()).Str(FieldSpanID, sc.SpanID().String())
	}
	return l.derive(zc)
}
