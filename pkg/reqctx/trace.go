package reqctx

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// TraceIDFromContext returns the active OpenTelemetry trace ID, or "" when the
// request is not being traced.
func TraceIDFromContext(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// SpanIDFromContext returns the active span ID, or "".
func SpanIDFromContext(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasSpanID() {
		return ""
	}
	return sc.SpanID().String()
}
