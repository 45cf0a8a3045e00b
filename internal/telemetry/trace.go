package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartCommandSpan opens the root span of one CLI invocation.
func StartCommandSpan(ctx context.Context, cmdName string) (context.Context, trace.Span) {
	return tracer("commands").Start(ctx, "command."+cmdName,
		trace.WithAttributes(
			attribute.String("command", cmdName),
			attribute.String("component", "cli"),
		))
}

// StartRequestSpan opens a client span around one API request.
func StartRequestSpan(ctx context.Context, method, path, requestID string) (context.Context, trace.Span) {
	return tracer("apiclient").Start(ctx, method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.target", path),
			attribute.String("request_id", requestID),
		))
}

// StartNavigationSpan covers one guard-chain evaluation. generation is the
// router's navigation counter, so superseded runs can be told apart.
func StartNavigationSpan(ctx context.Context, route string, generation uint64) (context.Context, trace.Span) {
	return tracer("router").Start(ctx, "navigate."+route,
		trace.WithAttributes(
			attribute.String("route", route),
			attribute.Int64("generation", int64(generation)),
		))
}

func RecordSuccess(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
	span.SetStatus(codes.Ok, "")
}

// RecordError is a no-op for a nil err.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
