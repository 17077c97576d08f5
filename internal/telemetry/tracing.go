package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name used for every span.
const TracerName = "github.com/lalilo-dev/lalilo"

// Tracer returns the tracer from the global provider. Without a
// configured provider the spans are no-ops.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartBuild starts a span around one serialized build task.
func StartBuild(ctx context.Context, queue, category, source string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "lalilo.build "+category,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("lalilo.queue", queue),
			attribute.String("lalilo.category", category),
			attribute.String("lalilo.source", source),
		),
	)
}

// StartRequest starts a span around one resolved dev server request.
func StartRequest(ctx context.Context, path string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "lalilo.request",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("lalilo.path", path)),
	)
}

// End records the outcome on span and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
