package undeletable

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/seb7887/gofw/undeletable"

func newTracer(provider trace.TracerProvider) trace.Tracer {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return provider.Tracer(instrumentationName)
}

func startSpan(ctx context.Context, tracer trace.Tracer, entity, operation string) (context.Context, trace.Span) {
	return tracer.Start(ctx, entity+"."+operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("undeletable.entity", entity),
			attribute.String("undeletable.operation", operation),
		),
	)
}

func endSpan(span trace.Span, rows int64, err error) {
	span.SetAttributes(attribute.Int64("undeletable.rows", rows))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
