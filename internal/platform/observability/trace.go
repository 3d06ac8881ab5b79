package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/VASILIYKAS/seller-apis/internal/platform/runctx"
)

const instrumentationName = "github.com/VASILIYKAS/seller-apis/internal/platform/observability"

var tracer = otel.Tracer(instrumentationName)

// StartSpan opens an internal span tagged with the run and segment found on ctx.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if id := runctx.RunID(ctx); id != "" {
		attrs = append(attrs, attribute.String("marketsync.run_id", id))
	}
	if segment := runctx.Segment(ctx); segment != "" {
		attrs = append(attrs, attribute.String("marketsync.segment", segment))
	}
	return tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal), trace.WithAttributes(attrs...))
}

// EndSpan records err on the span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
