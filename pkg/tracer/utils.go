package tracer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	traceSpan "go.opentelemetry.io/otel/trace"

	"github.com/Aleph-Alpha/jobtrace/pkg/messaging"
)

// StatusPrefix starts the status description of a span whose work failed.
const StatusPrefix = "Unhandled exception of type: "

// Tracer returns a named tracer from the provider. An empty name means the
// module's instrumentation scope.
func (t *Tracer) Tracer(name string) traceSpan.Tracer {
	if name == "" {
		name = instrumentationName
	}
	return t.tracer.Tracer(name)
}

// StartSpan starts a span as a child of whatever span ctx carries.
//
// Example:
//
//	ctx, span := t.StartSpan(ctx, "mailer process")
//	defer span.End()
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...traceSpan.SpanStartOption) (context.Context, traceSpan.Span) {
	return t.Tracer("").Start(ctx, name, opts...)
}

// RecordErrorOnSpan records err and marks the span failed with err's type.
func (t *Tracer) RecordErrorOnSpan(span traceSpan.Span, err error) {
	RecordFailure(span, err)
}

// SetAttributes copies an attribute set onto a span.
func (t *Tracer) SetAttributes(span traceSpan.Span, attrs messaging.Attributes) {
	if len(attrs) == 0 {
		return
	}
	span.SetAttributes(attrs.KeyValues()...)
}

// GetCarrier injects the trace context of ctx into a fresh map, ready to be
// stored in a job message or transport headers.
func (t *Tracer) GetCarrier(ctx context.Context) map[string]string {
	carrier := propagation.MapCarrier{}
	t.propagator.Inject(ctx, carrier)
	return carrier
}

// SetCarrierOnContext extracts trace context from carrier into ctx.
func (t *Tracer) SetCarrierOnContext(ctx context.Context, carrier map[string]string) context.Context {
	return t.propagator.Extract(ctx, propagation.MapCarrier(carrier))
}

// RecordFailure annotates span with a failure: an exception event carrying
// the failure's type and message, and an error status naming the type.
// failure is either an error or a recovered panic value.
func RecordFailure(span traceSpan.Span, failure any) {
	typeName := fmt.Sprintf("%T", failure)
	if err, ok := failure.(error); ok {
		span.RecordError(err)
	} else {
		span.AddEvent("exception", traceSpan.WithAttributes(
			attribute.String("exception.type", typeName),
			attribute.String("exception.message", fmt.Sprint(failure)),
		))
	}
	span.SetStatus(codes.Error, StatusPrefix+typeName)
}

// InSpan runs fn inside a new span started from ctx and ends the span on
// every exit path. An error returned by fn is recorded and returned as is;
// a panic is recorded and re-raised with the same value.
func InSpan(ctx context.Context, tr traceSpan.Tracer, name string, fn func(context.Context, traceSpan.Span) error, opts ...traceSpan.SpanStartOption) (err error) {
	ctx, span := tr.Start(ctx, name, opts...)
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			RecordFailure(span, r)
			panic(r)
		}
	}()

	if err = fn(ctx, span); err != nil {
		RecordFailure(span, err)
	}
	return err
}
