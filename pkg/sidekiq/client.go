package sidekiq

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aleph-Alpha/jobtrace/pkg/messaging"
	"github.com/Aleph-Alpha/jobtrace/pkg/tracer"
)

// ClientMiddleware is the extension point the host calls when a job is
// pushed. next performs the push; msg may be modified before it runs.
type ClientMiddleware interface {
	Call(ctx context.Context, msg Message, queue string, next Handler) error
}

// ClientTracerMiddleware opens a producer span around a push and injects its
// context into the message so TracerMiddleware can pick it up on the
// processing side.
type ClientTracerMiddleware struct {
	cfg        Config
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

var _ ClientMiddleware = (*ClientTracerMiddleware)(nil)

// NewClientTracerMiddleware validates cfg and builds the client middleware.
// A nil provider or propagator falls back to the OpenTelemetry globals.
func NewClientTracerMiddleware(cfg Config, tp trace.TracerProvider, propagator propagation.TextMapPropagator) (*ClientTracerMiddleware, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if propagator == nil {
		propagator = otel.GetTextMapPropagator()
	}
	return &ClientTracerMiddleware{
		cfg:        cfg.normalize(),
		tracer:     tp.Tracer(instrumentationName),
		propagator: propagator,
	}, nil
}

// Call injects the producer span into msg and runs next inside it.
func (c *ClientTracerMiddleware) Call(ctx context.Context, msg Message, queue string, next Handler) error {
	attrs := ClientAttributes(msg, queue, c.cfg.PeerService)
	name := SpanName(msg, queue, c.cfg.SpanNaming, messaging.OperationPublish)

	return tracer.InSpan(ctx, c.tracer, name, func(ctx context.Context, _ trace.Span) error {
		c.propagator.Inject(ctx, MessageCarrier(msg))
		return next(ctx)
	},
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attrs.KeyValues()...),
	)
}
