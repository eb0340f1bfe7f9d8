package sidekiq

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aleph-Alpha/jobtrace/pkg/messaging"
	"github.com/Aleph-Alpha/jobtrace/pkg/observability"
	"github.com/Aleph-Alpha/jobtrace/pkg/tracer"
)

const instrumentationName = "github.com/Aleph-Alpha/jobtrace/pkg/sidekiq"

// Handler runs one job. It is the unit of work a middleware wraps.
type Handler func(ctx context.Context) error

// ServerMiddleware is the extension point the host's processor calls around
// every job execution attempt. Implementations must call next exactly once
// and return its error unless they deliberately swallow it.
type ServerMiddleware interface {
	Call(ctx context.Context, msg Message, queue string, next Handler) error
}

// ServerMiddlewareFunc adapts a function to ServerMiddleware.
type ServerMiddlewareFunc func(ctx context.Context, msg Message, queue string, next Handler) error

func (f ServerMiddlewareFunc) Call(ctx context.Context, msg Message, queue string, next Handler) error {
	return f(ctx, msg, queue, next)
}

// Option configures the middlewares.
type Option func(*options)

type options struct {
	observer observability.Observer
	now      func() time.Time
}

// WithObserver reports every processed job to o.
func WithObserver(o observability.Observer) Option {
	return func(opts *options) { opts.observer = o }
}

// WithClock replaces time.Now for latency computation.
func WithClock(now func() time.Time) Option {
	return func(opts *options) { opts.now = now }
}

// TracerMiddleware wraps each job execution in a consumer span carrying
// messaging, retry and latency attributes, linked to or parented on the
// trace context that travelled with the message.
//
// It holds no per-job state and is safe for concurrent use by any number of
// worker goroutines.
type TracerMiddleware struct {
	cfg        Config
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	logger     Logger
	observer   observability.Observer
	now        func() time.Time
}

var _ ServerMiddleware = (*TracerMiddleware)(nil)

// NewTracerMiddleware validates cfg and builds the server middleware. A nil
// provider or propagator falls back to the OpenTelemetry globals; a nil
// logger disables failure logging.
//
// Example:
//
//	mw, err := sidekiq.NewTracerMiddleware(sidekiq.Config{
//	    PeerService:      "billing",
//	    PropagationStyle: sidekiq.PropagationChild,
//	}, t.Provider(), t.Propagator(), log)
func NewTracerMiddleware(cfg Config, tp trace.TracerProvider, propagator propagation.TextMapPropagator, logger Logger, opts ...Option) (*TracerMiddleware, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if propagator == nil {
		propagator = otel.GetTextMapPropagator()
	}

	return &TracerMiddleware{
		cfg:        cfg.normalize(),
		tracer:     tp.Tracer(instrumentationName),
		propagator: propagator,
		logger:     logger,
		observer:   o.observer,
		now:        o.now,
	}, nil
}

// Call runs next inside a span for msg. The error next returns, if any, is
// returned as is; a panic in next is re-raised with the same value. The
// span is ended exactly once on every path.
func (m *TracerMiddleware) Call(ctx context.Context, msg Message, queue string, next Handler) error {
	start := m.now()

	retries := Retries(msg, m.cfg.MaxRetries())
	attrs := ServerAttributes(msg, queue, retries, start, m.cfg.PeerService)
	name := SpanName(msg, queue, m.cfg.SpanNaming, messaging.OperationProcess)

	extracted := m.propagator.Extract(ctx, MessageCarrier(msg))

	var err error
	if m.cfg.PropagationStyle == PropagationChild {
		err = m.callAsChild(extracted, name, attrs, msg, next)
	} else {
		err = m.callAsRoot(extracted, name, attrs, msg, next)
	}

	if err != nil && m.logger != nil {
		m.logger.Debug("sidekiq job failed", err, map[string]interface{}{
			"jid":               msg[KeyJID],
			"job_class":         msg.JobClass(),
			"queue":             msg.Queue(queue),
			"retries_current":   retries.Current,
			"retries_exhausted": retries.Exhausted,
		})
	}
	m.observe(msg, queue, retries, m.now().Sub(start), err)
	return err
}

// callAsChild continues the propagated trace.
func (m *TracerMiddleware) callAsChild(ctx context.Context, name string, attrs messaging.Attributes, msg Message, next Handler) error {
	return tracer.InSpan(ctx, m.tracer, name, func(ctx context.Context, span trace.Span) error {
		addTimestampEvents(span, msg)
		return next(ctx)
	},
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attrs.KeyValues()...),
	)
}

// callAsRoot starts a new trace. With PropagationLink and a valid
// propagated context the span links back to the enqueuing span. Baggage from
// the message stays in the context handed to next.
func (m *TracerMiddleware) callAsRoot(ctx context.Context, name string, attrs messaging.Attributes, msg Message, next Handler) (err error) {
	opts := []trace.SpanStartOption{
		trace.WithNewRoot(),
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attrs.KeyValues()...),
	}
	if m.cfg.PropagationStyle == PropagationLink {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			opts = append(opts, trace.WithLinks(trace.Link{SpanContext: sc}))
		}
	}

	ctx, span := m.tracer.Start(ctx, name, opts...)
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			tracer.RecordFailure(span, r)
			panic(r)
		}
	}()

	addTimestampEvents(span, msg)
	if err = next(ctx); err != nil {
		tracer.RecordFailure(span, err)
	}
	return err
}

func (m *TracerMiddleware) observe(msg Message, queue string, retries RetryInfo, d time.Duration, err error) {
	if m.observer == nil {
		return
	}
	m.observer.ObserveOperation(observability.OperationContext{
		Component:   messaging.SystemSidekiq,
		Operation:   messaging.OperationProcess,
		Resource:    msg.Queue(queue),
		SubResource: msg.JobClass(),
		Duration:    d,
		Error:       err,
		Metadata: map[string]interface{}{
			"retries_current":   retries.Current,
			"retries_maximum":   retries.Maximum,
			"retries_exhausted": retries.Exhausted,
		},
	})
}

// addTimestampEvents records created_at and enqueued_at as span events at
// the message's timestamps. A missing timestamp yields an event at the
// current time.
func addTimestampEvents(span trace.Span, msg Message) {
	for _, key := range []string{KeyCreatedAt, KeyEnqueuedAt} {
		var opts []trace.EventOption
		if ts, ok := msg.Time(key); ok {
			opts = append(opts, trace.WithTimestamp(ts))
		}
		span.AddEvent(key, opts...)
	}
}
