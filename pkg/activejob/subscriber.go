package activejob

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aleph-Alpha/jobtrace/pkg/messaging"
	"github.com/Aleph-Alpha/jobtrace/pkg/observability"
	"github.com/Aleph-Alpha/jobtrace/pkg/tracer"
)

const instrumentationName = "github.com/Aleph-Alpha/jobtrace/pkg/activejob"

// Logger is the logging surface the subscriber needs.
type Logger interface {
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
}

// Subscriber opens a span around the enqueue and perform events of a job and
// annotates it through a Mapper: Start attributes when the span opens,
// Finish attributes right before it ends.
type Subscriber struct {
	tracer   trace.Tracer
	mapper   Mapper
	logger   Logger
	observer observability.Observer
}

// SubscriberOption configures a Subscriber.
type SubscriberOption func(*Subscriber)

// WithMapper replaces the default AttributeMapper.
func WithMapper(m Mapper) SubscriberOption {
	return func(s *Subscriber) { s.mapper = m }
}

// WithObserver reports every enqueue and perform to o.
func WithObserver(o observability.Observer) SubscriberOption {
	return func(s *Subscriber) { s.observer = o }
}

// NewSubscriber builds a Subscriber. A nil provider means the global one and
// a nil logger disables logging.
func NewSubscriber(tp trace.TracerProvider, logger Logger, opts ...SubscriberOption) *Subscriber {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	s := &Subscriber{
		tracer: tp.Tracer(instrumentationName),
		mapper: NewAttributeMapper(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enqueue wraps the hand-off of a job to its backend in a producer span named
// "<queue> publish". fn receives a context carrying the span so the host can
// inject it into the stored job.
func (s *Subscriber) Enqueue(ctx context.Context, p Payload, fn func(ctx context.Context) error) error {
	return s.instrument(ctx, "enqueue", messaging.OperationPublish, trace.SpanKindProducer, p, fn)
}

// Perform wraps the execution of a job in a consumer span named
// "<queue> process".
func (s *Subscriber) Perform(ctx context.Context, p Payload, fn func(ctx context.Context) error) error {
	return s.instrument(ctx, "perform", messaging.OperationProcess, trace.SpanKindConsumer, p, fn)
}

func (s *Subscriber) instrument(ctx context.Context, event, operation string, kind trace.SpanKind, p Payload, fn func(ctx context.Context) error) error {
	job, err := p.Job()
	if err != nil {
		return fmt.Errorf("active job %s: %w", event, err)
	}
	attrs, err := s.mapper.Start(p)
	if err != nil {
		return fmt.Errorf("active job %s: %w", event, err)
	}

	name := job.QueueName + " " + operation
	start := time.Now()

	err = tracer.InSpan(ctx, s.tracer, name, func(ctx context.Context, span trace.Span) error {
		runErr := fn(ctx)

		finish, mapErr := s.mapper.Finish(p)
		if mapErr != nil && s.logger != nil {
			s.logger.Warn("cannot map finish attributes", mapErr, map[string]interface{}{
				"event": event,
				"jid":   job.JobID,
			})
		}
		if mapErr == nil && len(finish) > 0 {
			span.SetAttributes(finish.KeyValues()...)
		}
		return runErr
	},
		trace.WithSpanKind(kind),
		trace.WithAttributes(attrs.KeyValues()...),
	)

	s.observe(event, job, time.Since(start), err)
	if err != nil && s.logger != nil {
		s.logger.Debug("active job failed", err, map[string]interface{}{
			"event": event,
			"jid":   job.JobID,
			"queue": job.QueueName,
		})
	}
	return err
}

func (s *Subscriber) observe(event string, job *Job, d time.Duration, err error) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveOperation(observability.OperationContext{
		Component:   messaging.SystemActiveJob,
		Operation:   event,
		Resource:    job.QueueName,
		SubResource: job.ClassName,
		Duration:    d,
		Error:       err,
		Metadata: map[string]interface{}{
			"adapter": job.AdapterName,
		},
	})
}
