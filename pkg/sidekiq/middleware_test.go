package sidekiq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/mock/gomock"

	"github.com/Aleph-Alpha/jobtrace/pkg/messaging"
	"github.com/Aleph-Alpha/jobtrace/pkg/observability"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	tp         *sdktrace.TracerProvider
	recorder   *tracetest.SpanRecorder
	propagator propagation.TextMapPropagator
	logger     *MockLogger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctrl := gomock.NewController(t)
	log := NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	return &testEnv{
		tp:         tp,
		recorder:   recorder,
		propagator: propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}),
		logger:     log,
	}
}

func (e *testEnv) middleware(t *testing.T, cfg Config, opts ...Option) *TracerMiddleware {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	mw, err := NewTracerMiddleware(cfg, e.tp, e.propagator, e.logger, opts...)
	require.NoError(t, err)
	return mw
}

// remoteParent starts and ends a producer span and returns a message carrying
// its context.
func (e *testEnv) remoteParent(t *testing.T) (Message, trace.SpanContext) {
	t.Helper()
	ctx, span := e.tp.Tracer("producer").Start(context.Background(), "enqueue")
	span.End()

	msg := sampleMessage()
	e.propagator.Inject(ctx, MessageCarrier(msg))
	return msg, span.SpanContext()
}

func sampleMessage() Message {
	return Message{
		"class":       "HardWorker",
		"jid":         "b4a577edbccf1d805744efa9",
		"queue":       "default",
		"retry":       3,
		"retry_count": 3,
		"created_at":  float64(testNow.Add(-3 * time.Second).Unix()),
		"enqueued_at": float64(testNow.Add(-2 * time.Second).Unix()),
	}
}

func (e *testEnv) jobSpans(t *testing.T) []sdktrace.ReadOnlySpan {
	t.Helper()
	var out []sdktrace.ReadOnlySpan
	for _, s := range e.recorder.Ended() {
		if s.SpanKind() == trace.SpanKindConsumer {
			out = append(out, s)
		}
	}
	return out
}

func attrMap(kvs []attribute.KeyValue) map[string]attribute.Value {
	out := make(map[string]attribute.Value, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value
	}
	return out
}

func TestRootSpanAttributesAndEvents(t *testing.T) {
	env := newTestEnv(t)
	mw := env.middleware(t, Config{PeerService: "billing"})

	var handlerSpan trace.SpanContext
	err := mw.Call(context.Background(), sampleMessage(), "default", func(ctx context.Context) error {
		handlerSpan = trace.SpanContextFromContext(ctx)
		return nil
	})
	require.NoError(t, err)

	spans := env.jobSpans(t)
	require.Len(t, spans, 1)
	span := spans[0]

	assert.Equal(t, "default process", span.Name())
	assert.Equal(t, span.SpanContext().SpanID(), handlerSpan.SpanID())
	assert.False(t, span.Parent().IsValid())
	assert.Empty(t, span.Links())

	attrs := attrMap(span.Attributes())
	assert.Equal(t, "sidekiq", attrs[messaging.System].AsString())
	assert.Equal(t, "HardWorker", attrs[messaging.SidekiqJobClass].AsString())
	assert.Equal(t, "b4a577edbccf1d805744efa9", attrs[messaging.MessageIDLegacy].AsString())
	assert.Equal(t, "default", attrs[messaging.Destination].AsString())
	assert.Equal(t, "queue", attrs[messaging.DestinationKind].AsString())
	assert.Equal(t, "process", attrs[messaging.Operation].AsString())
	assert.Equal(t, int64(4), attrs[messaging.RetriesCurrent].AsInt64())
	assert.Equal(t, int64(3), attrs[messaging.RetriesMaximum].AsInt64())
	assert.True(t, attrs[messaging.RetriesExhausted].AsBool())
	assert.InDelta(t, 2000.0, attrs[messaging.Latency].AsFloat64(), 1e-6)
	assert.Equal(t, "billing", attrs[messaging.PeerService].AsString())

	events := span.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "created_at", events[0].Name)
	assert.Equal(t, testNow.Add(-3*time.Second), events[0].Time.UTC())
	assert.Equal(t, "enqueued_at", events[1].Name)
	assert.Equal(t, testNow.Add(-2*time.Second), events[1].Time.UTC())
}

func TestLinkStyleLinksToPropagatedContext(t *testing.T) {
	env := newTestEnv(t)
	mw := env.middleware(t, Config{PropagationStyle: PropagationLink})
	msg, parent := env.remoteParent(t)

	require.NoError(t, mw.Call(context.Background(), msg, "default", func(context.Context) error { return nil }))

	spans := env.jobSpans(t)
	require.Len(t, spans, 1)
	span := spans[0]

	assert.False(t, span.Parent().IsValid())
	assert.NotEqual(t, parent.TraceID(), span.SpanContext().TraceID())
	require.Len(t, span.Links(), 1)
	assert.Equal(t, parent.TraceID(), span.Links()[0].SpanContext.TraceID())
	assert.Equal(t, parent.SpanID(), span.Links()[0].SpanContext.SpanID())
}

func TestLinkStyleWithoutContextHasNoLink(t *testing.T) {
	env := newTestEnv(t)
	mw := env.middleware(t, Config{})

	require.NoError(t, mw.Call(context.Background(), sampleMessage(), "default", func(context.Context) error { return nil }))

	spans := env.jobSpans(t)
	require.Len(t, spans, 1)
	assert.Empty(t, spans[0].Links())
}

func TestNoneStyleIgnoresPropagatedContext(t *testing.T) {
	env := newTestEnv(t)
	mw := env.middleware(t, Config{PropagationStyle: PropagationNone})
	msg, parent := env.remoteParent(t)

	require.NoError(t, mw.Call(context.Background(), msg, "default", func(context.Context) error { return nil }))

	spans := env.jobSpans(t)
	require.Len(t, spans, 1)
	assert.Empty(t, spans[0].Links())
	assert.False(t, spans[0].Parent().IsValid())
	assert.NotEqual(t, parent.TraceID(), spans[0].SpanContext().TraceID())
}

func TestChildStyleContinuesTrace(t *testing.T) {
	env := newTestEnv(t)
	mw := env.middleware(t, Config{PropagationStyle: PropagationChild})
	msg, parent := env.remoteParent(t)

	require.NoError(t, mw.Call(context.Background(), msg, "default", func(context.Context) error { return nil }))

	spans := env.jobSpans(t)
	require.Len(t, spans, 1)
	span := spans[0]

	assert.Equal(t, parent.TraceID(), span.SpanContext().TraceID())
	assert.Equal(t, parent.SpanID(), span.Parent().SpanID())
	assert.True(t, span.Parent().IsRemote())
	assert.Empty(t, span.Links())
	require.Len(t, span.Events(), 2)
}

func TestChildStyleErrorPassesThrough(t *testing.T) {
	env := newTestEnv(t)
	mw := env.middleware(t, Config{PropagationStyle: PropagationChild})
	sentinel := errors.New("downstream timeout")

	err := mw.Call(context.Background(), sampleMessage(), "default", func(context.Context) error { return sentinel })

	assert.Same(t, sentinel, err)
	spans := env.jobSpans(t)
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

type jobError struct{ reason string }

func (e *jobError) Error() string { return e.reason }

func TestRootStyleErrorRecordedAndReturned(t *testing.T) {
	env := newTestEnv(t)
	mw := env.middleware(t, Config{})
	failure := &jobError{reason: "card declined"}

	err := mw.Call(context.Background(), sampleMessage(), "default", func(context.Context) error { return failure })

	require.Error(t, err)
	assert.Same(t, failure, err)
	assert.Equal(t, "card declined", err.Error())

	spans := env.jobSpans(t)
	require.Len(t, spans, 1, "span must be ended exactly once")
	span := spans[0]
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Equal(t, "Unhandled exception of type: *sidekiq.jobError", span.Status().Description)

	var exception *sdktrace.Event
	for i, ev := range span.Events() {
		if ev.Name == "exception" {
			exception = &span.Events()[i]
		}
	}
	require.NotNil(t, exception, "exception event expected")
	ex := attrMap(exception.Attributes)
	assert.Equal(t, "card declined", ex["exception.message"].AsString())
	assert.Contains(t, ex["exception.type"].AsString(), "jobError")
}

func TestRootStylePanicRepanicsAndEndsSpan(t *testing.T) {
	env := newTestEnv(t)
	mw := env.middleware(t, Config{})
	failure := &jobError{reason: "nil dereference"}

	assert.PanicsWithValue(t, failure, func() {
		_ = mw.Call(context.Background(), sampleMessage(), "default", func(context.Context) error { panic(failure) })
	})

	spans := env.jobSpans(t)
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "Unhandled exception of type: *sidekiq.jobError", spans[0].Status().Description)
}

func TestChildStylePanicRepanics(t *testing.T) {
	env := newTestEnv(t)
	mw := env.middleware(t, Config{PropagationStyle: PropagationChild})

	assert.PanicsWithValue(t, "boom", func() {
		_ = mw.Call(context.Background(), sampleMessage(), "default", func(context.Context) error { panic("boom") })
	})
	require.Len(t, env.jobSpans(t), 1)
}

func TestSpanNamingJobClassUsesWrapped(t *testing.T) {
	env := newTestEnv(t)
	mw := env.middleware(t, Config{SpanNaming: SpanNamingJobClass})

	msg := sampleMessage()
	msg["class"] = "ActiveJob::QueueAdapters::SidekiqAdapter::JobWrapper"
	msg["wrapped"] = "InvoiceMailerJob"

	require.NoError(t, mw.Call(context.Background(), msg, "default", func(context.Context) error { return nil }))

	spans := env.jobSpans(t)
	require.Len(t, spans, 1)
	assert.Equal(t, "InvoiceMailerJob process", spans[0].Name())
	assert.Equal(t, "InvoiceMailerJob", attrMap(spans[0].Attributes())[messaging.SidekiqJobClass].AsString())
}

func TestBaggageReachesHandlerInRootMode(t *testing.T) {
	env := newTestEnv(t)
	mw := env.middleware(t, Config{})

	member, err := baggage.NewMember("tenant", "acme")
	require.NoError(t, err)
	bag, err := baggage.New(member)
	require.NoError(t, err)

	msg := sampleMessage()
	env.propagator.Inject(baggage.ContextWithBaggage(context.Background(), bag), MessageCarrier(msg))

	var tenant string
	require.NoError(t, mw.Call(context.Background(), msg, "default", func(ctx context.Context) error {
		tenant = baggage.FromContext(ctx).Member("tenant").Value()
		return nil
	}))
	assert.Equal(t, "acme", tenant)
}

type recordingObserver struct {
	mu  sync.Mutex
	ops []observability.OperationContext
}

func (r *recordingObserver) ObserveOperation(ctx observability.OperationContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, ctx)
}

func TestObserverReceivesOperation(t *testing.T) {
	env := newTestEnv(t)
	obs := &recordingObserver{}
	mw := env.middleware(t, Config{}, WithObserver(obs))
	sentinel := errors.New("failed")

	_ = mw.Call(context.Background(), sampleMessage(), "default", func(context.Context) error { return sentinel })

	require.Len(t, obs.ops, 1)
	op := obs.ops[0]
	assert.Equal(t, "sidekiq", op.Component)
	assert.Equal(t, "process", op.Operation)
	assert.Equal(t, "default", op.Resource)
	assert.Equal(t, "HardWorker", op.SubResource)
	assert.Same(t, sentinel, op.Error)
	assert.Equal(t, true, op.Metadata["retries_exhausted"])
}

func TestFailureIsLogged(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctrl := gomock.NewController(t)
	log := NewMockLogger(ctrl)
	sentinel := errors.New("failed")
	log.EXPECT().Debug("sidekiq job failed", sentinel, gomock.Any()).Times(1)

	mw, err := NewTracerMiddleware(Config{}, tp, nil, log)
	require.NoError(t, err)

	_ = mw.Call(context.Background(), sampleMessage(), "default", func(context.Context) error { return sentinel })
}

func TestNilLoggerFailureReturnsError(t *testing.T) {
	env := newTestEnv(t)
	mw, err := NewTracerMiddleware(Config{}, env.tp, env.propagator, nil)
	require.NoError(t, err)
	sentinel := errors.New("failed")

	assert.NotPanics(t, func() {
		err = mw.Call(context.Background(), sampleMessage(), "default", func(context.Context) error { return sentinel })
	})
	assert.Same(t, sentinel, err)

	spans := env.jobSpans(t)
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestGlobalMaxRetriesZero(t *testing.T) {
	env := newTestEnv(t)
	mw := env.middleware(t, Config{DefaultMaxRetries: intPtr(0)})
	msg := Message{"class": "HardWorker", "jid": "abc", "queue": "default", "retry": true}

	require.NoError(t, mw.Call(context.Background(), msg, "default", func(context.Context) error { return nil }))

	spans := env.jobSpans(t)
	require.Len(t, spans, 1)
	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, int64(0), attrs[messaging.RetriesCurrent].AsInt64())
	assert.Equal(t, int64(0), attrs[messaging.RetriesMaximum].AsInt64())
	assert.True(t, attrs[messaging.RetriesExhausted].AsBool())
}

func TestConcurrentCalls(t *testing.T) {
	env := newTestEnv(t)
	mw := env.middleware(t, Config{PropagationStyle: PropagationChild})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = mw.Call(context.Background(), sampleMessage(), "default", func(context.Context) error { return nil })
		}()
	}
	wg.Wait()

	assert.Len(t, env.jobSpans(t), 20)
}

func TestNewTracerMiddlewareRejectsBadConfig(t *testing.T) {
	_, err := NewTracerMiddleware(Config{SpanNaming: "by_argument"}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidSpanNaming)

	_, err = NewTracerMiddleware(Config{PropagationStyle: "sibling"}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidPropagationStyle)
}
