package tracer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/mock/gomock"

	"github.com/Aleph-Alpha/jobtrace/pkg/messaging"
)

func newRecordingTracer(t *testing.T) (*Tracer, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctrl := gomock.NewController(t)
	return NewClientWithProvider(tp, nil, NewMockLogger(ctrl)), recorder
}

func exceptionType(t *testing.T, span sdktrace.ReadOnlySpan) string {
	t.Helper()
	for _, ev := range span.Events() {
		if ev.Name != "exception" {
			continue
		}
		for _, kv := range ev.Attributes {
			if kv.Key == "exception.type" {
				return kv.Value.AsString()
			}
		}
	}
	t.Fatalf("no exception event on span %q", span.Name())
	return ""
}

func TestCarrierRoundTrip(t *testing.T) {
	tr, _ := newRecordingTracer(t)

	ctx, span := tr.StartSpan(context.Background(), "producer")
	defer span.End()

	carrier := tr.GetCarrier(ctx)
	require.Contains(t, carrier, "traceparent")

	extracted := tr.SetCarrierOnContext(context.Background(), carrier)
	sc := oteltrace.SpanContextFromContext(extracted)
	assert.True(t, sc.IsRemote())
	assert.Equal(t, span.SpanContext().TraceID(), sc.TraceID())
	assert.Equal(t, span.SpanContext().SpanID(), sc.SpanID())
}

func TestRecordErrorOnSpan(t *testing.T) {
	tr, recorder := newRecordingTracer(t)

	_, span := tr.StartSpan(context.Background(), "work")
	tr.RecordErrorOnSpan(span, errors.New("boom"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "Unhandled exception of type: *errors.errorString", ended[0].Status().Description)
	assert.Equal(t, "*errors.errorString", exceptionType(t, ended[0]))
}

func TestSetAttributes(t *testing.T) {
	tr, recorder := newRecordingTracer(t)

	_, span := tr.StartSpan(context.Background(), "work")
	tr.SetAttributes(span, messaging.Attributes{messaging.System: "sidekiq"})
	tr.SetAttributes(span, nil)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	require.Len(t, ended[0].Attributes(), 1)
	assert.Equal(t, "sidekiq", ended[0].Attributes()[0].Value.AsString())
}

func TestInSpanReturnsSameError(t *testing.T) {
	tr, recorder := newRecordingTracer(t)
	sentinel := errors.New("job failed")

	err := InSpan(context.Background(), tr.Tracer(""), "work", func(ctx context.Context, span oteltrace.Span) error {
		assert.True(t, oteltrace.SpanContextFromContext(ctx).IsValid())
		return sentinel
	})

	assert.Same(t, sentinel, err)
	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
}

func TestInSpanRepanics(t *testing.T) {
	tr, recorder := newRecordingTracer(t)

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = InSpan(context.Background(), tr.Tracer(""), "work", func(context.Context, oteltrace.Span) error {
			panic("kaboom")
		})
	})

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "Unhandled exception of type: string", ended[0].Status().Description)
	assert.Equal(t, "string", exceptionType(t, ended[0]))
}

func TestInSpanSuccess(t *testing.T) {
	tr, recorder := newRecordingTracer(t)

	err := InSpan(context.Background(), tr.Tracer(""), "work", func(context.Context, oteltrace.Span) error {
		return nil
	})

	require.NoError(t, err)
	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Unset, ended[0].Status().Code)
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(0).Description(), "AlwaysOnSampler")
	assert.Contains(t, sampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased")
}

func TestNewClientAndFXModule(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := NewMockLogger(ctrl)
	log.EXPECT().Info("tracer initialised", nil, gomock.Any()).Times(1)
	log.EXPECT().Info("shutting down tracer...", nil, gomock.Any()).Times(1)

	var got *Tracer
	app := fxtest.New(t,
		fx.Supply(Config{ServiceName: "test", AppEnv: "test"}),
		fx.Provide(func() Logger { return log }),
		FXModule,
		fx.Populate(&got),
	)
	app.RequireStart()
	require.NotNil(t, got)
	assert.NotNil(t, got.Provider())
	assert.NotNil(t, got.Propagator())
	app.RequireStop()
}
