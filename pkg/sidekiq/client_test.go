package sidekiq

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aleph-Alpha/jobtrace/pkg/messaging"
)

func TestClientInjectsContextServerExtracts(t *testing.T) {
	env := newTestEnv(t)
	client, err := NewClientTracerMiddleware(Config{}, env.tp, env.propagator)
	require.NoError(t, err)
	server := env.middleware(t, Config{PropagationStyle: PropagationChild})

	msg := Message{"class": "HardWorker", "jid": "abc", "queue": "default", "retry": true}

	pushed := false
	require.NoError(t, client.Call(context.Background(), msg, "default", func(context.Context) error {
		pushed = true
		return nil
	}))
	require.True(t, pushed)
	require.Contains(t, msg, "traceparent")

	require.NoError(t, server.Call(context.Background(), msg, "default", func(context.Context) error { return nil }))

	var producer, consumer trace.SpanContext
	var consumerParent trace.SpanContext
	for _, s := range env.recorder.Ended() {
		switch s.SpanKind() {
		case trace.SpanKindProducer:
			producer = s.SpanContext()
			assert.Equal(t, "default publish", s.Name())
			attrs := attrMap(s.Attributes())
			assert.Equal(t, "publish", attrs[messaging.Operation].AsString())
			assert.Equal(t, "HardWorker", attrs[messaging.SidekiqJobClass].AsString())
		case trace.SpanKindConsumer:
			consumer = s.SpanContext()
			consumerParent = s.Parent()
		}
	}

	require.True(t, producer.IsValid())
	require.True(t, consumer.IsValid())
	assert.Equal(t, producer.TraceID(), consumer.TraceID())
	assert.Equal(t, producer.SpanID(), consumerParent.SpanID())
}

func TestClientErrorPassesThrough(t *testing.T) {
	env := newTestEnv(t)
	client, err := NewClientTracerMiddleware(Config{SpanNaming: SpanNamingJobClass}, env.tp, env.propagator)
	require.NoError(t, err)
	sentinel := errors.New("redis down")

	err = client.Call(context.Background(), Message{"class": "HardWorker"}, "default", func(context.Context) error { return sentinel })

	assert.Same(t, sentinel, err)
	ended := env.recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "HardWorker publish", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
}

func TestNewClientRejectsBadConfig(t *testing.T) {
	_, err := NewClientTracerMiddleware(Config{PropagationStyle: "sideways"}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidPropagationStyle)
}
