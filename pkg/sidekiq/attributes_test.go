package sidekiq

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/jobtrace/pkg/messaging"
)

func TestRetries(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want RetryInfo
	}{
		{
			name: "retry true uses global default, first attempt",
			msg:  Message{"retry": true},
			want: RetryInfo{Current: 0, Maximum: 25, Exhausted: false},
		},
		{
			name: "numeric retry with retry_count at the limit",
			msg:  Message{"retry": 3, "retry_count": 3},
			want: RetryInfo{Current: 4, Maximum: 3, Exhausted: true},
		},
		{
			name: "retry false ignores retry_count",
			msg:  Message{"retry": false, "retry_count": 7},
			want: RetryInfo{Current: 8, Maximum: 0, Exhausted: true},
		},
		{
			name: "retry false first attempt",
			msg:  Message{"retry": false},
			want: RetryInfo{Current: 0, Maximum: 0, Exhausted: true},
		},
		{
			name: "json numbers",
			msg:  Message{"retry": json.Number("5"), "retry_count": json.Number("1")},
			want: RetryInfo{Current: 2, Maximum: 5, Exhausted: false},
		},
		{
			name: "float retry_count from plain json decoding",
			msg:  Message{"retry": float64(10), "retry_count": float64(0)},
			want: RetryInfo{Current: 1, Maximum: 10, Exhausted: false},
		},
		{
			name: "null retry_count is the first attempt",
			msg:  Message{"retry": 3, "retry_count": nil},
			want: RetryInfo{Current: 0, Maximum: 3, Exhausted: false},
		},
		{
			name: "missing retry counts as zero",
			msg:  Message{},
			want: RetryInfo{Current: 0, Maximum: 0, Exhausted: true},
		},
		{
			name: "unparseable retry counts as zero",
			msg:  Message{"retry": "often"},
			want: RetryInfo{Current: 0, Maximum: 0, Exhausted: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retries(tt.msg, DefaultMaxRetryAttempts))
		})
	}
}

func TestRetriesGlobalMaxZero(t *testing.T) {
	got := Retries(Message{"retry": true}, 0)
	assert.Equal(t, RetryInfo{Current: 0, Maximum: 0, Exhausted: true}, got)
}

func TestRetriesCustomGlobalMax(t *testing.T) {
	got := Retries(Message{"retry": true, "retry_count": 9}, 10)
	assert.Equal(t, RetryInfo{Current: 10, Maximum: 10, Exhausted: true}, got)
}

func TestLatencyMillis(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.InDelta(t, 2500.0, LatencyMillis(now, now.Add(-2500*time.Millisecond)), 1e-9)
	assert.Equal(t, 0.0, LatencyMillis(now, now))

	for _, ago := range []time.Duration{0, time.Microsecond, time.Minute, 48 * time.Hour} {
		assert.GreaterOrEqual(t, LatencyMillis(now, now.Add(-ago)), 0.0)
	}
}

func TestSpanName(t *testing.T) {
	msg := Message{"class": "ActiveJob::QueueAdapters::SidekiqAdapter::JobWrapper", "wrapped": "InvoiceMailerJob", "queue": "mailers"}
	plain := Message{"class": "HardWorker", "queue": "critical"}

	assert.Equal(t, "mailers process", SpanName(msg, "ignored", SpanNamingQueue, "process"))
	assert.Equal(t, "InvoiceMailerJob process", SpanName(msg, "ignored", SpanNamingJobClass, "process"))
	assert.Equal(t, "HardWorker process", SpanName(plain, "critical", SpanNamingJobClass, "process"))
	assert.Equal(t, "critical process", SpanName(plain, "critical", SpanNamingQueue, "process"))
	assert.Equal(t, "fallback process", SpanName(Message{}, "fallback", SpanNamingQueue, "process"))
}

func TestServerAttributes(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	enqueued := float64(now.Add(-time.Second).Unix())

	msg := Message{
		"class":       "HardWorker",
		"jid":         "b4a577edbccf1d805744efa9",
		"queue":       "default",
		"retry":       true,
		"enqueued_at": enqueued,
	}

	attrs := ServerAttributes(msg, "default", Retries(msg, 25), now, "billing")

	assert.Equal(t, "sidekiq", attrs[messaging.System])
	assert.Equal(t, "HardWorker", attrs[messaging.SidekiqJobClass])
	assert.Equal(t, "b4a577edbccf1d805744efa9", attrs[messaging.MessageIDLegacy])
	assert.Equal(t, "default", attrs[messaging.Destination])
	assert.Equal(t, "queue", attrs[messaging.DestinationKind])
	assert.Equal(t, "process", attrs[messaging.Operation])
	assert.Equal(t, 0, attrs[messaging.RetriesCurrent])
	assert.Equal(t, 25, attrs[messaging.RetriesMaximum])
	assert.Equal(t, false, attrs[messaging.RetriesExhausted])
	assert.Equal(t, "billing", attrs[messaging.PeerService])
	assert.InDelta(t, 1000.0, attrs[messaging.Latency], 1e-6)
}

func TestServerAttributesOmitsAbsent(t *testing.T) {
	attrs := ServerAttributes(Message{"class": "HardWorker"}, "default", RetryInfo{}, time.Now(), "")

	assert.False(t, attrs.Has(messaging.PeerService))
	assert.False(t, attrs.Has(messaging.Latency))
	assert.False(t, attrs.Has(messaging.MessageIDLegacy))
	assert.Equal(t, "default", attrs[messaging.Destination])
}

func TestServerAttributesKeepsEmptyMessageFields(t *testing.T) {
	msg := Message{"class": "JobWrapper", "wrapped": "", "jid": ""}
	attrs := ServerAttributes(msg, "default", RetryInfo{}, time.Now(), "")

	require.True(t, attrs.Has(messaging.SidekiqJobClass))
	assert.Equal(t, "", attrs[messaging.SidekiqJobClass])
	require.True(t, attrs.Has(messaging.MessageIDLegacy))
	assert.Equal(t, "", attrs[messaging.MessageIDLegacy])

	attrs = ServerAttributes(Message{}, "default", RetryInfo{}, time.Now(), "")
	assert.False(t, attrs.Has(messaging.SidekiqJobClass))
}

func TestClientAttributes(t *testing.T) {
	attrs := ClientAttributes(Message{"class": "HardWorker", "jid": "abc"}, "low", "")

	require.Equal(t, "publish", attrs[messaging.Operation])
	assert.Equal(t, "low", attrs[messaging.Destination])
	assert.False(t, attrs.Has(messaging.RetriesCurrent))
}
