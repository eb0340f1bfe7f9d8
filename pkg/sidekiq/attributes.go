package sidekiq

import (
	"time"

	"github.com/Aleph-Alpha/jobtrace/pkg/messaging"
)

// RetryInfo is the retry position of one execution attempt.
type RetryInfo struct {
	// Current is 0 on the first attempt and retry_count+1 afterwards.
	Current int

	// Maximum is the retry budget of the job.
	Maximum int

	// Exhausted is true when this attempt is the last one the budget allows.
	Exhausted bool
}

// Retries computes the retry position of msg. A "retry" of true means the
// host's global budget globalMax, false means none, and a number is taken as
// is; anything else counts as zero.
//
// The current attempt is retry_count+1 once a retry_count is set. A missing
// or null retry_count means the first run and yields zero.
func Retries(msg Message, globalMax int) RetryInfo {
	var maximum int
	switch v := msg[KeyRetry].(type) {
	case bool:
		if v {
			maximum = globalMax
		}
	default:
		if f, ok := toFloat(v); ok {
			maximum = int(f)
		}
	}

	var current int
	if v, ok := msg[KeyRetryCount]; ok && v != nil {
		n, _ := msg.Number(KeyRetryCount)
		current = int(n) + 1
	}

	return RetryInfo{
		Current:   current,
		Maximum:   maximum,
		Exhausted: current >= maximum,
	}
}

// LatencyMillis is the time between enqueue and now in milliseconds.
func LatencyMillis(now, enqueuedAt time.Time) float64 {
	return 1000.0 * now.UTC().Sub(enqueuedAt).Seconds()
}

// SpanName is "<job class> <operation>" for SpanNamingJobClass and
// "<queue> <operation>" otherwise.
func SpanName(msg Message, queue string, naming SpanNaming, operation string) string {
	if naming == SpanNamingJobClass {
		return msg.JobClass() + " " + operation
	}
	return msg.Queue(queue) + " " + operation
}

// ServerAttributes builds the attributes of a processing span. Latency is
// left out when the message carries no enqueued_at.
func ServerAttributes(msg Message, queue string, retries RetryInfo, now time.Time, peerService string) messaging.Attributes {
	attrs := commonAttributes(msg, queue, messaging.OperationProcess, peerService)
	attrs.Put(messaging.RetriesCurrent, retries.Current)
	attrs.Put(messaging.RetriesMaximum, retries.Maximum)
	attrs.Put(messaging.RetriesExhausted, retries.Exhausted)

	if enqueuedAt, ok := msg.Time(KeyEnqueuedAt); ok {
		attrs.Put(messaging.Latency, LatencyMillis(now, enqueuedAt))
	}
	return attrs
}

// ClientAttributes builds the attributes of a publishing span.
func ClientAttributes(msg Message, queue string, peerService string) messaging.Attributes {
	return commonAttributes(msg, queue, messaging.OperationPublish, peerService)
}

func commonAttributes(msg Message, queue, operation, peerService string) messaging.Attributes {
	attrs := messaging.Attributes{}
	attrs.PutString(messaging.System, messaging.SystemSidekiq)
	// Message fields are emitted whenever the key is set, empty or not.
	if class, ok := msg.jobClass(); ok {
		attrs.Put(messaging.SidekiqJobClass, class)
	}
	if jid, ok := msg[KeyJID].(string); ok {
		attrs.Put(messaging.MessageIDLegacy, jid)
	}
	attrs.PutString(messaging.Destination, msg.Queue(queue))
	attrs.PutString(messaging.DestinationKind, messaging.DestinationKindQueue)
	attrs.PutString(messaging.Operation, operation)
	attrs.PutString(messaging.PeerService, peerService)
	return attrs
}
