package kafka

import (
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/Aleph-Alpha/jobtrace/pkg/sidekiq"
)

// MessageFromKafka decodes a Sidekiq job payload from a Kafka record.
// Headers fill in keys the body lacks, the record key fills in "jid", the
// record time fills in "enqueued_at" and the topic fills in "queue".
func MessageFromKafka(m kafka.Message) (sidekiq.Message, error) {
	msg, err := sidekiq.DecodeMessage(m.Value)
	if err != nil {
		return nil, fmt.Errorf("%s/%d@%d: %w", m.Topic, m.Partition, m.Offset, err)
	}

	headers := NewHeaderCarrier(&m.Headers)
	for _, k := range headers.Keys() {
		if _, ok := msg[k]; !ok {
			msg[k] = headers.Get(k)
		}
	}

	if _, ok := msg[sidekiq.KeyJID]; !ok && len(m.Key) > 0 {
		msg[sidekiq.KeyJID] = string(m.Key)
	}
	if _, ok := msg[sidekiq.KeyEnqueuedAt]; !ok && !m.Time.IsZero() {
		msg[sidekiq.KeyEnqueuedAt] = float64(m.Time.UnixNano()) / 1e9
	}
	if _, ok := msg[sidekiq.KeyQueue]; !ok && m.Topic != "" {
		msg[sidekiq.KeyQueue] = m.Topic
	}
	return msg, nil
}
