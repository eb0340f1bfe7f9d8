package rabbit

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Aleph-Alpha/jobtrace/pkg/sidekiq"
)

// MessageFromDelivery decodes a Sidekiq job payload from an AMQP delivery.
//
// String headers the body does not already carry are copied in, so trace
// context published as AMQP headers reaches the middleware. The AMQP message
// id and timestamp fill in "jid" and "enqueued_at" when the body has none.
func MessageFromDelivery(d amqp.Delivery) (sidekiq.Message, error) {
	msg, err := sidekiq.DecodeMessage(d.Body)
	if err != nil {
		return nil, fmt.Errorf("delivery %d: %w", d.DeliveryTag, err)
	}

	headers := TableCarrier(d.Headers)
	for _, k := range headers.Keys() {
		if _, ok := msg[k]; !ok {
			msg[k] = headers.Get(k)
		}
	}

	if _, ok := msg[sidekiq.KeyJID]; !ok && d.MessageId != "" {
		msg[sidekiq.KeyJID] = d.MessageId
	}
	if _, ok := msg[sidekiq.KeyEnqueuedAt]; !ok && !d.Timestamp.IsZero() {
		msg[sidekiq.KeyEnqueuedAt] = float64(d.Timestamp.UnixNano()) / 1e9
	}
	return msg, nil
}
