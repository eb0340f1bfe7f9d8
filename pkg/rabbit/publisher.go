package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Aleph-Alpha/jobtrace/pkg/sidekiq"
)

// Publisher pushes jobs through a sidekiq client middleware and onto the
// queue, so the producer span's context travels inside the payload.
type Publisher struct {
	rabbit     *Rabbit
	middleware sidekiq.ClientMiddleware
	now        func() time.Time
}

// NewPublisher builds a Publisher. A nil middleware publishes untraced.
func NewPublisher(rb *Rabbit, mw *sidekiq.ClientTracerMiddleware) *Publisher {
	p := &Publisher{rabbit: rb, now: time.Now}
	if mw != nil {
		p.middleware = mw
	}
	return p
}

// Push fills "queue", "jid" and "enqueued_at" when absent and publishes msg
// to its queue.
func (p *Publisher) Push(ctx context.Context, msg sidekiq.Message) error {
	queue := msg.Queue(p.rabbit.cfg.Channel.QueueName)
	prepareMessage(msg, queue, p.now())

	publish := func(ctx context.Context) error {
		return p.rabbit.Publish(ctx, queue, msg)
	}
	if p.middleware == nil {
		return publish(ctx)
	}
	return p.middleware.Call(ctx, msg, queue, publish)
}

// Publish sends msg as a persistent JSON message to queue through the
// default exchange.
func (rb *Rabbit) Publish(ctx context.Context, queue string, msg sidekiq.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}

	ch, err := rb.channel()
	if err != nil {
		rb.logger.Error("error in publishing msg into rabbit", err, nil)
		return err
	}

	jid, _ := msg.String(sidekiq.KeyJID)
	err = ch.PublishWithContext(ctx,
		"",    // default exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    jid,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		rb.logger.Error("error in publishing msg into rabbit", err, map[string]interface{}{
			"queue": queue,
		})
		return err
	}
	return nil
}

func prepareMessage(msg sidekiq.Message, queue string, now time.Time) {
	if _, ok := msg[sidekiq.KeyQueue]; !ok {
		msg[sidekiq.KeyQueue] = queue
	}
	if _, ok := msg[sidekiq.KeyJID]; !ok {
		msg[sidekiq.KeyJID] = newJID()
	}
	if _, ok := msg[sidekiq.KeyEnqueuedAt]; !ok {
		msg[sidekiq.KeyEnqueuedAt] = float64(now.UnixNano()) / 1e9
	}
}

// newJID returns a 24 character hex id in the shape Sidekiq uses.
func newJID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}
