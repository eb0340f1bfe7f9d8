package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Aleph-Alpha/jobtrace/pkg/sidekiq"
)

// Producer pushes jobs through a sidekiq client middleware and writes them
// as JSON records keyed by jid.
type Producer struct {
	writer     Writer
	middleware sidekiq.ClientMiddleware
	topic      string
	now        func() time.Time
}

// NewProducer builds a Producer. A nil middleware writes untraced.
func NewProducer(writer Writer, mw *sidekiq.ClientTracerMiddleware, cfg Config) *Producer {
	p := &Producer{writer: writer, topic: cfg.Topic, now: time.Now}
	if mw != nil {
		p.middleware = mw
	}
	return p
}

// Push fills "queue" and "enqueued_at" when absent and writes msg.
func (p *Producer) Push(ctx context.Context, msg sidekiq.Message) error {
	queue := msg.Queue(p.topic)
	if _, ok := msg[sidekiq.KeyQueue]; !ok {
		msg[sidekiq.KeyQueue] = queue
	}
	if _, ok := msg[sidekiq.KeyEnqueuedAt]; !ok {
		msg[sidekiq.KeyEnqueuedAt] = float64(p.now().UnixNano()) / 1e9
	}

	write := func(ctx context.Context) error {
		body, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encode job: %w", err)
		}
		jid, _ := msg.String(sidekiq.KeyJID)
		return p.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(jid),
			Value: body,
			Time:  p.now(),
		})
	}
	if p.middleware == nil {
		return write(ctx)
	}
	return p.middleware.Call(ctx, msg, queue, write)
}
