package rabbit

import (
	"context"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Aleph-Alpha/jobtrace/pkg/sidekiq"
)

// JobFunc performs one job.
type JobFunc func(ctx context.Context, msg sidekiq.Message) error

// Dispatcher runs deliveries through a sidekiq server middleware chain and
// settles them: ack on success, nack without requeue on failure. Retrying
// and scheduling are left to whoever owns the queue topology.
type Dispatcher struct {
	chain  *sidekiq.Chain
	queue  string
	logger Logger
}

// NewDispatcher builds a Dispatcher for the configured queue.
func NewDispatcher(chain *sidekiq.Chain, cfg Config, logger Logger) *Dispatcher {
	return &Dispatcher{chain: chain, queue: cfg.Channel.QueueName, logger: logger}
}

// Handle decodes d, runs job through the chain and settles d. The error
// from job is returned as-is. A panic in job propagates and d stays
// unsettled until the channel closes.
func (ds *Dispatcher) Handle(ctx context.Context, d amqp.Delivery, job JobFunc) error {
	msg, err := MessageFromDelivery(d)
	if err != nil {
		ds.logger.Warn("dropping undecodable delivery", err, map[string]interface{}{
			"delivery_tag": d.DeliveryTag,
			"routing_key":  d.RoutingKey,
		})
		if nackErr := d.Nack(false, false); nackErr != nil {
			return errors.Join(err, nackErr)
		}
		return err
	}

	queue := ds.queue
	if queue == "" {
		queue = d.RoutingKey
	}

	err = ds.chain.Invoke(ctx, msg, queue, func(ctx context.Context) error {
		return job(ctx, msg)
	})
	if err != nil {
		ds.logger.Error("job failed", err, map[string]interface{}{
			"queue":     msg.Queue(queue),
			"job_class": msg.JobClass(),
		})
		if nackErr := d.Nack(false, false); nackErr != nil {
			ds.logger.Error("error in nacking delivery", nackErr, nil)
		}
		return err
	}

	if err := d.Ack(false); err != nil {
		ds.logger.Error("error in acking delivery", err, nil)
		return err
	}
	return nil
}
