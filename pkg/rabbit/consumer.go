package rabbit

import (
	"context"
	"time"
)

// Consume reads the job queue and hands each delivery to ds until ctx is
// done or the client is closed. Deliveries are handled one at a time; run
// Consume on several goroutines for concurrency. When the broker closes the
// delivery channel Consume waits for RetryConnection and subscribes again.
func (rb *Rabbit) Consume(ctx context.Context, ds *Dispatcher, job JobFunc) error {
	queue := rb.cfg.Channel.QueueName

outerLoop:
	for {
		select {
		case <-rb.shutdownSignal:
			rb.logger.Info("consumer is shutting down due to shutdown signal", nil, nil)
			return nil
		case <-ctx.Done():
			rb.logger.Info("consumer is shutting down due to context cancellation", ctx.Err(), nil)
			return ctx.Err()
		default:
		}

		ch, err := rb.channel()
		if err == nil {
			deliveries, consumeErr := ch.ConsumeWithContext(ctx,
				queue,
				rb.cfg.Channel.ConsumerTag,
				false, // autoAck
				false, // exclusive
				false, // noLocal
				false, // noWait
				nil,   // args
			)
			if consumeErr == nil {
				for {
					select {
					case <-ctx.Done():
						rb.logger.Info("consumer is shutting down due to context cancellation", ctx.Err(), nil)
						return ctx.Err()
					case <-rb.shutdownSignal:
						rb.logger.Info("consumer is shutting down due to shutdown signal", nil, nil)
						return nil
					case d, ok := <-deliveries:
						if !ok {
							rb.logger.Warn("rabbit delivery channel closed", ErrDeliveriesClosed, map[string]interface{}{
								"queue_name": queue,
							})
							continue outerLoop
						}
						rb.logger.Debug("message consumed from rabbit", nil, map[string]interface{}{
							"queue_name":   queue,
							"delivery_tag": d.DeliveryTag,
						})
						_ = ds.Handle(ctx, d, job)
					}
				}
			}
			err = consumeErr
		}

		rb.logger.Error("error in establishing consumer for rabbit", err, map[string]interface{}{
			"queue_name": queue,
		})
		select {
		case <-ctx.Done():
		case <-rb.shutdownSignal:
		case <-time.After(100 * time.Millisecond):
		}
	}
}
