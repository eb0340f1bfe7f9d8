// Package rabbit carries Sidekiq-format jobs over RabbitMQ with tracing.
//
// Publisher pushes a job through sidekiq.ClientTracerMiddleware, which
// writes the producer span's context into the JSON payload, and publishes it
// to the job queue. Rabbit.Consume reads the queue and hands each delivery
// to a Dispatcher, which decodes it with MessageFromDelivery, runs it
// through the server middleware chain and acks or nacks it.
//
// Trace context sent as AMQP headers by other producers is honoured too:
// MessageFromDelivery copies string headers into the message when the body
// does not carry the key. TableCarrier exposes amqp.Table to OpenTelemetry
// propagators directly.
//
// Usage with fx:
//
//	app := fx.New(
//	    fx.Supply(sidekiq.Config{PropagationStyle: sidekiq.PropagationChild}),
//	    fx.Supply(rabbit.Config{
//	        Connection: rabbit.Connection{Host: "localhost", Port: 5672, User: "guest", Password: "guest"},
//	        Channel:    rabbit.Channel{QueueName: "default", PrefetchCount: 10},
//	    }),
//	    logger.FXModule,
//	    tracer.FXModule,
//	    sidekiq.FXModule,
//	    rabbit.FXModule,
//	    fx.Invoke(func(lc fx.Lifecycle, rb *rabbit.Rabbit, ds *rabbit.Dispatcher) {
//	        ctx, cancel := context.WithCancel(context.Background())
//	        lc.Append(fx.Hook{
//	            OnStart: func(context.Context) error {
//	                go rb.Consume(ctx, ds, performJob)
//	                return nil
//	            },
//	            OnStop: func(context.Context) error {
//	                cancel()
//	                return nil
//	            },
//	        })
//	    }),
//	)
package rabbit
