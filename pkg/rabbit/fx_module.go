package rabbit

import (
	"context"
	"sync"

	"go.uber.org/fx"
)

// FXModule provides *Rabbit, *Dispatcher and *Publisher. It needs Config
// and Logger from the graph, and the *sidekiq.Chain and
// *sidekiq.ClientTracerMiddleware that sidekiq.FXModule provides.
var FXModule = fx.Module("rabbit",
	fx.Provide(
		NewClient,
		NewDispatcher,
		NewPublisher,
	),
	fx.Invoke(RegisterRabbitLifecycle),
)

// RegisterRabbitLifecycle runs RetryConnection for the lifetime of the
// application and closes the client on stop.
func RegisterRabbitLifecycle(lc fx.Lifecycle, client *Rabbit) {
	wg := &sync.WaitGroup{}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			wg.Add(1)
			go func() {
				defer wg.Done()
				client.RetryConnection()
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			err := client.Close()
			wg.Wait()
			return err
		},
	})
}
