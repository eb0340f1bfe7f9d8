package kafka

import (
	"context"
	"errors"

	"go.uber.org/fx"
)

// FXModule provides a Reader, a Writer, a *Processor and a *Producer for
// Config. It needs Logger from the graph, plus the *sidekiq.Chain and
// *sidekiq.ClientTracerMiddleware from sidekiq.FXModule.
var FXModule = fx.Module("kafka",
	fx.Provide(
		fx.Annotate(NewReader, fx.As(new(Reader))),
		fx.Annotate(NewWriter, fx.As(new(Writer))),
		NewProcessor,
		NewProducer,
	),
	fx.Invoke(RegisterKafkaLifecycle),
)

// RegisterKafkaLifecycle closes the reader and writer on stop.
func RegisterKafkaLifecycle(lc fx.Lifecycle, reader Reader, writer Writer, logger Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("closing kafka reader and writer...", nil)
			return errors.Join(reader.Close(), writer.Close())
		},
	})
}
