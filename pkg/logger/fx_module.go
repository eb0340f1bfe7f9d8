package logger

import (
	"context"

	"go.uber.org/fx"
)

// FXModule provides *Logger from a Config supplied by the application and
// flushes it when the application stops.
var FXModule = fx.Module("logger",
	fx.Provide(
		NewLoggerClient,
	),
	fx.Invoke(RegisterLoggerLifecycle),
)

// RegisterLoggerLifecycle flushes buffered entries on stop. Sync errors on
// stderr are reported by some platforms even when nothing was lost, so they
// are ignored.
func RegisterLoggerLifecycle(lc fx.Lifecycle, client *Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = client.Zap.Sync()
			return nil
		},
	})
}
