package metrics

import (
	"context"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/jobtrace/pkg/observability"
)

// FXModule provides *Metrics, *JobObserver and the observer as
// observability.Observer so the sidekiq and activejob modules report into
// it. The graph must supply Config and Logger.
//
// Usage:
//
//	app := fx.New(
//	    fx.Supply(metrics.Config{Address: ":9090", ServiceName: "billing-workers"}),
//	    metrics.FXModule,
//	    sidekiq.FXModule,
//	    activejob.FXModule,
//	)
var FXModule = fx.Module("metrics",
	fx.Provide(
		NewMetrics,
		NewJobObserverFromMetrics,
		AsObserver,
	),
	fx.Invoke(RegisterMetricsLifecycle),
)

// AsObserver exposes the job observer under the observability interface.
func AsObserver(o *JobObserver) observability.Observer {
	return o
}

// RegisterMetricsLifecycle starts the metrics server with the application
// and shuts it down gracefully on stop.
func RegisterMetricsLifecycle(lc fx.Lifecycle, m *Metrics, log Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := m.Start(ctx); err != nil {
				log.Error("error starting Prometheus metrics server", err, map[string]interface{}{
					"address": m.Server.Addr,
				})
				return err
			}
			addr, _ := m.Addr()
			log.Info("started Prometheus metrics server", nil, map[string]interface{}{
				"address": addr,
			})
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down Prometheus metrics server", nil)
			return m.Stop(ctx)
		},
	})
}
