package sidekiq

import (
	"context"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/jobtrace/pkg/observability"
	"github.com/Aleph-Alpha/jobtrace/pkg/tracer"
)

// ChainMiddlewareName is the name the tracer middleware is registered under
// in the Chain provided by FXModule.
const ChainMiddlewareName = "opentelemetry"

// FXModule provides *TracerMiddleware, *ClientTracerMiddleware and a server
// *Chain with the tracer middleware installed. The graph must supply Config,
// *tracer.Tracer and Logger; an observability.Observer is picked up when
// present.
//
// Usage:
//
//	app := fx.New(
//	    fx.Supply(sidekiq.Config{PropagationStyle: sidekiq.PropagationChild}),
//	    logger.FXModule,
//	    tracer.FXModule,
//	    sidekiq.FXModule,
//	)
var FXModule = fx.Module("sidekiq",
	fx.Provide(
		NewTracerMiddlewareFromParams,
		NewClientTracerMiddlewareFromParams,
		NewServerChain,
	),
	fx.Invoke(RegisterSidekiqLifecycle),
)

// Params are the dependencies of the middlewares in an fx graph.
type Params struct {
	fx.In

	Config   Config
	Tracer   *tracer.Tracer
	Logger   Logger
	Observer observability.Observer `optional:"true"`
}

// NewTracerMiddlewareFromParams builds the server middleware from the graph.
func NewTracerMiddlewareFromParams(p Params) (*TracerMiddleware, error) {
	var opts []Option
	if p.Observer != nil {
		opts = append(opts, WithObserver(p.Observer))
	}
	return NewTracerMiddleware(p.Config, p.Tracer.Provider(), p.Tracer.Propagator(), p.Logger, opts...)
}

// NewClientTracerMiddlewareFromParams builds the client middleware from the graph.
func NewClientTracerMiddlewareFromParams(p Params) (*ClientTracerMiddleware, error) {
	return NewClientTracerMiddleware(p.Config, p.Tracer.Provider(), p.Tracer.Propagator())
}

// NewServerChain returns a chain holding only the tracer middleware.
func NewServerChain(mw *TracerMiddleware) *Chain {
	return NewChain().Add(ChainMiddlewareName, mw)
}

// RegisterSidekiqLifecycle logs the effective configuration on start.
func RegisterSidekiqLifecycle(lc fx.Lifecycle, mw *TracerMiddleware, logger Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("sidekiq tracing installed", nil, map[string]interface{}{
				"span_naming":         string(mw.cfg.SpanNaming),
				"propagation_style":   string(mw.cfg.PropagationStyle),
				"peer_service":        mw.cfg.PeerService,
				"default_max_retries": mw.cfg.MaxRetries(),
			})
			return nil
		},
	})
}
