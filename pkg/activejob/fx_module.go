package activejob

import (
	"go.uber.org/fx"

	"github.com/Aleph-Alpha/jobtrace/pkg/observability"
	"github.com/Aleph-Alpha/jobtrace/pkg/tracer"
)

// FXModule provides *Subscriber. The graph must supply *tracer.Tracer and
// Logger; an observability.Observer and a Mapper are picked up when present.
//
// Usage:
//
//	app := fx.New(
//	    logger.FXModule,
//	    tracer.FXModule,
//	    metrics.FXModule,
//	    fx.Provide(func(l *logger.Logger) activejob.Logger { return l }),
//	    activejob.FXModule,
//	)
var FXModule = fx.Module("activejob",
	fx.Provide(NewSubscriberFromParams),
)

// Params are the dependencies of the subscriber in an fx graph.
type Params struct {
	fx.In

	Tracer   *tracer.Tracer
	Logger   Logger
	Observer observability.Observer `optional:"true"`
	Mapper   Mapper                 `optional:"true"`
}

// NewSubscriberFromParams builds the subscriber from the graph.
func NewSubscriberFromParams(p Params) *Subscriber {
	var opts []SubscriberOption
	if p.Observer != nil {
		opts = append(opts, WithObserver(p.Observer))
	}
	if p.Mapper != nil {
		opts = append(opts, WithMapper(p.Mapper))
	}
	return NewSubscriber(p.Tracer.Provider(), p.Logger, opts...)
}
