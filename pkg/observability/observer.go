// Package observability defines the hook instrumented components use to
// report finished operations to metrics or other sinks without depending on
// a particular backend.
package observability

import "time"

// OperationContext describes one finished operation.
type OperationContext struct {
	// Component is the reporting package, e.g. "sidekiq" or "active_job".
	Component string

	// Operation is what was done, e.g. "process", "publish" or "perform".
	Operation string

	// Resource is the primary target, e.g. the queue name.
	Resource string

	// SubResource narrows Resource, e.g. the job class.
	SubResource string

	Duration time.Duration

	// Error is the error the operation ended with, nil on success.
	Error error

	Size int64

	Metadata map[string]interface{}
}

// Observer receives finished operations. Implementations must be safe for
// concurrent use; jobs run on many worker goroutines at once.
type Observer interface {
	ObserveOperation(ctx OperationContext)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx OperationContext)

func (f ObserverFunc) ObserveOperation(ctx OperationContext) { f(ctx) }

// Multi fans an operation out to every non-nil observer in order.
func Multi(observers ...Observer) Observer {
	filtered := make([]Observer, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	return multiObserver(filtered)
}

type multiObserver []Observer

func (m multiObserver) ObserveOperation(ctx OperationContext) {
	for _, o := range m {
		o.ObserveOperation(ctx)
	}
}
