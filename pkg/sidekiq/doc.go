// Package sidekiq instruments Sidekiq-format job processing with
// OpenTelemetry.
//
// The host job processor calls a ServerMiddleware around every execution
// attempt. TracerMiddleware is that middleware: it opens a consumer span for
// the job, records messaging, retry and latency attributes, extracts the
// trace context that travelled inside the job message, and closes the span
// on every exit path. ClientTracerMiddleware does the producing side and
// injects the context the server side extracts.
//
// The package schedules nothing, retries nothing and stores nothing; it only
// observes work the host runs.
//
// Basic Usage:
//
//	mw, err := sidekiq.NewTracerMiddleware(sidekiq.Config{}, t.Provider(), t.Propagator(), log)
//	if err != nil {
//		return err
//	}
//
//	chain := sidekiq.NewChain().Add("opentelemetry", mw)
//
//	// for every fetched job
//	msg, err := sidekiq.DecodeMessage(payload)
//	err = chain.Invoke(ctx, msg, "default", func(ctx context.Context) error {
//		return perform(ctx, msg)
//	})
//
// Span Attributes:
//
//   - messaging.system = "sidekiq"
//   - messaging.sidekiq.job_class: "wrapped" when present, else "class"
//   - messaging.message_id, messaging.destination
//   - messaging.destination_kind = "queue", messaging.operation = "process"
//   - com.joyful_programming.messaging.message.retries.{current,maximum,exhausted}
//   - com.joyful_programming.messaging.latency (ms since enqueued_at)
//   - peer.service when configured
//
// Events "created_at" and "enqueued_at" are added at the message's
// timestamps.
//
// Propagation Styles:
//
//   - link (default): a new trace per job, linked to the enqueuing span
//   - child: the job span continues the enqueuing trace
//   - none: a new trace per job with no reference back
//
// Failures:
//
// A handler error is recorded as an exception event, the span status is set
// to Error with "Unhandled exception of type: <T>", and the same error value
// is returned. A panic is treated the same way and re-raised. The
// instrumentation never changes what the caller of the chain observes.
//
// Configuration:
//
//	SIDEKIQ_TRACING_PEER_SERVICE=billing
//	SIDEKIQ_TRACING_SPAN_NAMING=job_class        # or queue
//	SIDEKIQ_TRACING_PROPAGATION_STYLE=child      # link, child, none
//	SIDEKIQ_TRACING_DEFAULT_MAX_RETRIES=25
//
// Thread Safety:
//
// Both middlewares are safe for concurrent use. A Chain must be fully built
// before it is shared.
package sidekiq
