// Package tracer sets up the OpenTelemetry tracer provider and propagator the
// job instrumentations report to, and holds the span helpers they share.
//
// Core Features:
//   - TracerProvider with optional OTLP/HTTP export and ratio sampling
//   - W3C TraceContext + Baggage propagation for job messages
//   - Failure annotation (RecordFailure) shared by every middleware
//   - InSpan: scoped span with guaranteed End on error and panic
//
// Basic Usage:
//
//	t := tracer.NewClient(tracer.Config{
//		ServiceName:  "mailer-worker",
//		AppEnv:       "production",
//		EnableExport: true,
//	}, log)
//
//	mw, err := sidekiq.NewTracerMiddleware(cfg, t.Provider(), t.Propagator(), log)
//
// Passing trace context by hand:
//
//	// producer
//	headers := t.GetCarrier(ctx)
//
//	// consumer
//	ctx = t.SetCarrierOnContext(ctx, headers)
//
// Failure annotation:
//
// RecordFailure records an exception event with exception.type and
// exception.message and sets the span status to Error with the description
// "Unhandled exception of type: <T>", where <T> is the Go type of the error
// or panic value (for example "*errors.errorString").
//
// FX Module Integration:
//
//	app := fx.New(
//		logger.FXModule,
//		tracer.FXModule,
//	)
//
// Thread Safety:
//
// All methods on Tracer are safe for concurrent use.
package tracer
