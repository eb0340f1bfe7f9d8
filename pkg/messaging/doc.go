// Package messaging defines the span attribute keys shared by the job
// instrumentations and the Attributes set they build.
//
// Keys are plain strings rather than attribute.Key values so they can be
// used as map keys, compared in tests, and handed to logging fields without
// conversion. Attributes.KeyValues produces the OpenTelemetry form when a
// span is started:
//
//	attrs := messaging.Attributes{}
//	attrs.PutString(messaging.System, messaging.SystemSidekiq)
//	attrs.Put(messaging.RetriesCurrent, 2)
//
//	_, span := tracer.Start(ctx, "default process",
//		trace.WithAttributes(attrs.KeyValues()...))
package messaging
