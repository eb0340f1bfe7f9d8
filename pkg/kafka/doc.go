// Package kafka carries Sidekiq-format jobs over Kafka with tracing.
//
// Producer runs sidekiq.ClientTracerMiddleware around each write, so the
// producer span's context travels in the JSON record. Processor fetches
// records, decodes them with MessageFromKafka and runs them through the
// server middleware chain, committing each offset once the job returns.
//
// HeaderCarrier exposes record headers to OpenTelemetry propagators for
// producers that put trace context there instead of in the payload.
package kafka
