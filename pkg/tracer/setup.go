package tracer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// instrumentationName is the scope name spans from this module are created under.
const instrumentationName = "github.com/Aleph-Alpha/jobtrace"

// Logger is the logging surface the tracer needs.
//
//go:generate mockgen -source=setup.go -destination=mock_logger.go -package=tracer
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	Fatal(msg string, err error, fields ...map[string]interface{})
}

// Tracer owns the SDK TracerProvider and the text-map propagator the job
// middlewares use to extract and inject trace context. It is safe for
// concurrent use.
type Tracer struct {
	tracer     *trace.TracerProvider
	propagator propagation.TextMapPropagator
	logger     Logger
}

// NewClient builds a TracerProvider from cfg, installs it and a W3C
// TraceContext+Baggage propagator as the OpenTelemetry globals, and returns a
// Tracer wrapping both.
//
// If the exporter cannot be created the logger's Fatal is called.
//
// Example:
//
//	t := tracer.NewClient(tracer.Config{
//	    ServiceName:  "mailer-worker",
//	    AppEnv:       "production",
//	    EnableExport: true,
//	}, log)
//	defer t.Shutdown(context.Background())
func NewClient(cfg Config, logger Logger) *Tracer {
	var options []trace.TracerProviderOption

	if cfg.EnableExport {
		var clientOpts []otlptracehttp.Option
		if cfg.Endpoint != "" {
			clientOpts = append(clientOpts, otlptracehttp.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			clientOpts = append(clientOpts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptrace.New(context.Background(), otlptracehttp.NewClient(clientOpts...))
		if err != nil {
			logger.Fatal("cannot initiate tracer", err, nil)
			return nil
		}
		options = append(options, trace.WithBatcher(exporter))
	}

	options = append(options,
		trace.WithSampler(sampler(cfg.SampleRatio)),
		trace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.DeploymentEnvironment(cfg.AppEnv),
			attribute.String("environment", cfg.AppEnv),
		)),
	)

	tp := trace.NewTracerProvider(options...)
	prop := defaultPropagator()

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(prop)

	logger.Info("tracer initialised", nil, map[string]interface{}{
		"service_name":  cfg.ServiceName,
		"export":        cfg.EnableExport,
		"sample_ratio":  cfg.SampleRatio,
		"app_env":       cfg.AppEnv,
		"endpoint_host": cfg.Endpoint,
	})

	return &Tracer{tracer: tp, propagator: prop, logger: logger}
}

// NewClientWithProvider wraps an existing provider without touching the
// OpenTelemetry globals. A nil propagator means TraceContext+Baggage.
func NewClientWithProvider(tp *trace.TracerProvider, prop propagation.TextMapPropagator, logger Logger) *Tracer {
	if prop == nil {
		prop = defaultPropagator()
	}
	return &Tracer{tracer: tp, propagator: prop, logger: logger}
}

// Provider returns the tracer provider as the API interface.
func (t *Tracer) Provider() oteltrace.TracerProvider {
	return t.tracer
}

// Propagator returns the propagator used for job message carriers.
func (t *Tracer) Propagator() propagation.TextMapPropagator {
	return t.propagator
}

// Shutdown flushes pending spans and stops the provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.tracer == nil {
		return nil
	}
	return t.tracer.Shutdown(ctx)
}

func defaultPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
}

func sampler(ratio float64) trace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return trace.ParentBased(trace.AlwaysSample())
	}
	return trace.ParentBased(trace.TraceIDRatioBased(ratio))
}
