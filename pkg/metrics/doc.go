// Package metrics exposes job instrumentation as Prometheus metrics.
//
// JobObserver implements observability.Observer. Pass it to the sidekiq
// middleware or the activejob subscriber with WithObserver, or let FXModule
// wire it. It records:
//
//	<namespace>_jobs_total{component,operation,queue,job_class,status}
//	<namespace>_job_duration_seconds{component,operation,queue}
//	<namespace>_job_retries_exhausted_total{component,queue,job_class}
//
// Metrics serves the registry on /metrics:
//
//	m := metrics.NewMetrics(metrics.Config{Address: ":9090", ServiceName: "billing-workers"})
//	obs, err := metrics.NewJobObserverFromMetrics(m)
//	if err != nil {
//	    return err
//	}
//	if err := m.Start(ctx); err != nil {
//	    return err
//	}
//	defer m.Stop(context.Background())
package metrics
