package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Aleph-Alpha/jobtrace/pkg/observability"
)

var (
	jobLabels      = []string{"component", "operation", "queue", "job_class", "status"}
	durationLabels = []string{"component", "operation", "queue"}
	retryLabels    = []string{"component", "queue", "job_class"}
)

// JobObserver turns finished job operations into Prometheus metrics.
type JobObserver struct {
	jobs      *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	exhausted *prometheus.CounterVec
}

var _ observability.Observer = (*JobObserver)(nil)

// NewJobObserver registers the job metrics with registerer.
func NewJobObserver(registerer prometheus.Registerer, namespace string) (*JobObserver, error) {
	o := &JobObserver{
		jobs: createCounterVec(namespace, "jobs_total",
			"Job operations by outcome.", jobLabels),
		duration: createHistogramVec(namespace, "job_duration_seconds",
			"Wall time of job operations.", durationLabels,
			prometheus.ExponentialBuckets(0.005, 2, 14)),
		exhausted: createCounterVec(namespace, "job_retries_exhausted_total",
			"Failed jobs that used their last retry.", retryLabels),
	}

	for _, c := range []prometheus.Collector{o.jobs, o.duration, o.exhausted} {
		if err := registerer.Register(c); err != nil {
			return nil, fmt.Errorf("register job metrics: %w", err)
		}
	}
	return o, nil
}

// NewJobObserverFromMetrics registers the job metrics on m.
func NewJobObserverFromMetrics(m *Metrics) (*JobObserver, error) {
	return NewJobObserver(m.Registerer, m.namespace)
}

func (o *JobObserver) ObserveOperation(ctx observability.OperationContext) {
	o.jobs.WithLabelValues(ctx.Component, ctx.Operation, ctx.Resource, ctx.SubResource, statusLabel(ctx.Error)).Inc()
	o.duration.WithLabelValues(ctx.Component, ctx.Operation, ctx.Resource).Observe(ctx.Duration.Seconds())

	if ctx.Error == nil {
		return
	}
	if exhausted, _ := ctx.Metadata["retries_exhausted"].(bool); exhausted {
		o.exhausted.WithLabelValues(ctx.Component, ctx.Resource, ctx.SubResource).Inc()
	}
}
