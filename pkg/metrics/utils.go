package metrics

import "github.com/prometheus/client_golang/prometheus"

// createCounterVec defines a new CounterVec under namespace.
func createCounterVec(namespace, name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// createHistogramVec defines a new HistogramVec under namespace.
func createHistogramVec(namespace, name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		},
		labels,
	)
}

// statusLabel maps an operation error to the "status" label value.
func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
