package rabbit

import (
	"slices"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/propagation"
)

// TableCarrier adapts AMQP message headers to propagation.TextMapCarrier.
// Header values that are neither strings nor byte slices are invisible to
// the propagator.
type TableCarrier amqp.Table

var _ propagation.TextMapCarrier = TableCarrier(nil)

func (c TableCarrier) Get(key string) string {
	switch v := c[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func (c TableCarrier) Set(key, value string) {
	c[key] = value
}

func (c TableCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		if c.Get(k) != "" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}
