package messaging

import (
	"fmt"
	"maps"
	"reflect"
	"slices"

	"go.opentelemetry.io/otel/attribute"
)

// Attributes is a set of span attributes keyed by semantic-convention name.
// It never holds absent values: Put drops nil and nil pointers, so a key is
// either present with a concrete scalar or missing altogether.
//
// Attributes is built fresh for every event and is not safe for concurrent
// mutation.
type Attributes map[string]any

// Put stores value under key. Nil values and nil pointers are skipped, and
// non-nil pointers are dereferenced. It returns the receiver for chaining.
func (a Attributes) Put(key string, value any) Attributes {
	if v, ok := present(value); ok {
		a[key] = v
	}
	return a
}

// PutString stores value under key unless it is empty. Use it for Go string
// fields where the zero value stands for "not set"; Put keeps empty strings.
func (a Attributes) PutString(key, value string) Attributes {
	if value != "" {
		a[key] = value
	}
	return a
}

// Merge copies every entry of other into a, overwriting existing keys.
func (a Attributes) Merge(other Attributes) Attributes {
	for k, v := range other {
		a.Put(k, v)
	}
	return a
}

// Has reports whether key is present.
func (a Attributes) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// KeyValues converts the set into OpenTelemetry key-values, sorted by key so
// the output is stable across calls.
//
// Supported value types:
//   - string, bool
//   - int, int64, int32
//   - float64, float32
//   - []string
//
// Anything else is stored as its fmt.Sprint form.
func (a Attributes) KeyValues() []attribute.KeyValue {
	if len(a) == 0 {
		return nil
	}

	out := make([]attribute.KeyValue, 0, len(a))
	for _, k := range slices.Sorted(maps.Keys(a)) {
		out = append(out, keyValue(k, a[k]))
	}
	return out
}

func keyValue(k string, v any) attribute.KeyValue {
	switch val := v.(type) {
	case string:
		return attribute.String(k, val)
	case bool:
		return attribute.Bool(k, val)
	case int:
		return attribute.Int(k, val)
	case int64:
		return attribute.Int64(k, val)
	case int32:
		return attribute.Int64(k, int64(val))
	case float64:
		return attribute.Float64(k, val)
	case float32:
		return attribute.Float64(k, float64(val))
	case []string:
		return attribute.StringSlice(k, val)
	default:
		return attribute.String(k, fmt.Sprint(val))
	}
}

func present(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer {
		return v, true
	}
	if rv.IsNil() {
		return nil, false
	}
	return rv.Elem().Interface(), true
}
