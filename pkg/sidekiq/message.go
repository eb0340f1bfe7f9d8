package sidekiq

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// Message keys read by the middlewares.
const (
	KeyRetry      = "retry"
	KeyRetryCount = "retry_count"
	KeyWrapped    = "wrapped"
	KeyClass      = "class"
	KeyJID        = "jid"
	KeyQueue      = "queue"
	KeyEnqueuedAt = "enqueued_at"
	KeyCreatedAt  = "created_at"
)

// Timestamps above this are taken as epoch milliseconds (Sidekiq 8 format)
// rather than epoch seconds.
const millisecondThreshold = 1e11

// Message is a job message as decoded from its JSON form. The host owns it;
// the server middleware only reads it and the client middleware adds
// propagation keys.
type Message map[string]any

// DecodeMessage parses a JSON job. Numbers are kept as json.Number so large
// integers survive.
func DecodeMessage(data []byte) (Message, error) {
	var msg Message
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrInvalidMessage)
	}
	return msg, nil
}

// String returns msg[key] when it is a non-empty string.
func (m Message) String(key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok && s != ""
}

// Number returns msg[key] as a float64 when it holds a number or a numeric
// string.
func (m Message) Number(key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// Time returns msg[key] as a time. Values are epoch seconds, or epoch
// milliseconds when large enough to be unambiguous.
func (m Message) Time(key string) (time.Time, bool) {
	f, ok := m.Number(key)
	if !ok {
		return time.Time{}, false
	}
	if f > millisecondThreshold {
		f /= 1000
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
}

// JobClass is the class recorded for the job: the "wrapped" class when the
// job was enqueued through an adapter, otherwise "class". A wrapped value
// that is present but empty is kept; only a missing or null one falls back.
func (m Message) JobClass() string {
	s, _ := m.jobClass()
	return s
}

// jobClass reports whether the message names a class at all.
func (m Message) jobClass() (string, bool) {
	if w, ok := m[KeyWrapped]; ok && w != nil {
		return fmt.Sprint(w), true
	}
	s, ok := m[KeyClass].(string)
	return s, ok
}

// Queue returns the queue the message names, or fallback when it names none.
func (m Message) Queue(fallback string) string {
	if q, ok := m.String(KeyQueue); ok {
		return q
	}
	return fallback
}

// MessageCarrier adapts a Message to propagation.TextMapCarrier. Only string
// values are visible to the propagator.
type MessageCarrier Message

// Get returns the string stored under key.
func (c MessageCarrier) Get(key string) string {
	s, _ := c[key].(string)
	return s
}

// Set stores value under key.
func (c MessageCarrier) Set(key, value string) {
	c[key] = value
}

// Keys lists the keys holding strings, sorted.
func (c MessageCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k, v := range c {
		if _, ok := v.(string); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
