package sidekiq

import (
	"fmt"
	"strings"
)

// DefaultMaxRetryAttempts is the retry budget of a job whose "retry" flag is
// true when Config.DefaultMaxRetries is not set.
const DefaultMaxRetryAttempts = 25

// SpanNaming selects how job spans are named.
type SpanNaming string

const (
	// SpanNamingQueue names spans "<queue> process". It is the default.
	SpanNamingQueue SpanNaming = "queue"

	// SpanNamingJobClass names spans "<job class> process".
	SpanNamingJobClass SpanNaming = "job_class"
)

// PropagationStyle selects how a job span relates to the trace context that
// travelled with the job message.
type PropagationStyle string

const (
	// PropagationLink starts a new trace per job and links it to the
	// enqueuing span. It is the default.
	PropagationLink PropagationStyle = "link"

	// PropagationChild continues the enqueuing trace.
	PropagationChild PropagationStyle = "child"

	// PropagationNone starts a new trace per job with no reference to the
	// enqueuing span.
	PropagationNone PropagationStyle = "none"
)

// Config holds the instrumentation options. It is copied into the
// middleware at construction and never changed afterwards.
type Config struct {
	// PeerService, when set, is recorded as peer.service on every span.
	PeerService string `yaml:"peer_service" envconfig:"SIDEKIQ_TRACING_PEER_SERVICE"`

	// SpanNaming is "queue" (default) or "job_class".
	SpanNaming SpanNaming `yaml:"span_naming" envconfig:"SIDEKIQ_TRACING_SPAN_NAMING"`

	// PropagationStyle is "link" (default), "child" or "none".
	PropagationStyle PropagationStyle `yaml:"propagation_style" envconfig:"SIDEKIQ_TRACING_PROPAGATION_STYLE"`

	// DefaultMaxRetries is the host's global retry budget, used when a job's
	// "retry" flag is true. Nil means DefaultMaxRetryAttempts; zero is a
	// real budget of no retries.
	DefaultMaxRetries *int `yaml:"default_max_retries" envconfig:"SIDEKIQ_TRACING_DEFAULT_MAX_RETRIES"`
}

// Logger is the logging surface the middlewares need.
//
//go:generate mockgen -source=configs.go -destination=mock_logger.go -package=sidekiq
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	Fatal(msg string, err error, fields ...map[string]interface{})
}

// normalize fills defaults and accepts the Ruby symbol spelling
// (":job_class", ":child") used in existing Sidekiq configuration files.
func (c Config) normalize() Config {
	c.SpanNaming = SpanNaming(strings.TrimPrefix(strings.ToLower(string(c.SpanNaming)), ":"))
	c.PropagationStyle = PropagationStyle(strings.TrimPrefix(strings.ToLower(string(c.PropagationStyle)), ":"))

	if c.SpanNaming == "" {
		c.SpanNaming = SpanNamingQueue
	}
	if c.PropagationStyle == "" {
		c.PropagationStyle = PropagationLink
	}
	if c.DefaultMaxRetries != nil {
		n := *c.DefaultMaxRetries
		c.DefaultMaxRetries = &n
	}
	return c
}

// MaxRetries is the global retry budget applied to jobs whose "retry" flag
// is true.
func (c Config) MaxRetries() int {
	if c.DefaultMaxRetries == nil {
		return DefaultMaxRetryAttempts
	}
	return *c.DefaultMaxRetries
}

// Validate reports unknown naming or propagation values.
func (c Config) Validate() error {
	n := c.normalize()

	switch n.SpanNaming {
	case SpanNamingQueue, SpanNamingJobClass:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSpanNaming, c.SpanNaming)
	}

	switch n.PropagationStyle {
	case PropagationLink, PropagationChild, PropagationNone:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPropagationStyle, c.PropagationStyle)
	}

	if n.DefaultMaxRetries != nil && *n.DefaultMaxRetries < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxRetries, *n.DefaultMaxRetries)
	}
	return nil
}
