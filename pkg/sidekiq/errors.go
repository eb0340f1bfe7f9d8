package sidekiq

import "errors"

// Configuration errors returned by Config.Validate and the constructors.
// Job execution itself never fails because of the middleware: the handler's
// own error is returned unchanged.
var (
	ErrInvalidSpanNaming       = errors.New("invalid span naming")
	ErrInvalidPropagationStyle = errors.New("invalid propagation style")
	ErrInvalidMaxRetries       = errors.New("invalid default max retries")
)

// ErrInvalidMessage is returned by DecodeMessage for input that is not a JSON
// object.
var ErrInvalidMessage = errors.New("invalid job message")
