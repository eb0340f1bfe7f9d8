package metrics

import "errors"

var (
	// ErrAlreadyStarted is returned by Start when the server is running.
	ErrAlreadyStarted = errors.New("metrics: server already started")

	// ErrNotStarted is returned by Addr before Start.
	ErrNotStarted = errors.New("metrics: server not started")
)
