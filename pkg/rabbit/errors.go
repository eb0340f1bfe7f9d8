package rabbit

import "errors"

var (
	// ErrNotConnected is returned when the client has no open channel.
	ErrNotConnected = errors.New("rabbit: not connected")

	// ErrDeliveriesClosed is returned by Consume when the broker closes the
	// delivery channel.
	ErrDeliveriesClosed = errors.New("rabbit: delivery channel closed")
)
