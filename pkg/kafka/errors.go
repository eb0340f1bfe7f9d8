package kafka

import "errors"

var (
	ErrNoBrokers = errors.New("kafka: no brokers configured")
	ErrNoTopic   = errors.New("kafka: no topic configured")

	// ErrUnsupportedSASLMechanism is returned for an unknown SASL mechanism.
	ErrUnsupportedSASLMechanism = errors.New("kafka: unsupported SASL mechanism")
)
