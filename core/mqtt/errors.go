package mqtt

import "errors"

var (
	// ErrNotConnected is returned when the broker connection is down.
	ErrNotConnected = errors.New("mqtt: not connected")
	// ErrAckTimeout is returned when a crew does not acknowledge an order
	// in time.
	ErrAckTimeout = errors.New("mqtt: timeout waiting for ack")
)
