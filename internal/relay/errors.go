package relay

import "errors"

// Sentinel errors for relay operations.
var (
	// ErrInvalidPayload is returned when a publish request is not a JSON
	// object with a data member.
	ErrInvalidPayload = errors.New("relay: invalid publish payload")

	// ErrUnknownTopic is returned for messages on topics the ingress does
	// not handle.
	ErrUnknownTopic = errors.New("relay: unknown topic")

	// ErrIngressClosed is returned for publish requests that arrive after
	// Close.
	ErrIngressClosed = errors.New("relay: ingress closed")
)
