package mqtt

import "errors"

// Broker errors. Callers match them with errors.Is; the wrapped text
// carries the topic or pattern involved.
var (
	// ErrNotConnected is returned while the broker connection is down.
	// The relay drops the event; the ingress has nothing to receive.
	ErrNotConnected = errors.New("mqtt: not connected to broker")

	// ErrConnectionFailed is returned by Connect when the broker does not
	// accept the first connection in time.
	ErrConnectionFailed = errors.New("mqtt: broker connection failed")

	// ErrPublishFailed wraps encoding, size and acknowledgement failures of
	// an outgoing event.
	ErrPublishFailed = errors.New("mqtt: event publish failed")

	// ErrSubscribeFailed wraps a rejected publish request subscription.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrUnsubscribeFailed wraps a rejected unsubscribe at shutdown.
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS is returned for a QoS above 2.
	ErrInvalidQoS = errors.New("mqtt: qos must be 0, 1 or 2")

	// ErrInvalidTopic is returned for an empty topic or pattern.
	ErrInvalidTopic = errors.New("mqtt: empty topic")
)
