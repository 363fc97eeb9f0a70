package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: telemetry disabled")

	// ErrConnectionFailed is returned by Connect when the server does not
	// answer the startup ping or reports itself unhealthy.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected is returned by HealthCheck after Close or before a
	// successful Connect. Point writes never fail synchronously; write
	// errors arrive on the SetOnError callback.
	ErrNotConnected = errors.New("influxdb: not connected")
)
