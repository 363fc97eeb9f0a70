// Package relay connects the push manager to the message bus and the
// time-series store.
//
// Outbound, a Relay observes the manager and forwards every completed
// publish and every presence transition to MQTT and InfluxDB. Observer
// callbacks only enqueue; a single goroutine started with Run does the I/O,
// so a slow broker never holds up delivery to connections.
//
// Inbound, an Ingress subscribes to the publish request topics and turns
// each message into a channel publish or a broadcast, so backends can push
// without going through the HTTP API.
//
// Topic layout:
//
//	pushgate/events/published        <- one record per publish (out)
//	pushgate/events/presence/{uid}   <- online/offline transitions (out)
//	pushgate/publish/channel/{name}  -> publish to a channel (in)
//	pushgate/publish/broadcast       -> publish to everyone (in)
package relay
