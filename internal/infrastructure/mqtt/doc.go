// Package mqtt provides MQTT client connectivity for Pushgate.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Event publishing with QoS guarantees
//   - Subscriptions that are restored after reconnect
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// MQTT is an optional side channel. Pushgate relays publish and presence
// events out to the broker so other services can follow them, and accepts
// publish requests from backends that prefer the bus to the HTTP API.
//
//	Backend ─HTTP/MQTT─▶ Pushgate ─WebSocket─▶ Clients
//	                        │
//	                        └─MQTT events─▶ Subscribers
//
// # Topics
//
//	{prefix}/events/published          one record per completed publish
//	{prefix}/events/presence/{uid}     online/offline transitions
//	{prefix}/publish/channel/{name}    publish request for a channel
//	{prefix}/publish/broadcast         publish request for everyone
//	{prefix}/system/status             retained instance status (LWT)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(client.Topics().PublishedEvent(), event)
package mqtt
