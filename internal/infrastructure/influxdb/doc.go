// Package influxdb provides InfluxDB connectivity for Pushgate telemetry.
//
// It wraps the official influxdb-client-go v2 library and records:
//   - push_delivery: one point per publish with the delivered count
//   - push_presence: user online/offline transitions
//   - push_stats: periodic connection/channel/presence counts
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB, cfg.Server.ID)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//
//	client.WriteDelivery(influxdb.Delivery{Channel: "news", Sent: 12, At: time.Now()})
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval. Async write errors are reported through SetOnError.
package influxdb
