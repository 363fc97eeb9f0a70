package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementDelivery = "push_delivery"
	MeasurementPresence = "push_presence"
	MeasurementStats    = "push_stats"
)

// Delivery describes one completed publish.
type Delivery struct {
	Channel   string
	Broadcast bool
	Sent      int
	At        time.Time
}

// Snapshot is a point-in-time count of manager state.
type Snapshot struct {
	Connections     int
	Users           int
	Channels        int
	ContentChannels int
	PresenceEntries int
	At              time.Time
}

// WriteDelivery records a publish and how many connections accepted it.
// Broadcasts are tagged kind=broadcast; channel publishes carry the channel
// name. The write is non-blocking.
func (c *Client) WriteDelivery(d Delivery) {
	c.writePoint(deliveryPoint(c.instance, d))
}

// WritePresence records a user going online or offline. The user id is a
// field, not a tag, to keep series cardinality bounded.
func (c *Client) WritePresence(userID, event string, watchers int, at time.Time) {
	c.writePoint(write.NewPoint(
		MeasurementPresence,
		map[string]string{"instance": c.instance, "event": event},
		map[string]interface{}{"uid": userID, "watchers": watchers},
		at,
	))
}

// WriteStats records a manager stats snapshot.
func (c *Client) WriteStats(s Snapshot) {
	c.writePoint(statsPoint(c.instance, s))
}

func (c *Client) writePoint(p *write.Point) {
	if !c.IsConnected() || c.writer == nil {
		return
	}
	c.writer.WritePoint(p)
}

func deliveryPoint(instance string, d Delivery) *write.Point {
	tags := map[string]string{"instance": instance, "kind": "channel"}
	if d.Broadcast {
		tags["kind"] = "broadcast"
	} else {
		tags["channel"] = d.Channel
	}
	return write.NewPoint(
		MeasurementDelivery,
		tags,
		map[string]interface{}{"sent": d.Sent},
		d.At,
	)
}

func statsPoint(instance string, s Snapshot) *write.Point {
	return write.NewPoint(
		MeasurementStats,
		map[string]string{"instance": instance},
		map[string]interface{}{
			"connections":      s.Connections,
			"users":            s.Users,
			"channels":         s.Channels,
			"content_channels": s.ContentChannels,
			"presence_entries": s.PresenceEntries,
		},
		s.At,
	)
}
