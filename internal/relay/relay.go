package relay

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/nerrad567/pushgate/internal/infrastructure/influxdb"
	"github.com/nerrad567/pushgate/internal/infrastructure/mqtt"
	"github.com/nerrad567/pushgate/internal/push"
)

const defaultQueueSize = 1024

// Publisher publishes JSON documents to the message bus.
type Publisher interface {
	PublishJSON(topic string, v any) error
}

// Telemetry records delivery and presence measurements.
type Telemetry interface {
	WriteDelivery(d influxdb.Delivery)
	WritePresence(userID, event string, watchers int, at time.Time)
	WriteStats(s influxdb.Snapshot)
}

// Logger is the logging surface the relay needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Options configures a Relay. Publisher and Telemetry are optional; a nil
// sink is skipped.
type Options struct {
	Publisher Publisher
	Telemetry Telemetry
	Topics    mqtt.Topics
	Logger    Logger
	QueueSize int
}

// PublishedRecord is the JSON document sent to the published event topic.
type PublishedRecord struct {
	Type      string          `json:"type"`
	Channel   string          `json:"channel,omitempty"`
	Broadcast bool            `json:"broadcast"`
	Sent      int             `json:"sent"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// PresenceRecord is the JSON document sent to a user's presence topic.
type PresenceRecord struct {
	UserID    string    `json:"uid"`
	Event     string    `json:"event"`
	Watchers  int       `json:"watchers"`
	Timestamp time.Time `json:"timestamp"`
}

// event is one queued observer notification. Exactly one field is set.
type event struct {
	publish  *push.PublishEvent
	presence *push.PresenceEvent
}

// Relay implements push.Observer. Notifications are queued and forwarded by
// Run; when the queue is full they are dropped and counted.
//
// Thread Safety:
//   - MessagePublished and PresenceChanged are safe for concurrent use.
//   - Run must be called from exactly one goroutine.
type Relay struct {
	publisher Publisher
	telemetry Telemetry
	topics    mqtt.Topics
	logger    Logger
	queue     chan event
	dropped   atomic.Uint64
}

// New creates a Relay.
func New(opts Options) *Relay {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	return &Relay{
		publisher: opts.Publisher,
		telemetry: opts.Telemetry,
		topics:    opts.Topics,
		logger:    opts.Logger,
		queue:     make(chan event, opts.QueueSize),
	}
}

// MessagePublished implements push.Observer.
func (r *Relay) MessagePublished(ev push.PublishEvent) {
	r.enqueue(event{publish: &ev})
}

// PresenceChanged implements push.Observer.
func (r *Relay) PresenceChanged(ev push.PresenceEvent) {
	r.enqueue(event{presence: &ev})
}

func (r *Relay) enqueue(ev event) {
	select {
	case r.queue <- ev:
	default:
		if r.dropped.Add(1) == 1 {
			r.logger.Warn("relay queue full, dropping events")
		}
	}
}

// Dropped returns how many notifications were discarded because the queue
// was full.
func (r *Relay) Dropped() uint64 {
	return r.dropped.Load()
}

// Run forwards queued notifications until ctx is cancelled, then forwards
// whatever is still queued and returns.
func (r *Relay) Run(ctx context.Context) {
	for {
		select {
		case ev := <-r.queue:
			r.forward(ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-r.queue:
					r.forward(ev)
				default:
					return
				}
			}
		}
	}
}

func (r *Relay) forward(ev event) {
	switch {
	case ev.publish != nil:
		r.forwardPublish(*ev.publish)
	case ev.presence != nil:
		r.forwardPresence(*ev.presence)
	}
}

func (r *Relay) forwardPublish(ev push.PublishEvent) {
	if r.telemetry != nil {
		r.telemetry.WriteDelivery(influxdb.Delivery{
			Channel:   ev.Message.Channel,
			Broadcast: ev.Broadcast,
			Sent:      ev.Sent,
			At:        ev.At,
		})
	}
	if r.publisher == nil {
		return
	}
	record := PublishedRecord{
		Type:      ev.Message.Type,
		Channel:   ev.Message.Channel,
		Broadcast: ev.Broadcast,
		Sent:      ev.Sent,
		Data:      ev.Message.Data,
		Timestamp: ev.At,
	}
	if err := r.publisher.PublishJSON(r.topics.PublishedEvent(), record); err != nil {
		r.logger.Warn("failed to relay publish event",
			"channel", ev.Message.Channel,
			"error", err,
		)
	}
}

func (r *Relay) forwardPresence(ev push.PresenceEvent) {
	if r.telemetry != nil {
		r.telemetry.WritePresence(ev.UserID, ev.Event, ev.Watchers, ev.At)
	}
	if r.publisher == nil {
		return
	}
	record := PresenceRecord{
		UserID:    ev.UserID,
		Event:     ev.Event,
		Watchers:  ev.Watchers,
		Timestamp: ev.At,
	}
	if err := r.publisher.PublishJSON(r.topics.PresenceEvent(ev.UserID), record); err != nil {
		r.logger.Warn("failed to relay presence event",
			"uid", ev.UserID,
			"error", err,
		)
	}
}
