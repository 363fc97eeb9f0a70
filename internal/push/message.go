package push

import (
	"encoding/json"
	"time"
)

// Message types delivered to connections.
const (
	TypeMessage  = "message"
	TypePresence = "presence"
)

// Presence events.
const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
)

// Message is a unit of delivery. Data is opaque to the manager and shared
// by every recipient, so it must not be mutated after publishing.
type Message struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// NewMessage builds a TypeMessage for channel carrying data.
func NewMessage(channel string, data json.RawMessage) Message {
	return Message{Type: TypeMessage, Channel: channel, Data: data}
}

// PresenceNotice is the payload of a TypePresence message.
type PresenceNotice struct {
	UserID string `json:"uid"`
	Event  string `json:"event"`
}

func presenceMessage(userID, event string) Message {
	//nolint:errcheck // PresenceNotice contains only strings; Marshal cannot fail
	data, _ := json.Marshal(PresenceNotice{UserID: userID, Event: event})
	return Message{Type: TypePresence, Data: data}
}

// PublishEvent describes a completed publish, delivered to Observers.
type PublishEvent struct {
	Message   Message
	Broadcast bool
	Sent      int
	At        time.Time
}

// PresenceEvent describes a user going online or offline, delivered to Observers.
type PresenceEvent struct {
	UserID   string
	Event    string
	Watchers int
	At       time.Time
}

// Observer receives notifications after publishes and presence transitions.
//
// Observers are called synchronously on the caller's goroutine after
// delivery has finished and all registry locks are released.
// PresenceChanged runs while presence announcements are serialised, so it
// must not call Register, Unregister, Kick or Logout. Implementations must
// return quickly; queue work elsewhere if it can block.
type Observer interface {
	MessagePublished(ev PublishEvent)
	PresenceChanged(ev PresenceEvent)
}
