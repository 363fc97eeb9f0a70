package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is the root of every Pushgate topic when none is
// configured.
const DefaultTopicPrefix = "pushgate"

// Topics provides builders for Pushgate MQTT topics under a common prefix.
// Using these helpers keeps topic naming consistent between the relay and
// external subscribers.
//
//	topics := mqtt.Topics{Prefix: "pushgate"}
//	topics.PresenceEvent("42")
//	// Returns: "pushgate/events/presence/42"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return strings.TrimSuffix(t.Prefix, "/")
}

// =============================================================================
// Event Topics (published by Pushgate)
// =============================================================================

// PublishedEvent returns the topic carrying one record per completed publish.
//
// Example: pushgate/events/published
func (t Topics) PublishedEvent() string {
	return fmt.Sprintf("%s/events/published", t.prefix())
}

// PresenceEvent returns the topic for a user's online/offline transitions.
//
// Example: pushgate/events/presence/42
func (t Topics) PresenceEvent(userID string) string {
	return fmt.Sprintf("%s/events/presence/%s", t.prefix(), userID)
}

// =============================================================================
// Publish Request Topics (consumed by Pushgate)
// =============================================================================

// PublishChannel returns the topic backends publish to for delivery to a
// channel's members.
//
// Example: pushgate/publish/channel/news
func (t Topics) PublishChannel(channel string) string {
	return fmt.Sprintf("%s/publish/channel/%s", t.prefix(), channel)
}

// PublishBroadcast returns the topic backends publish to for delivery to
// every connection.
//
// Example: pushgate/publish/broadcast
func (t Topics) PublishBroadcast() string {
	return fmt.Sprintf("%s/publish/broadcast", t.prefix())
}

// AllPublishChannels returns a pattern matching every channel publish topic.
//
// Pattern: pushgate/publish/channel/+
func (t Topics) AllPublishChannels() string {
	return fmt.Sprintf("%s/publish/channel/+", t.prefix())
}

// ParsePublish classifies a received publish request topic. It returns the
// channel name for channel topics and broadcast=true for the broadcast
// topic; ok is false for anything else.
func (t Topics) ParsePublish(topic string) (channel string, broadcast, ok bool) {
	if topic == t.PublishBroadcast() {
		return "", true, true
	}
	rest, found := strings.CutPrefix(topic, t.prefix()+"/publish/channel/")
	if !found || rest == "" || strings.Contains(rest, "/") {
		return "", false, false
	}
	return rest, false, true
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the retained online/offline status topic of this
// Pushgate instance.
//
// Example: pushgate/system/status
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", t.prefix())
}

// AllTopics returns a pattern matching all Pushgate topics.
//
// Pattern: pushgate/#
func (t Topics) AllTopics() string {
	return t.prefix() + "/#"
}
