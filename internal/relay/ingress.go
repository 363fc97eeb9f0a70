package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/pushgate/internal/audit"
	"github.com/nerrad567/pushgate/internal/infrastructure/mqtt"
	"github.com/nerrad567/pushgate/internal/push"
)

// auditSource marks audit entries created from bus messages.
const auditSource = "mqtt"

// Subscriber registers topic handlers on the message bus.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Dispatcher is the part of the push manager the ingress drives.
type Dispatcher interface {
	PublishToChannel(channelName string, msg push.Message) (int, error)
	Broadcast(msg push.Message) int
}

// publishRequest is the payload of a publish request topic.
//
//	{"type": "message", "data": {"title": "hello"}}
type publishRequest struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Ingress turns publish requests received from the bus into deliveries.
type Ingress struct {
	manager Dispatcher
	topics  mqtt.Topics
	audit   *audit.Recorder
	logger  Logger

	mu     sync.RWMutex
	sub    Subscriber
	closed bool
}

// NewIngress creates an Ingress. recorder and logger may be nil.
func NewIngress(manager Dispatcher, topics mqtt.Topics, recorder *audit.Recorder, logger Logger) *Ingress {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Ingress{manager: manager, topics: topics, audit: recorder, logger: logger}
}

func (in *Ingress) patterns() []string {
	return []string{in.topics.AllPublishChannels(), in.topics.PublishBroadcast()}
}

// Subscribe registers the ingress for channel and broadcast publish topics.
func (in *Ingress) Subscribe(sub Subscriber, qos byte) error {
	for _, topic := range in.patterns() {
		if err := sub.Subscribe(topic, qos, in.HandleMessage); err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}
	in.mu.Lock()
	in.sub = sub
	in.mu.Unlock()
	return nil
}

// Close unsubscribes from the publish topics, waits for requests being
// handled and rejects later ones. It must run before the audit recorder
// stops.
func (in *Ingress) Close() error {
	in.mu.Lock()
	sub := in.sub
	in.sub = nil
	in.closed = true
	in.mu.Unlock()

	if sub == nil {
		return nil
	}
	var errs []error
	for _, topic := range in.patterns() {
		if err := sub.Unsubscribe(topic); err != nil {
			errs = append(errs, fmt.Errorf("unsubscribing from %s: %w", topic, err))
		}
	}
	return errors.Join(errs...)
}

// HandleMessage processes one publish request. It is an mqtt.MessageHandler;
// returned errors are logged by the client.
func (in *Ingress) HandleMessage(topic string, payload []byte) error {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if in.closed {
		return fmt.Errorf("%w: %s", ErrIngressClosed, topic)
	}

	channel, broadcast, ok := in.topics.ParsePublish(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	msg, err := decodePublish(payload)
	if err != nil {
		return err
	}

	if broadcast {
		sent := in.manager.Broadcast(msg)
		in.record("broadcast", audit.EntitySystem, "", sent)
		in.logger.Debug("bus broadcast delivered", "sent", sent)
		return nil
	}

	sent, err := in.manager.PublishToChannel(channel, msg)
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", channel, err)
	}
	in.record("publish", audit.EntityChannel, channel, sent)
	in.logger.Debug("bus publish delivered", "channel", channel, "sent", sent)
	return nil
}

func (in *Ingress) record(action, entityType, entityID string, sent int) {
	in.audit.Record(audit.Entry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Source:     auditSource,
		Details:    map[string]any{"sent": sent},
	})
}

func decodePublish(payload []byte) (push.Message, error) {
	var req publishRequest
	dec := json.NewDecoder(bytes.NewReader(payload))
	if err := dec.Decode(&req); err != nil {
		return push.Message{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err) //nolint:errorlint // decode detail only
	}
	if len(req.Data) == 0 || bytes.Equal(req.Data, []byte("null")) {
		return push.Message{}, fmt.Errorf("%w: missing data", ErrInvalidPayload)
	}
	if req.Type == "" {
		req.Type = push.TypeMessage
	}
	return push.Message{Type: req.Type, Data: req.Data}, nil
}
