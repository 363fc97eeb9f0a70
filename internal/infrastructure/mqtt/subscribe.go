package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Subscribe routes messages matching pattern to handler.
//
// Pushgate subscribes to the publish request patterns, for example
// Topics.AllPublishChannels ("pushgate/publish/channel/+") and
// Topics.PublishBroadcast. The subscription is remembered and replayed
// after every reconnect, so callers subscribe once at startup.
//
// Handler panics are recovered and handler errors are logged together with
// the pattern and the concrete topic; neither reaches the paho router.
func (c *Client) Subscribe(pattern string, qos byte, handler MessageHandler) error {
	if pattern == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: %s: nil handler", ErrSubscribeFailed, pattern)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	sub := subscription{topic: pattern, qos: qos, handler: handler}
	c.subMu.Lock()
	c.subscriptions[pattern] = sub
	c.subMu.Unlock()

	if err := c.await(c.client.Subscribe(pattern, qos, c.wrapHandler(sub))); err != nil {
		c.forget(pattern)
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, pattern, err)
	}
	return nil
}

// Unsubscribe stops routing pattern and drops it from the reconnect replay.
// Messages already handed to the handler may still complete.
func (c *Client) Unsubscribe(pattern string) error {
	if pattern == "" {
		return ErrInvalidTopic
	}
	c.forget(pattern)

	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := c.await(c.client.Unsubscribe(pattern)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnsubscribeFailed, pattern, err)
	}
	return nil
}

func (c *Client) forget(pattern string) {
	c.subMu.Lock()
	delete(c.subscriptions, pattern)
	c.subMu.Unlock()
}

// await waits for a broker acknowledgement.
func (c *Client) await(token pahomqtt.Token) error {
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("no acknowledgement after %v", defaultPublishTimeout)
	}
	return token.Error()
}

// restoreSubscriptions replays every remembered subscription after a
// reconnect.
func (c *Client) restoreSubscriptions() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for _, sub := range c.subscriptions {
		c.client.Subscribe(sub.topic, sub.qos, c.wrapHandler(sub))
	}
}

func (c *Client) wrapHandler(sub subscription) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.dispatch(sub, msg.Topic(), msg.Payload())
	}
}

func (c *Client) dispatch(sub subscription, topic string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Error("mqtt message handler panicked",
					"subscription", sub.topic,
					"topic", topic,
					"panic", r,
				)
			}
		}
	}()

	if err := sub.handler(topic, payload); err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("mqtt message rejected",
				"subscription", sub.topic,
				"topic", topic,
				"bytes", len(payload),
				"error", err,
			)
		}
	}
}
