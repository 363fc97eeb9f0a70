package push

import (
	"encoding/json"
	"fmt"
)

// ContentToken is the single active content token of a channel together
// with the opaque payload supplied when it was set.
type ContentToken struct {
	Token   string          `json:"token"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// addAuthToken adds token to the channel's authorised set. An absent
// channel is reported as ErrInvalidParameters; tokens never create channels.
func (cs *channelStore) addAuthToken(name, token string) error {
	ch, err := cs.lockedForTokens(name)
	if err != nil {
		return err
	}
	defer ch.mu.Unlock()

	ch.authTokens[token] = struct{}{}
	return nil
}

func (cs *channelStore) removeAuthToken(name, token string) error {
	ch, err := cs.lockedForTokens(name)
	if err != nil {
		return err
	}
	defer ch.mu.Unlock()

	delete(ch.authTokens, token)
	return nil
}

// lockedForTokens returns the channel write-locked, or an error if it does
// not exist. The caller must unlock.
func (cs *channelStore) lockedForTokens(name string) (*channel, error) {
	ch, ok := cs.get(name)
	if !ok {
		return nil, fmt.Errorf("%w: channel %q does not exist", ErrInvalidParameters, name)
	}
	ch.mu.Lock()
	if ch.removed {
		ch.mu.Unlock()
		return nil, fmt.Errorf("%w: channel %q does not exist", ErrInvalidParameters, name)
	}
	return ch, nil
}

// setContentToken overwrites the channel's content token, creating the
// channel if needed. A concurrent removal between lookup and lock is retried
// against the fresh channel.
func (cs *channelStore) setContentToken(name string, ct ContentToken) {
	for {
		ch := cs.getOrCreate(name)
		ch.mu.Lock()
		if ch.removed {
			ch.mu.Unlock()
			continue
		}
		ch.content = &ct
		ch.mu.Unlock()
		return
	}
}

// contentToken returns a copy of the channel's content token, if any.
func (cs *channelStore) contentToken(name string) (ContentToken, bool) {
	ch, ok := cs.get(name)
	if !ok {
		return ContentToken{}, false
	}
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	if ch.removed || ch.content == nil {
		return ContentToken{}, false
	}
	return *ch.content, true
}

// contentUsers returns the members of a channel holding a content token.
// Channels without a token, and absent channels, yield an empty list.
func (cs *channelStore) contentUsers(name string) []string {
	ch, ok := cs.get(name)
	if !ok {
		return []string{}
	}
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	if ch.removed || ch.content == nil {
		return []string{}
	}
	return sortedKeys(ch.members)
}

// grants reports whether token is an authorised token of the channel or
// its current content token.
func (cs *channelStore) grants(name, token string) bool {
	if token == "" {
		return false
	}
	ch, ok := cs.get(name)
	if !ok {
		return false
	}
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	if ch.removed {
		return false
	}
	if _, ok := ch.authTokens[token]; ok {
		return true
	}
	return ch.content != nil && ch.content.Token == token
}
