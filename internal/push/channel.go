package push

import (
	"fmt"
	"sync"
)

// channel is a named group of member user ids with its access state.
// All fields after mu are guarded by mu.
type channel struct {
	name string

	mu         sync.RWMutex
	removed    bool
	members    map[string]struct{}
	authTokens map[string]struct{}
	content    *ContentToken
}

func newChannel(name string) *channel {
	return &channel{
		name:       name,
		members:    make(map[string]struct{}),
		authTokens: make(map[string]struct{}),
	}
}

// channelStore owns the channels and the reverse user -> channels index.
//
// Lock order: store.mu, then channel.mu, then store.idxMu. Membership
// changes take only the channel lock (and idxMu), so unrelated channels are
// mutated in parallel. A removed channel is flagged under its own lock so a
// writer that looked it up before removal cannot resurrect it.
type channelStore struct {
	mu       sync.RWMutex
	channels map[string]*channel

	idxMu       sync.Mutex
	memberships map[string]map[string]struct{}
}

func newChannelStore() *channelStore {
	return &channelStore{
		channels:    make(map[string]*channel),
		memberships: make(map[string]map[string]struct{}),
	}
}

func (cs *channelStore) get(name string) (*channel, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	ch, ok := cs.channels[name]
	return ch, ok
}

// create adds an empty channel. It fails with ErrAlreadyExists if the name
// is taken.
func (cs *channelStore) create(name string) (*channel, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, exists := cs.channels[name]; exists {
		return nil, fmt.Errorf("%w: %q", ErrAlreadyExists, name)
	}
	ch := newChannel(name)
	cs.channels[name] = ch
	return ch, nil
}

// getOrCreate returns the named channel, creating it if absent.
func (cs *channelStore) getOrCreate(name string) *channel {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	ch, ok := cs.channels[name]
	if !ok {
		ch = newChannel(name)
		cs.channels[name] = ch
	}
	return ch
}

// remove deletes the channel together with its membership and token state
// and returns the user ids that were members.
func (cs *channelStore) remove(name string) ([]string, error) {
	cs.mu.Lock()
	ch, ok := cs.channels[name]
	if !ok {
		cs.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	delete(cs.channels, name)

	ch.mu.Lock()
	ch.removed = true
	members := sortedKeys(ch.members)
	ch.members = make(map[string]struct{})
	ch.authTokens = make(map[string]struct{})
	ch.content = nil
	cs.idxMu.Lock()
	for _, userID := range members {
		cs.unindexLocked(userID, name)
	}
	cs.idxMu.Unlock()
	ch.mu.Unlock()
	cs.mu.Unlock()

	return members, nil
}

// addMember adds userID to the channel. It reports whether the user was
// newly added.
func (cs *channelStore) addMember(name, userID string) (bool, error) {
	ch, ok := cs.get(name)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.removed {
		return false, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if _, exists := ch.members[userID]; exists {
		return false, nil
	}
	ch.members[userID] = struct{}{}

	cs.idxMu.Lock()
	userChannels := cs.memberships[userID]
	if userChannels == nil {
		userChannels = make(map[string]struct{})
		cs.memberships[userID] = userChannels
	}
	userChannels[name] = struct{}{}
	cs.idxMu.Unlock()
	return true, nil
}

// removeMember removes userID from the channel. Removing a non-member is
// not an error.
func (cs *channelStore) removeMember(name, userID string) error {
	ch, ok := cs.get(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.removed {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	delete(ch.members, userID)

	cs.idxMu.Lock()
	cs.unindexLocked(userID, name)
	cs.idxMu.Unlock()
	return nil
}

func (cs *channelStore) unindexLocked(userID, name string) {
	if userChannels := cs.memberships[userID]; userChannels != nil {
		delete(userChannels, name)
		if len(userChannels) == 0 {
			delete(cs.memberships, userID)
		}
	}
}

// members returns a sorted snapshot of the channel's members.
func (cs *channelStore) members(name string) ([]string, error) {
	ch, ok := cs.get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	ch.mu.RLock()
	defer ch.mu.RUnlock()
	if ch.removed {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return sortedKeys(ch.members), nil
}

// channelsOf returns a sorted snapshot of the channels userID belongs to.
func (cs *channelStore) channelsOf(userID string) []string {
	cs.idxMu.Lock()
	defer cs.idxMu.Unlock()
	return sortedKeys(cs.memberships[userID])
}

// counts returns the number of channels and of channels holding a content
// token. Each channel is read under its own lock while the store is held,
// so no channel is observed half-way through a mutation.
func (cs *channelStore) counts() (total, content int) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	for _, ch := range cs.channels {
		ch.mu.RLock()
		if ch.content != nil {
			content++
		}
		ch.mu.RUnlock()
	}
	return len(cs.channels), content
}
