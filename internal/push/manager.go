package push

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Options configures a Manager.
type Options struct {
	// StrictPublish makes PublishToChannel fail with ErrNotFound for an
	// unknown channel instead of reporting zero deliveries.
	StrictPublish bool

	// MaxConnectionsPerUser caps live connections per user id; the oldest
	// are closed to make room. Zero means unlimited.
	MaxConnectionsPerUser int

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// Manager is the connection and channel registry. Construct it with
// NewManager; the zero value is not usable.
type Manager struct {
	opts     Options
	conns    *registry
	channels *channelStore
	presence *presenceIndex

	// announceMu serialises presence announcements. announced holds the
	// users whose last announcement was online.
	announceMu sync.Mutex
	announced  map[string]struct{}

	obsMu     sync.RWMutex
	observers []Observer
}

// NewManager creates an empty Manager.
func NewManager(opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.MaxConnectionsPerUser < 0 {
		opts.MaxConnectionsPerUser = 0
	}
	return &Manager{
		opts:      opts,
		conns:     newRegistry(opts.MaxConnectionsPerUser),
		channels:  newChannelStore(),
		presence:  newPresenceIndex(),
		announced: make(map[string]struct{}),
	}
}

// AddObserver registers o to be notified of publishes and presence changes.
func (m *Manager) AddObserver(o Observer) {
	if o == nil {
		return
	}
	m.obsMu.Lock()
	m.observers = append(m.observers, o)
	m.obsMu.Unlock()
}

func (m *Manager) observersSnapshot() []Observer {
	m.obsMu.RLock()
	defer m.obsMu.RUnlock()
	return append([]Observer(nil), m.observers...)
}

// =============================================================================
// Connection Registry
// =============================================================================

// Register adds a live connection for userID. Registering a connection id
// that is already known is a no-op. On the user's first live connection the
// users watching userID are sent an online presence notice. The connection
// is subscribed to every channel the user is already a member of.
func (m *Manager) Register(userID string, conn Connection) error {
	if err := ValidateUserID(userID); err != nil {
		return err
	}
	if conn == nil {
		return fmt.Errorf("%w: nil connection", ErrInvalidParameters)
	}

	s := newSession(userID, conn, m.opts.Clock())
	added, first, evicted := m.conns.add(s)
	for _, old := range evicted {
		old.terminate()
	}
	if !added {
		return nil
	}

	s.subscribe(m.channels.channelsOf(userID)...)

	if first {
		m.syncPresence(userID)
	}
	return nil
}

// Unregister removes a single connection after its transport has closed.
// The transport is not closed again. Unknown ids are ignored.
func (m *Manager) Unregister(connID string) {
	s, last := m.conns.remove(connID)
	if s == nil {
		return
	}
	s.live.Store(false)
	if last {
		m.syncPresence(s.userID)
	}
}

// Kick closes and removes every connection of userID. Kicking a user with
// no connections succeeds.
func (m *Manager) Kick(userID string) error {
	if err := ValidateUserID(userID); err != nil {
		return err
	}

	removed := m.conns.removeUser(userID)
	for _, s := range removed {
		s.terminate()
	}
	if len(removed) > 0 {
		m.syncPresence(userID)
	}
	return nil
}

// Logout closes and removes every connection that authenticated with
// authToken. Unknown tokens succeed.
func (m *Manager) Logout(authToken string) error {
	if strings.TrimSpace(authToken) == "" {
		return fmt.Errorf("%w: missing auth token", ErrInvalidParameters)
	}

	removed, offline := m.conns.removeToken(authToken)
	for _, s := range removed {
		s.terminate()
	}
	for _, userID := range offline {
		m.syncPresence(userID)
	}
	return nil
}

// CountConnections returns the number of live connections across all users.
func (m *Manager) CountConnections() int {
	return m.conns.count()
}

// IsOnline reports whether userID holds at least one live connection.
func (m *Manager) IsOnline(userID string) bool {
	return m.conns.online(userID)
}

// Connections describes the live connections of userID.
func (m *Manager) Connections(userID string) ([]ConnectionInfo, error) {
	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}
	sessions := m.conns.sessionsOf(userID)
	out := make([]ConnectionInfo, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.info())
	}
	return out, nil
}

// =============================================================================
// Channel Store
// =============================================================================

// CreateChannel creates an empty channel. It fails with ErrAlreadyExists if
// the name is taken.
func (m *Manager) CreateChannel(name string) error {
	name, err := NormaliseChannelName(name)
	if err != nil {
		return err
	}
	_, err = m.channels.create(name)
	return err
}

// RemoveChannel deletes a channel with all of its membership and token
// state and unsubscribes the members' connections.
func (m *Manager) RemoveChannel(name string) error {
	name, err := NormaliseChannelName(name)
	if err != nil {
		return err
	}
	members, err := m.channels.remove(name)
	if err != nil {
		return err
	}
	for _, s := range m.conns.sessionsOfUsers(members) {
		s.unsubscribe(name)
	}
	return nil
}

// ChannelExists reports whether the channel exists.
func (m *Manager) ChannelExists(name string) (bool, error) {
	name, err := NormaliseChannelName(name)
	if err != nil {
		return false, err
	}
	_, ok := m.channels.get(name)
	return ok, nil
}

// AddMember adds userID to the channel and subscribes the user's live
// connections. Adding an existing member succeeds.
//
// Checks run in order, and the first failure wins with nothing changed:
// ErrInvalidName, ErrInvalidUserID, ErrNotFound for a missing channel,
// then ErrNoActiveSession when the user holds no live connection. A
// missing channel is therefore reported as ErrNotFound even for an
// offline user.
func (m *Manager) AddMember(channelName, userID string) error {
	name, err := NormaliseChannelName(channelName)
	if err != nil {
		return err
	}
	if err := ValidateUserID(userID); err != nil {
		return err
	}
	if _, ok := m.channels.get(name); !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if !m.conns.online(userID) {
		return fmt.Errorf("%w: %s", ErrNoActiveSession, userID)
	}
	if _, err := m.channels.addMember(name, userID); err != nil {
		return err
	}
	for _, s := range m.conns.sessionsOf(userID) {
		s.subscribe(name)
	}
	return nil
}

// RemoveMember removes userID from the channel and unsubscribes the user's
// connections. Removing a user who is not a member succeeds; only a missing
// channel is an error.
func (m *Manager) RemoveMember(channelName, userID string) error {
	name, err := NormaliseChannelName(channelName)
	if err != nil {
		return err
	}
	if err := ValidateUserID(userID); err != nil {
		return err
	}
	if err := m.channels.removeMember(name, userID); err != nil {
		return err
	}
	for _, s := range m.conns.sessionsOf(userID) {
		s.unsubscribe(name)
	}
	return nil
}

// ChannelMembers returns the channel's member user ids in sorted order.
func (m *Manager) ChannelMembers(channelName string) ([]string, error) {
	name, err := NormaliseChannelName(channelName)
	if err != nil {
		return nil, err
	}
	return m.channels.members(name)
}

// =============================================================================
// Access Control
// =============================================================================

// AddAuthToken authorises token for the channel. The channel must exist.
func (m *Manager) AddAuthToken(channelName, token string) error {
	name, err := NormaliseChannelName(channelName)
	if err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("%w: missing auth token", ErrInvalidParameters)
	}
	return m.channels.addAuthToken(name, token)
}

// RemoveAuthToken revokes token for the channel. The channel must exist.
func (m *Manager) RemoveAuthToken(channelName, token string) error {
	name, err := NormaliseChannelName(channelName)
	if err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("%w: missing auth token", ErrInvalidParameters)
	}
	return m.channels.removeAuthToken(name, token)
}

// SetContentToken replaces the channel's content token and payload. A
// channel that does not exist yet is created.
func (m *Manager) SetContentToken(channelName, token string, payload []byte) error {
	name, err := NormaliseChannelName(channelName)
	if err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("%w: missing content token", ErrInvalidParameters)
	}
	m.channels.setContentToken(name, ContentToken{
		Token:   token,
		Payload: append([]byte(nil), payload...),
	})
	return nil
}

// ContentToken returns the channel's current content token.
func (m *Manager) ContentToken(channelName string) (ContentToken, bool, error) {
	name, err := NormaliseChannelName(channelName)
	if err != nil {
		return ContentToken{}, false, err
	}
	ct, ok := m.channels.contentToken(name)
	return ct, ok, nil
}

// ContentTokenUsers returns the members of a content-token channel. A
// channel without a content token, or one that does not exist, yields an
// empty list rather than an error.
func (m *Manager) ContentTokenUsers(channelName string) ([]string, error) {
	name, err := NormaliseChannelName(channelName)
	if err != nil {
		return nil, err
	}
	return m.channels.contentUsers(name), nil
}

// JoinWithToken adds userID to the channel when token is one of the
// channel's auth tokens or its content token. It otherwise behaves like
// AddMember.
func (m *Manager) JoinWithToken(channelName, userID, token string) error {
	name, err := NormaliseChannelName(channelName)
	if err != nil {
		return err
	}
	if err := ValidateUserID(userID); err != nil {
		return err
	}
	if !m.channels.grants(name, token) {
		return fmt.Errorf("%w: token not valid for channel %q", ErrInvalidParameters, name)
	}
	return m.AddMember(name, userID)
}

// =============================================================================
// Presence
// =============================================================================

// SetPresenceList replaces the set of users whose presence userID may see.
// The replacement is wholesale: ids not in list lose visibility at once.
func (m *Manager) SetPresenceList(userID string, list []string) error {
	if err := ValidateUserID(userID); err != nil {
		return err
	}

	ids := make([]string, 0, len(list))
	for _, id := range list {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if err := ValidateUserID(id); err != nil {
			return err
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: for user %s", ErrEmptyList, userID)
	}

	m.presence.replace(userID, ids)
	return nil
}

// PresenceList returns the users whose presence userID may see.
func (m *Manager) PresenceList(userID string) ([]string, error) {
	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}
	return m.presence.list(userID), nil
}

// syncPresence announces userID's current liveness if it differs from the
// last announcement. Every registry change that can flip liveness is
// followed by a call, so the final announcement always matches the
// registry even when Register races with Kick or Logout.
func (m *Manager) syncPresence(userID string) {
	m.announceMu.Lock()
	defer m.announceMu.Unlock()

	online := m.conns.online(userID)
	_, wasOnline := m.announced[userID]
	if online == wasOnline {
		return
	}

	event := PresenceOffline
	if online {
		event = PresenceOnline
		m.announced[userID] = struct{}{}
	} else {
		delete(m.announced, userID)
	}
	m.notifyPresence(userID, event)
}

func (m *Manager) notifyPresence(userID, event string) {
	watchers := m.presence.watchersOf(userID)
	if len(watchers) > 0 {
		deliver(m.conns.sessionsOfUsers(watchers), presenceMessage(userID, event))
	}

	ev := PresenceEvent{UserID: userID, Event: event, Watchers: len(watchers), At: m.opts.Clock()}
	for _, o := range m.observersSnapshot() {
		o.PresenceChanged(ev)
	}
}

// =============================================================================
// Dispatch
// =============================================================================

// PublishToChannel delivers msg to the live connections of the channel's
// members and returns how many accepted it. Members without a live
// connection are skipped. An unknown channel delivers to nobody, or fails
// with ErrNotFound when the manager was built with StrictPublish.
func (m *Manager) PublishToChannel(channelName string, msg Message) (int, error) {
	name, err := NormaliseChannelName(channelName)
	if err != nil {
		return 0, err
	}

	if msg.Type == "" {
		msg.Type = TypeMessage
	}
	msg.Channel = name

	members, err := m.channels.members(name)
	if err != nil {
		if m.opts.StrictPublish {
			return 0, err
		}
		m.published(msg, false, 0)
		return 0, nil
	}

	sent := deliver(m.conns.sessionsOfUsers(members), msg)
	m.published(msg, false, sent)
	return sent, nil
}

// PublishToContentChannel publishes to a channel that holds a content
// token. Channels without one are rejected with ErrInvalidParameters.
func (m *Manager) PublishToContentChannel(channelName string, msg Message) (int, error) {
	name, err := NormaliseChannelName(channelName)
	if err != nil {
		return 0, err
	}
	if _, ok := m.channels.contentToken(name); !ok {
		return 0, fmt.Errorf("%w: channel %q has no content token", ErrInvalidParameters, name)
	}
	return m.PublishToChannel(name, msg)
}

// Broadcast delivers msg to every live connection and returns the number of
// connections registered at call time.
func (m *Manager) Broadcast(msg Message) int {
	if msg.Type == "" {
		msg.Type = TypeMessage
	}
	recipients := m.conns.all()
	deliver(recipients, msg)
	m.published(msg, true, len(recipients))
	return len(recipients)
}

// SendToUser delivers msg to every live connection of userID.
func (m *Manager) SendToUser(userID string, msg Message) (int, error) {
	if err := ValidateUserID(userID); err != nil {
		return 0, err
	}
	if msg.Type == "" {
		msg.Type = TypeMessage
	}
	return deliver(m.conns.sessionsOf(userID), msg), nil
}

func (m *Manager) published(msg Message, broadcast bool, sent int) {
	observers := m.observersSnapshot()
	if len(observers) == 0 {
		return
	}
	ev := PublishEvent{Message: msg, Broadcast: broadcast, Sent: sent, At: m.opts.Clock()}
	for _, o := range observers {
		o.MessagePublished(ev)
	}
}

// =============================================================================
// Lifecycle
// =============================================================================

// Shutdown closes every connection and clears the registry. Channel,
// token and presence state is dropped with the Manager.
func (m *Manager) Shutdown() {
	for _, s := range m.conns.clear() {
		s.terminate()
	}
	m.announceMu.Lock()
	m.announced = make(map[string]struct{})
	m.announceMu.Unlock()
}
