package push

import (
	"sync"
	"sync/atomic"
	"time"
)

// Connection is one live transport session belonging to a user.
//
// Send must not block for longer than it takes to enqueue the message;
// transports are expected to buffer and drop (or fail) when a peer is slow.
// Close must be safe to call more than once.
type Connection interface {
	ID() string
	Send(msg Message) error
	Close() error
}

// TokenBearer is implemented by connections that authenticated with a
// session token. The token is indexed so Logout can find the connections.
type TokenBearer interface {
	AuthToken() string
}

// ConnectionInfo is a read-only view of a registered connection.
type ConnectionInfo struct {
	ID          string    `json:"id"`
	UserID      string    `json:"uid"`
	Channels    []string  `json:"channels"`
	Live        bool      `json:"live"`
	ConnectedAt time.Time `json:"connected_at"`
}

// session is the registry's record of a Connection.
type session struct {
	conn        Connection
	id          string
	userID      string
	authToken   string
	connectedAt time.Time
	live        atomic.Bool

	mu       sync.RWMutex
	channels map[string]struct{}
}

func newSession(userID string, conn Connection, now time.Time) *session {
	s := &session{
		conn:        conn,
		id:          conn.ID(),
		userID:      userID,
		connectedAt: now,
		channels:    make(map[string]struct{}),
	}
	if tb, ok := conn.(TokenBearer); ok {
		s.authToken = tb.AuthToken()
	}
	s.live.Store(true)
	return s
}

func (s *session) subscribe(channels ...string) {
	s.mu.Lock()
	for _, ch := range channels {
		s.channels[ch] = struct{}{}
	}
	s.mu.Unlock()
}

func (s *session) unsubscribe(channel string) {
	s.mu.Lock()
	delete(s.channels, channel)
	s.mu.Unlock()
}

func (s *session) info() ConnectionInfo {
	s.mu.RLock()
	channels := sortedKeys(s.channels)
	s.mu.RUnlock()
	return ConnectionInfo{
		ID:          s.id,
		UserID:      s.userID,
		Channels:    channels,
		Live:        s.live.Load(),
		ConnectedAt: s.connectedAt,
	}
}

// terminate marks the session dead and closes its transport. Close errors
// and panics are absorbed: the connection is gone either way.
func (s *session) terminate() {
	if !s.live.Swap(false) {
		return
	}
	defer func() {
		recover() //nolint:errcheck // a misbehaving transport must not break kick
	}()
	_ = s.conn.Close() //nolint:errcheck // best-effort close
}
