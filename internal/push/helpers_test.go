package push

import (
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var connSeq atomic.Int64

// fakeConn is a test implementation of Connection.
type fakeConn struct {
	id    string
	token string

	mu       sync.Mutex
	received []Message
	closed   int
	sendErr  error
	panicky  bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{id: "conn-" + strconv.FormatInt(connSeq.Add(1), 10)}
}

func newTokenConn(token string) *fakeConn {
	c := newFakeConn()
	c.token = token
	return c
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(msg Message) error {
	if c.panicky {
		panic("transport exploded")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.received = append(c.received, msg)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed++
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.received...)
}

func (c *fakeConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// tokenConn exposes the session token so Logout can find the connection.
type tokenConn struct {
	*fakeConn
}

func (c tokenConn) AuthToken() string { return c.token }

// recordingObserver is a test implementation of Observer.
type recordingObserver struct {
	mu        sync.Mutex
	published []PublishEvent
	presence  []PresenceEvent
}

func (o *recordingObserver) MessagePublished(ev PublishEvent) {
	o.mu.Lock()
	o.published = append(o.published, ev)
	o.mu.Unlock()
}

func (o *recordingObserver) PresenceChanged(ev PresenceEvent) {
	o.mu.Lock()
	o.presence = append(o.presence, ev)
	o.mu.Unlock()
}

func (o *recordingObserver) presenceEvents() []PresenceEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]PresenceEvent(nil), o.presence...)
}

func (o *recordingObserver) publishEvents() []PublishEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]PublishEvent(nil), o.published...)
}

// fixedClock returns a clock that advances one second per call.
func fixedClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newTestManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	if opts.Clock == nil {
		opts.Clock = fixedClock()
	}
	m := NewManager(opts)
	t.Cleanup(m.Shutdown)
	return m
}

func mustRegister(t *testing.T, m *Manager, userID string) *fakeConn {
	t.Helper()
	c := newFakeConn()
	if err := m.Register(userID, c); err != nil {
		t.Fatalf("Register(%s) error = %v", userID, err)
	}
	return c
}

func mustCreate(t *testing.T, m *Manager, name string) {
	t.Helper()
	if err := m.CreateChannel(name); err != nil {
		t.Fatalf("CreateChannel(%s) error = %v", name, err)
	}
}

func assertErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want %v", err, target)
	}
}
