package push

import (
	"encoding/json"
	"strconv"
	"sync"
	"testing"
)

func TestConcurrentAddMember(t *testing.T) {
	m := newTestManager(t, Options{})
	mustCreate(t, m, "news")

	const users = 64
	for i := 0; i < users; i++ {
		mustRegister(t, m, strconv.Itoa(i))
	}

	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			if err := m.AddMember("news", uid); err != nil {
				t.Errorf("AddMember(%s) error = %v", uid, err)
			}
		}(strconv.Itoa(i))
	}
	wg.Wait()

	members, err := m.ChannelMembers("news")
	if err != nil {
		t.Fatalf("ChannelMembers() error = %v", err)
	}
	if len(members) != users {
		t.Errorf("members = %d, want %d", len(members), users)
	}
}

func TestConcurrentPublishAndMutation(t *testing.T) {
	m := newTestManager(t, Options{})
	mustCreate(t, m, "room")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(3)
		uid := strconv.Itoa(i)
		go func() {
			defer wg.Done()
			c := newFakeConn()
			if err := m.Register(uid, c); err != nil {
				t.Errorf("Register() error = %v", err)
				return
			}
			_ = m.AddMember("room", uid) //nolint:errcheck // races with RemoveChannel below
			m.Unregister(c.ID())
		}()
		go func() {
			defer wg.Done()
			_, _ = m.PublishToChannel("room", NewMessage("", json.RawMessage(`0`))) //nolint:errcheck
			m.Broadcast(NewMessage("", nil))
			_ = m.Stats()
		}()
		go func() {
			defer wg.Done()
			_ = m.SetPresenceList(uid, []string{"1", "2"}) //nolint:errcheck
			if uid == "8" {
				_ = m.RemoveChannel("room") //nolint:errcheck
			}
		}()
	}
	wg.Wait()

	if got := m.CountConnections(); got != 0 {
		t.Errorf("CountConnections() = %d, want 0", got)
	}
}

func TestRemovedChannelIsNotResurrected(t *testing.T) {
	for i := 0; i < 50; i++ {
		m := NewManager(Options{})
		if err := m.CreateChannel("c"); err != nil {
			t.Fatalf("CreateChannel() error = %v", err)
		}
		if err := m.Register("1", newFakeConn()); err != nil {
			t.Fatalf("Register() error = %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = m.AddMember("c", "1") //nolint:errcheck
		}()
		go func() {
			defer wg.Done()
			_ = m.RemoveChannel("c") //nolint:errcheck
		}()
		wg.Wait()

		if exists, _ := m.ChannelExists("c"); exists {
			t.Fatal("channel exists after RemoveChannel")
		}
		if got := m.channels.channelsOf("1"); len(got) != 0 {
			t.Fatalf("membership index = %v, want empty", got)
		}
		m.Shutdown()
	}
}
