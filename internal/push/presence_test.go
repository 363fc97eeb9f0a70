package push

import (
	"encoding/json"
	"reflect"
	"sync"
	"testing"
)

func presenceNotices(t *testing.T, c *fakeConn) []PresenceNotice {
	t.Helper()
	var out []PresenceNotice
	for _, msg := range c.messages() {
		if msg.Type != TypePresence {
			continue
		}
		var n PresenceNotice
		if err := json.Unmarshal(msg.Data, &n); err != nil {
			t.Fatalf("unmarshal presence notice: %v", err)
		}
		out = append(out, n)
	}
	return out
}

func TestSetPresenceList(t *testing.T) {
	tests := []struct {
		name    string
		list    []string
		want    []string
		wantErr error
	}{
		{"plain", []string{"2", "3"}, []string{"2", "3"}, nil},
		{"blanks dropped", []string{" 2", "", "3 "}, []string{"2", "3"}, nil},
		{"duplicates collapse", []string{"2", "2"}, []string{"2"}, nil},
		{"empty", []string{}, nil, ErrEmptyList},
		{"only blanks", []string{"", " "}, nil, ErrEmptyList},
		{"malformed entry", []string{"2", "x"}, nil, ErrInvalidUserID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t, Options{})
			err := m.SetPresenceList("1", tt.list)
			if tt.wantErr != nil {
				assertErrorIs(t, err, tt.wantErr)
				if got, _ := m.PresenceList("1"); len(got) != 0 {
					t.Errorf("PresenceList() = %v after failed set", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("SetPresenceList() error = %v", err)
			}
			got, _ := m.PresenceList("1")
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("PresenceList() = %v, want %v", got, tt.want)
			}
		})
	}

	m := newTestManager(t, Options{})
	assertErrorIs(t, m.SetPresenceList("me", []string{"1"}), ErrInvalidUserID)
}

func TestPresenceListReplacesWholesale(t *testing.T) {
	m := newTestManager(t, Options{})
	watcher := mustRegister(t, m, "1")

	if err := m.SetPresenceList("1", []string{"2", "3"}); err != nil {
		t.Fatalf("SetPresenceList() error = %v", err)
	}
	if err := m.SetPresenceList("1", []string{"3"}); err != nil {
		t.Fatalf("SetPresenceList() error = %v", err)
	}

	mustRegister(t, m, "2")
	mustRegister(t, m, "3")

	notices := presenceNotices(t, watcher)
	want := []PresenceNotice{{UserID: "3", Event: PresenceOnline}}
	if !reflect.DeepEqual(notices, want) {
		t.Errorf("notices = %+v, want %+v", notices, want)
	}
}

func TestPresenceNotifications(t *testing.T) {
	m := newTestManager(t, Options{})
	watcher := mustRegister(t, m, "1")
	if err := m.SetPresenceList("1", []string{"2"}); err != nil {
		t.Fatalf("SetPresenceList() error = %v", err)
	}

	c1 := mustRegister(t, m, "2")
	c2 := mustRegister(t, m, "2")
	m.Unregister(c1.ID())
	m.Unregister(c2.ID())

	notices := presenceNotices(t, watcher)
	want := []PresenceNotice{
		{UserID: "2", Event: PresenceOnline},
		{UserID: "2", Event: PresenceOffline},
	}
	if !reflect.DeepEqual(notices, want) {
		t.Errorf("notices = %+v, want %+v", notices, want)
	}
}

func TestPresenceKickBetweenRegisterAndAnnounce(t *testing.T) {
	m := newTestManager(t, Options{})
	watcher := mustRegister(t, m, "1")
	if err := m.SetPresenceList("1", []string{"2"}); err != nil {
		t.Fatalf("SetPresenceList() error = %v", err)
	}

	// Register stores the session, then Kick runs before Register announces.
	s := newSession("2", newFakeConn(), m.opts.Clock())
	if added, first, _ := m.conns.add(s); !added || !first {
		t.Fatalf("add() = %v, %v, want true, true", added, first)
	}
	if err := m.Kick("2"); err != nil {
		t.Fatalf("Kick() error = %v", err)
	}
	m.syncPresence("2")

	if m.IsOnline("2") {
		t.Fatal("IsOnline(2) = true after Kick")
	}
	if notices := presenceNotices(t, watcher); len(notices) != 0 {
		t.Errorf("notices = %+v, want none", notices)
	}
}

func TestPresenceConvergesUnderRegisterKickRace(t *testing.T) {
	m := newTestManager(t, Options{})
	watcher := mustRegister(t, m, "1")
	if err := m.SetPresenceList("1", []string{"2"}); err != nil {
		t.Fatalf("SetPresenceList() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := m.Register("2", newFakeConn()); err != nil {
				t.Errorf("Register() error = %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if err := m.Kick("2"); err != nil {
				t.Errorf("Kick() error = %v", err)
			}
		}()
	}
	wg.Wait()

	notices := presenceNotices(t, watcher)
	for i := 1; i < len(notices); i++ {
		if notices[i].Event == notices[i-1].Event {
			t.Fatalf("notice %d repeats %q", i, notices[i].Event)
		}
	}

	want := PresenceOffline
	if m.IsOnline("2") {
		want = PresenceOnline
	}
	if len(notices) == 0 {
		if want == PresenceOnline {
			t.Fatal("user online but never announced")
		}
		return
	}
	if last := notices[len(notices)-1].Event; last != want {
		t.Errorf("last notice = %q, want %q", last, want)
	}
}
