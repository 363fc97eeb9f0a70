package push

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestAuthTokens(t *testing.T) {
	m := newTestManager(t, Options{})
	mustCreate(t, m, "private")
	mustRegister(t, m, "1")

	assertErrorIs(t, m.AddAuthToken("missing", "tok"), ErrInvalidParameters)
	assertErrorIs(t, m.AddAuthToken("private", ""), ErrInvalidParameters)
	assertErrorIs(t, m.AddAuthToken("bad name", "tok"), ErrInvalidName)

	if err := m.AddAuthToken("private", "tok"); err != nil {
		t.Fatalf("AddAuthToken() error = %v", err)
	}
	assertErrorIs(t, m.JoinWithToken("private", "1", "wrong"), ErrInvalidParameters)
	if err := m.JoinWithToken("private", "1", "tok"); err != nil {
		t.Fatalf("JoinWithToken() error = %v", err)
	}

	if err := m.RemoveAuthToken("private", "tok"); err != nil {
		t.Fatalf("RemoveAuthToken() error = %v", err)
	}
	if err := m.RemoveAuthToken("private", "tok"); err != nil {
		t.Errorf("RemoveAuthToken() of absent token error = %v", err)
	}
	assertErrorIs(t, m.JoinWithToken("private", "1", "tok"), ErrInvalidParameters)

	members, _ := m.ChannelMembers("private")
	if !reflect.DeepEqual(members, []string{"1"}) {
		t.Errorf("ChannelMembers() = %v, want [1]", members)
	}
}

func TestContentToken(t *testing.T) {
	m := newTestManager(t, Options{})
	payload := json.RawMessage(`{"title":"draft"}`)

	if err := m.SetContentToken("Article_1", "v1", payload); err != nil {
		t.Fatalf("SetContentToken() error = %v", err)
	}
	exists, _ := m.ChannelExists("article_1")
	if !exists {
		t.Fatal("SetContentToken did not create the channel")
	}

	if err := m.SetContentToken("article_1", "v2", nil); err != nil {
		t.Fatalf("SetContentToken() overwrite error = %v", err)
	}
	ct, ok, err := m.ContentToken("article_1")
	if err != nil || !ok {
		t.Fatalf("ContentToken() = %v, %v", ok, err)
	}
	if ct.Token != "v2" || len(ct.Payload) != 0 {
		t.Errorf("ContentToken() = %+v, want v2 with no payload", ct)
	}

	mustRegister(t, m, "5")
	assertErrorIs(t, m.JoinWithToken("article_1", "5", "v1"), ErrInvalidParameters)
	if err := m.JoinWithToken("article_1", "5", "v2"); err != nil {
		t.Fatalf("JoinWithToken() error = %v", err)
	}

	users, err := m.ContentTokenUsers("article_1")
	if err != nil {
		t.Fatalf("ContentTokenUsers() error = %v", err)
	}
	if !reflect.DeepEqual(users, []string{"5"}) {
		t.Errorf("ContentTokenUsers() = %v, want [5]", users)
	}

	assertErrorIs(t, m.SetContentToken("article_1", "", nil), ErrInvalidParameters)
}

func TestContentTokenUsersWithoutToken(t *testing.T) {
	m := newTestManager(t, Options{})
	mustCreate(t, m, "plain")
	mustRegister(t, m, "1")
	if err := m.AddMember("plain", "1"); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}

	for _, name := range []string{"plain", "absent"} {
		users, err := m.ContentTokenUsers(name)
		if err != nil {
			t.Fatalf("ContentTokenUsers(%s) error = %v", name, err)
		}
		if users == nil || len(users) != 0 {
			t.Errorf("ContentTokenUsers(%s) = %#v, want empty non-nil", name, users)
		}
	}
}

func TestPublishToContentChannel(t *testing.T) {
	m := newTestManager(t, Options{})
	mustCreate(t, m, "plain")
	if err := m.SetContentToken("article_2", "tok", nil); err != nil {
		t.Fatalf("SetContentToken() error = %v", err)
	}
	c := mustRegister(t, m, "1")
	if err := m.AddMember("article_2", "1"); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}

	_, err := m.PublishToContentChannel("plain", NewMessage("", nil))
	assertErrorIs(t, err, ErrInvalidParameters)

	sent, err := m.PublishToContentChannel("article_2", NewMessage("", json.RawMessage(`"edit"`)))
	if err != nil || sent != 1 {
		t.Fatalf("PublishToContentChannel() = %d, %v, want 1, nil", sent, err)
	}
	if len(c.messages()) != 1 {
		t.Error("member did not receive the content message")
	}
}
