// internal/handlers/room_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/lunaveil/seance/internal/auth"
	"github.com/lunaveil/seance/internal/models"
	"github.com/lunaveil/seance/internal/room"
)

func testIdentity() models.Participant {
	return models.Participant{
		UID:        uuid.New(),
		Username:   "tester",
		AvatarSeed: "abcd1234",
	}
}

// TestRoomCreate checks that /room/create builds an in-memory room.
func TestRoomCreate(t *testing.T) {
	auth.Init() // ephemeral keys, no DB needed
	rs := NewRoomServer()

	host := testIdentity()
	token, _ := auth.CreateJWT(host)

	body := `{"name":"The Parlor","is_public":true}`
	req := httptest.NewRequest("POST", "/room/create", bytes.NewBuffer([]byte(body)))
	req.Header.Set("Cookie", "auth_token="+token)
	w := httptest.NewRecorder()

	h := CreateRoomHandler(rs)
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		HostUID string `json:"host_uid"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode room: %v", err)
	}
	roomID, err := uuid.Parse(resp.ID)
	if err != nil {
		t.Fatalf("room has no valid ID: %v", err)
	}
	if resp.Name != "The Parlor" {
		t.Fatalf("room name mismatch, got %q", resp.Name)
	}
	if resp.HostUID != host.UID.String() {
		t.Fatalf("room host mismatch, expected %v got %v", host.UID, resp.HostUID)
	}
	if _, ok := rs.Store.GetRoom(roomID); !ok {
		t.Fatalf("room %v not present in store", roomID)
	}
}

// TestRoomCreateEmptyName checks the validation path: no name means 400.
func TestRoomCreateEmptyName(t *testing.T) {
	auth.Init()
	rs := NewRoomServer()

	token, _ := auth.CreateJWT(testIdentity())
	req := httptest.NewRequest("POST", "/room/create", bytes.NewBufferString(`{"name":""}`))
	req.Header.Set("Cookie", "auth_token="+token)
	w := httptest.NewRecorder()

	CreateRoomHandler(rs).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty name, got %d", w.Code)
	}
}

// TestRoomCreateMintsGuestIdentity checks a caller without a token still gets
// a room, plus a fresh auth cookie.
func TestRoomCreateMintsGuestIdentity(t *testing.T) {
	auth.Init()
	rs := NewRoomServer()

	req := httptest.NewRequest("POST", "/room/create", bytes.NewBufferString(`{"name":"Walk-in"}`))
	w := httptest.NewRecorder()

	CreateRoomHandler(rs).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}

	var sawCookie bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "auth_token" && c.Value != "" {
			sawCookie = true
			identity, err := auth.AuthenticateJWT(c.Value)
			if err != nil {
				t.Fatalf("guest cookie does not verify: %v", err)
			}
			if identity.Username == "" || identity.AvatarSeed == "" {
				t.Fatalf("guest identity incomplete: %+v", identity)
			}
		}
	}
	if !sawCookie {
		t.Fatalf("no auth_token cookie set for guest")
	}
}

// TestRoomListVisibility checks the registry filter: public rooms for
// everyone, private rooms only for their members.
func TestRoomListVisibility(t *testing.T) {
	auth.Init()
	rs := NewRoomServer()

	member := testIdentity()
	stranger := testIdentity()

	pub, err := room.NewRoom("Open Circle", true, member, rs.Cfg)
	if err != nil {
		t.Fatalf("failed to create room: %v", err)
	}
	priv, err := room.NewRoom("Inner Circle", false, member, rs.Cfg)
	if err != nil {
		t.Fatalf("failed to create room: %v", err)
	}
	if err := priv.AddConnection(&room.Connection{
		Participant: member,
		Cancel:      func() {},
		OutChan:     make(chan map[string]interface{}, 16),
	}); err != nil {
		t.Fatalf("failed to join private room: %v", err)
	}
	rs.Store.AddRoom(pub)
	rs.Store.AddRoom(priv)

	list := func(p models.Participant) []room.Summary {
		token, _ := auth.CreateJWT(p)
		req := httptest.NewRequest("GET", "/room/list", nil)
		req.Header.Set("Cookie", "auth_token="+token)
		w := httptest.NewRecorder()
		ListRoomsHandler(rs).ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 OK, got %d", w.Code)
		}
		var out []room.Summary
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("failed to decode summaries: %v", err)
		}
		return out
	}

	if got := list(stranger); len(got) != 1 || got[0].Name != "Open Circle" {
		t.Fatalf("stranger should only see the public room, got %+v", got)
	}
	if got := list(member); len(got) != 2 {
		t.Fatalf("member should see both rooms, got %+v", got)
	}
}
