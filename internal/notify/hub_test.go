package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?user_id=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return ev
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.mu.RLock()
		total := 0
		for _, set := range h.clients {
			total += len(set)
		}
		h.mu.RUnlock()
		if total == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("hub never reached %d clients", n)
}

func TestNotifyUserReachesOnlyThatUser(t *testing.T) {
	h := NewHub(slog.New(slog.DiscardHandler))
	srv := httptest.NewServer(h)
	defer srv.Close()

	alice := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")
	waitForClients(t, h, 2)

	h.NotifyUser(context.Background(), "alice", Event{Type: EventSessionProgress, SessionID: "s1"})

	ev := readEvent(t, alice)
	if ev.Type != EventSessionProgress || ev.SessionID != "s1" {
		t.Errorf("event = %+v", ev)
	}
	if ev.At.IsZero() {
		t.Error("At not stamped")
	}

	_ = bob.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := bob.ReadMessage(); err == nil {
		t.Error("bob received alice's event")
	}
}

func TestBroadcastReachesEveryone(t *testing.T) {
	h := NewHub(slog.New(slog.DiscardHandler))
	srv := httptest.NewServer(h)
	defer srv.Close()

	alice := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")
	waitForClients(t, h, 2)

	h.Broadcast(context.Background(), Event{Type: EventDriverCreated})

	for _, conn := range []*websocket.Conn{alice, bob} {
		if ev := readEvent(t, conn); ev.Type != EventDriverCreated {
			t.Errorf("event = %+v", ev)
		}
	}
}

func TestUpgradeRequiresUserID(t *testing.T) {
	h := NewHub(slog.New(slog.DiscardHandler))
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
