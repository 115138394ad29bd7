package notify

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nexcart/commerce-core/internal/logging"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub := NewHub(logging.New("test", "error", "json"), []string{"*"})
	defer hub.Close()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	first := dialHub(t, srv)
	second := dialHub(t, srv)

	// Registration happens in the handler goroutine; wait for both clients
	// to land in the hub before broadcasting.
	deadline := time.Now().Add(2 * time.Second)
	for hub.clientCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("clients never registered, have %d", hub.clientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Broadcast(Event{Type: EventOrderPlaced, OrderID: 42, UserID: 7, Status: "pending"})

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}

		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if event.Type != EventOrderPlaced {
			t.Errorf("expected type %q, got %q", EventOrderPlaced, event.Type)
		}
		if event.OrderID != 42 {
			t.Errorf("expected order 42, got %d", event.OrderID)
		}
		if event.At.IsZero() {
			t.Error("expected broadcast timestamp to be set")
		}
	}
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	hub := NewHub(logging.New("test", "error", "json"), []string{"*"})

	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialHub(t, srv)

	deadline := time.Now().Add(2 * time.Second)
	for hub.clientCount() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected read to fail after hub close")
	}
}
