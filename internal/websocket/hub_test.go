package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/raaihank/pii-sentinel/internal/config"
)

func newTestHub(t *testing.T) (*Hub, *websocket.Conn) {
	t.Helper()
	cfg := config.GetDefaults().WebSocket
	cfg.Events.BroadcastSystem = false // no connection chatter in tests
	h := NewHub(cfg, zap.NewNop())
	go h.Run()
	t.Cleanup(h.Stop)

	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	waitForClients(t, h, 1)
	return h, conn
}

func waitForClients(t *testing.T, h *Hub, n int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.GetStats().ActiveConnections >= n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("client never registered")
}

func TestBroadcastReachesClient(t *testing.T) {
	h, conn := newTestHub(t)

	h.Broadcast(Event{
		Type:      EventTypeDetection,
		Timestamp: time.Now(),
		Data:      DetectionEvent{ID: "r1", Kind: "text", EntityCount: 2},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != EventTypeDetection {
		t.Errorf("expected detection event, got %s", got.Type)
	}
}

func TestSubscriptionFiltersBroadcasts(t *testing.T) {
	h, conn := newTestHub(t)

	msg := ClientMessage{Type: "subscribe", Data: map[string]interface{}{"events": []string{"job_update"}}}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	// The filter lands on the hub goroutine; give it a beat before
	// broadcasting so the first event is already subject to it
	time.Sleep(200 * time.Millisecond)

	h.Broadcast(Event{Type: EventTypeDetection, Timestamp: time.Now(), Data: DetectionEvent{ID: "r2"}})
	h.Broadcast(Event{Type: EventTypeJobUpdate, Timestamp: time.Now(), Data: JobUpdateEvent{JobID: "j1", Status: "COMPLETED"}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != EventTypeJobUpdate {
		t.Errorf("event type %s leaked through the subscription filter", got.Type)
	}
}
