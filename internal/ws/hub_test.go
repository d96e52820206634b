package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/atarigo/goban-server/internal/broadcast"
)

func newHubServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Subscribe(w, r, strings.TrimPrefix(r.URL.Path, "/"), nil)
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dialHub(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/" + sessionID
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func waitForSubscribers(t *testing.T, hub *Hub, sessionID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.SubscriberCount(sessionID) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("subscriber count for %s never reached %d", sessionID, want)
}

func readEvent(t *testing.T, conn *websocket.Conn) broadcast.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, raw, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	var event broadcast.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	return event
}

func TestHub_PublishReachesSubscribers(t *testing.T) {
	hub, srv := newHubServer(t)
	a := dialHub(t, srv, "s1")
	b := dialHub(t, srv, "s1")
	waitForSubscribers(t, hub, "s1", 2)

	err := hub.Publish(context.Background(), broadcast.Event{
		SessionID: "s1",
		Kind:      broadcast.KindUpdated,
		Payload:   map[string]any{"boardSize": 9},
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for _, conn := range []*websocket.Conn{a, b} {
		event := readEvent(t, conn)
		if event.SessionID != "s1" || event.Kind != broadcast.KindUpdated {
			t.Fatalf("event = %+v", event)
		}
	}
}

func TestHub_PublishIsScopedToSession(t *testing.T) {
	hub, srv := newHubServer(t)
	s1 := dialHub(t, srv, "s1")
	s2 := dialHub(t, srv, "s2")
	waitForSubscribers(t, hub, "s1", 1)
	waitForSubscribers(t, hub, "s2", 1)

	if err := hub.Publish(context.Background(), broadcast.Event{SessionID: "s2", Kind: broadcast.KindJoined}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	event := readEvent(t, s2)
	if event.Kind != broadcast.KindJoined {
		t.Fatalf("event = %+v", event)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, _, err := s1.Read(ctx); err == nil {
		t.Fatal("subscriber of s1 received an event for s2")
	}
}

func TestHub_ReadyRunsAfterRegistration(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := strings.TrimPrefix(r.URL.Path, "/")
		hub.Subscribe(w, r, sessionID, func() {
			// Published before the write loop starts; the buffered send
			// queue must hold it for the connecting client.
			err := hub.Publish(r.Context(), broadcast.Event{
				SessionID: sessionID,
				Kind:      broadcast.KindUpdated,
			})
			if err != nil {
				t.Errorf("Publish from ready: %v", err)
			}
		})
	}))
	t.Cleanup(srv.Close)

	conn := dialHub(t, srv, "s1")
	event := readEvent(t, conn)
	if event.SessionID != "s1" || event.Kind != broadcast.KindUpdated {
		t.Fatalf("event = %+v", event)
	}
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(zap.NewNop())
	if err := hub.Publish(context.Background(), broadcast.Event{SessionID: "nobody", Kind: broadcast.KindUpdated}); err != nil {
		t.Fatalf("Publish to empty session: %v", err)
	}
}

func TestHub_SubscriberRemovedOnDisconnect(t *testing.T) {
	hub, srv := newHubServer(t)
	conn := dialHub(t, srv, "s1")
	waitForSubscribers(t, hub, "s1", 1)

	_ = conn.Close(websocket.StatusNormalClosure, "")
	waitForSubscribers(t, hub, "s1", 0)
}
