// Package ws pushes session events to connected clients over websockets,
// implementing the broadcast gateway the core publishes through.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/atarigo/goban-server/internal/broadcast"
)

const (
	writeTimeout  = 5 * time.Second
	sendQueueSize = 16
)

type subscriber struct {
	send chan []byte
}

// Hub fans events out to every subscriber of a session. Slow clients drop
// messages rather than stall the publisher.
type Hub struct {
	log *zap.Logger

	mu   sync.RWMutex
	subs map[string]map[*subscriber]struct{}
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log:  log,
		subs: make(map[string]map[*subscriber]struct{}),
	}
}

// Publish implements broadcast.Gateway.
func (h *Hub) Publish(ctx context.Context, event broadcast.Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[event.SessionID] {
		select {
		case sub.send <- raw:
		default:
			h.log.Warn("dropping event for slow subscriber",
				zap.String("session_id", event.SessionID),
				zap.String("kind", string(event.Kind)),
			)
		}
	}
	return nil
}

// Subscribe upgrades the request and streams the session's events until the
// client goes away. If ready is non-nil it runs once the subscriber is
// registered, so anything it publishes lands in this client's queue.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, sessionID string, ready func()) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	sub := &subscriber{send: make(chan []byte, sendQueueSize)}
	h.add(sessionID, sub)
	defer h.remove(sessionID, sub)

	if ready != nil {
		ready()
	}

	// The client never sends application data; CloseRead watches for
	// disconnect while we write.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case raw := <-sub.send:
			if err := h.write(ctx, conn, raw); err != nil {
				h.log.Debug("websocket write failed",
					zap.String("session_id", sessionID),
					zap.Error(err),
				)
				return
			}
		}
	}
}

// SubscriberCount reports how many clients are attached to a session.
func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, raw []byte) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, raw)
}

func (h *Hub) add(sessionID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[*subscriber]struct{})
	}
	h.subs[sessionID][sub] = struct{}{}
}

func (h *Hub) remove(sessionID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[sessionID], sub)
	if len(h.subs[sessionID]) == 0 {
		delete(h.subs, sessionID)
	}
}
