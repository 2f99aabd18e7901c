package ws

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"messenger-service/internal/models"
	"messenger-service/internal/observability"
)

// Hub is the presence registry: it maps each user id to at most one live
// websocket connection and pushes events to them. It owns no persistence;
// delivery is best-effort and an offline user is simply skipped.
type Hub struct {
	clients map[int]*client
	mu      sync.RWMutex
}

type client struct {
	conn *websocket.Conn
	info ConnInfo

	// gorilla/websocket allows at most one concurrent writer per
	// connection; independent requests fan out from their own
	// goroutines, so every write goes through this lock.
	writeMu sync.Mutex
}

func (c *client) write(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[int]*client)}
}

// Register records conn as the user's live connection, replacing and
// closing any previous one, then broadcasts the online-user set.
func (h *Hub) Register(userID int, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	if prev, ok := h.clients[userID]; ok && prev.conn != conn {
		prev.conn.Close()
	}
	h.clients[userID] = &client{conn: conn, info: info}
	h.mu.Unlock()

	h.BroadcastOnlineUsers()
}

// Unregister drops the user's registration, but only if conn is still the
// connection on record: a late disconnect from a superseded connection
// must not evict a fresher registration.
func (h *Hub) Unregister(userID int, conn *websocket.Conn) {
	h.mu.Lock()
	current, ok := h.clients[userID]
	if ok && current.conn == conn {
		delete(h.clients, userID)
	} else {
		ok = false
	}
	h.mu.Unlock()

	if ok {
		h.BroadcastOnlineUsers()
	}
}

// Lookup returns the user's live connection if one is registered.
func (h *Hub) Lookup(userID int) (*websocket.Conn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[userID]
	if !ok {
		return nil, false
	}
	return c.conn, true
}

// OnlineUserIDs returns the ids of all currently connected users, sorted.
func (h *Hub) OnlineUserIDs() []int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]int, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// SendToUser pushes an event to the user's live connection. It reports
// whether a delivery was attempted; offline users are skipped silently.
func (h *Hub) SendToUser(userID int, event models.ChatEvent) bool {
	h.mu.RLock()
	c, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	payload, _ := json.Marshal(event)
	if err := c.write(payload); err != nil {
		log.Printf("websocket write error: %v", err)
		c.conn.Close()
		h.Unregister(userID, c.conn)
		h.publishWSError(userID, c.info, err)
		return false
	}
	observability.IncWSEvent("chat", event.Type)
	return true
}

// BroadcastOnlineUsers sends the full online-id list to every connected
// client. Any presence change triggers this full-set broadcast.
func (h *Hub) BroadcastOnlineUsers() {
	ids := h.OnlineUserIDs()
	event := models.ChatEvent{Type: models.EventOnlineUsers, OnlineUsers: ids}
	payload, _ := json.Marshal(event)

	h.mu.RLock()
	targets := make(map[int]*client, len(h.clients))
	for id, c := range h.clients {
		targets[id] = c
	}
	h.mu.RUnlock()

	for userID, c := range targets {
		if err := c.write(payload); err != nil {
			log.Printf("websocket write error: %v", err)
			c.conn.Close()
			h.Unregister(userID, c.conn)
			h.publishWSError(userID, c.info, err)
		}
	}
	observability.IncWSEvent("chat", models.EventOnlineUsers)
}

func (h *Hub) publishWSError(userID int, info ConnInfo, err error) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        "chat",
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   userID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.chats", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("chat", "ws_error")
}
