package websocket

import (
	"context"
	"sync"

	"github.com/UthayakumarDevon/livechatapp/internal/metrics"

	"go.uber.org/zap"
)

// Hub manages WebSocket client connections and room membership. All methods
// are synchronous so that a join is visible to the very next broadcast.
type Hub struct {
	mu sync.RWMutex

	// clients maps client ID to client
	clients map[string]*Client

	// rooms maps room name to the set of clients joined to it
	rooms map[string]map[*Client]struct{}

	log     *WebSocketLogger
	metrics *metrics.Metrics
}

// NewHub creates a new WebSocket hub
func NewHub(log *WebSocketLogger, m *metrics.Metrics) *Hub {
	if log == nil {
		log = NewWebSocketLogger(nil)
	}
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[*Client]struct{}),
		log:     log,
		metrics: m,
	}
}

// Register adds a new client to the hub
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
	h.metrics.ConnectionOpened()
}

// Unregister removes a client from every room and closes its send queue.
// Calling it twice is harmless.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	for _, room := range client.Rooms() {
		if members, ok := h.rooms[room]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	delete(h.clients, client.ID)
	client.shutdown()
	h.metrics.ConnectionClosed()
}

// JoinRoom adds the connection to room. It reports false for an unknown
// connection.
func (h *Hub) JoinRoom(connID, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connID]
	if !ok {
		return false
	}
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][client] = struct{}{}
	client.joinRoom(room)
	return true
}

// SendTo queues frame for a single connection.
func (h *Hub) SendTo(connID string, frame []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[connID]
	if !ok {
		return false
	}
	return h.deliver(client, frame)
}

// SendToWait queues frame for a single connection, waiting while its queue
// is full. The hub lock is not held while waiting.
func (h *Hub) SendToWait(ctx context.Context, connID string, frame []byte) error {
	h.mu.RLock()
	client, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return ErrClientClosed
	}
	return client.SendMessageWait(ctx, frame)
}

// BroadcastRoom queues frame for every client joined to room and returns how
// many accepted it.
func (h *Hub) BroadcastRoom(room string, frame []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for c := range h.rooms[room] {
		if h.deliver(c, frame) {
			n++
		}
	}
	return n
}

// BroadcastAll queues frame for every connected client.
func (h *Hub) BroadcastAll(frame []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, c := range h.clients {
		if h.deliver(c, frame) {
			n++
		}
	}
	return n
}

// deliver must be called with h.mu held.
func (h *Hub) deliver(c *Client, frame []byte) bool {
	if c.SendMessage(frame) {
		return true
	}
	h.metrics.Dropped(metrics.DropBufferFull)
	h.log.Warn("send_buffer_full", c.ID, "", zap.Int("buffer", cap(c.Send)))
	return false
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetRoomSize returns the number of clients joined to room
func (h *Hub) GetRoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// CloseAll unregisters every client. Used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.Unregister(c)
	}
}
