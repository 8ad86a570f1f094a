package websocket

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

// ErrClientClosed is returned when a frame targets a connection that has
// already gone away.
var ErrClientClosed = errors.New("websocket: client closed")

// Client represents a single WebSocket connection
type Client struct {
	ID          string          // Unique connection id
	Conn        *websocket.Conn // nil in tests that only exercise the hub
	Send        chan []byte     // Outbound frame queue
	rooms       map[string]bool // Joined rooms
	mu          sync.RWMutex    // Protects rooms
	sendMu      sync.RWMutex    // Protects closed and the close of Send
	closed      bool
	done        chan struct{} // Closed on shutdown, before Send
	doneOnce    sync.Once
	connectedAt time.Time
	lastActive  atomic.Int64
}

// NewClient creates a new WebSocket client with a send queue of sendBuffer
// frames.
func NewClient(conn *websocket.Conn, sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	now := time.Now()
	c := &Client{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, sendBuffer),
		rooms:       make(map[string]bool),
		done:        make(chan struct{}),
		connectedAt: now,
	}
	c.lastActive.Store(now.UnixNano())
	return c
}

func (c *Client) joinRoom(room string) {
	c.mu.Lock()
	c.rooms[room] = true
	c.mu.Unlock()
}

// Rooms returns a copy of the joined rooms
func (c *Client) Rooms() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rooms := make([]string, 0, len(c.rooms))
	for r := range c.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

// SendMessage queues msg without blocking. It reports false when the queue is
// full or the client is already closed; the frame is dropped.
func (c *Client) SendMessage(msg []byte) bool {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- msg:
		return true
	default:
		return false
	}
}

// SendMessageWait queues msg, waiting for room in a full queue until ctx is
// done or the client shuts down.
func (c *Client) SendMessageWait(ctx context.Context, msg []byte) error {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.Send <- msg:
		return nil
	case <-c.done:
		return ErrClientClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shutdown closes the send queue once; writePump then sends a close frame.
// done is closed first so a waiting sender lets go of sendMu.
func (c *Client) shutdown() {
	c.doneOnce.Do(func() { close(c.done) })

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

func (c *Client) touch() {
	c.lastActive.Store(time.Now().UnixNano())
}

func (c *Client) idleFor() time.Duration {
	return time.Since(time.Unix(0, c.lastActive.Load()))
}

// readPump reads frames until the connection fails and hands each to handle.
// Frames are handled one at a time, in arrival order.
func (c *Client) readPump(ctx context.Context, handle func(ctx context.Context, frame []byte), onError func(err error)) {
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.touch()
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				onError(err)
			}
			return
		}
		c.touch()
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		handle(ctx, frame)
	}
}

// writePump drains Send, one frame per websocket message, and pings the
// peer. It returns when Send is closed or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			if c.idleFor() > pongWait*2 {
				return
			}
		}
	}
}
