package websocket

import (
	"context"
	"net/http"

	"github.com/UthayakumarDevon/livechatapp/internal/session"
	"github.com/UthayakumarDevon/livechatapp/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Handler struct {
	hub        *Hub
	sessions   *session.Registry
	dispatcher *Dispatcher
	limiter    EventLimiter
	log        *WebSocketLogger
	upgrader   websocket.Upgrader
	sendBuffer int
}

// NewHandler builds the /ws endpoint. allowedOrigins limits browser
// origins; "*" or an empty list allows any.
func NewHandler(hub *Hub, sessions *session.Registry, dispatcher *Dispatcher, limiter EventLimiter, log *WebSocketLogger, sendBuffer int, allowedOrigins []string) *Handler {
	if log == nil {
		log = NewWebSocketLogger(nil)
	}
	return &Handler{
		hub:        hub,
		sessions:   sessions,
		dispatcher: dispatcher,
		limiter:    limiter,
		log:        log,
		sendBuffer: sendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// connectionContext is the root context of one connection's dispatches. It
// carries the connection id for logger.ContextFields.
func connectionContext(connID string) (context.Context, context.CancelFunc) {
	ctx := context.WithValue(context.Background(), logger.ConnectionIdKey, connID)
	return context.WithCancel(ctx)
}

// Connect upgrades the request and serves the connection until it closes.
func (h *Handler) Connect(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("upgrade_failed", "", "", zap.Error(err))
		return
	}

	client := NewClient(conn, h.sendBuffer)
	h.sessions.Open(client.ID)
	h.hub.Register(client)
	h.log.Info("connected", client.ID, "", zap.String("remote_addr", c.ClientIP()))

	ctx, cancel := connectionContext(client.ID)
	defer cancel()

	go client.writePump()

	client.readPump(ctx,
		func(ctx context.Context, frame []byte) {
			h.dispatcher.Dispatch(ctx, client.ID, frame)
		},
		func(err error) {
			h.log.Error("websocket unexpected close", client.ID, h.sessions.Name(client.ID), err)
		},
	)

	name := h.sessions.Name(client.ID)
	rooms := h.sessions.Close(client.ID)
	h.hub.Unregister(client)
	if h.limiter != nil {
		h.limiter.Forget(client.ID)
	}
	h.log.Info("disconnected", client.ID, name, zap.Strings("rooms", rooms))
}
