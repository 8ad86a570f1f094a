package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/UthayakumarDevon/livechatapp/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type ClientCounter interface {
	GetClientCount() int
}

type HealthHandler struct {
	store   Pinger
	clients ClientCounter
}

func NewHealthHandler(store Pinger, clients ClientCounter) *HealthHandler {
	return &HealthHandler{store: store, clients: clients}
}

func (h *HealthHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := httpdto.HealthResponse{Status: "healthy", Store: "ok"}
	if h.clients != nil {
		resp.Connections = h.clients.GetClientCount()
	}
	if err := h.store.Ping(ctx); err != nil {
		resp.Status = "unhealthy"
		resp.Store = err.Error()
		c.JSON(http.StatusServiceUnavailable, httpdto.Response[httpdto.HealthResponse]{
			Success: false, Data: resp, Error: err.Error(), Code: "UNHEALTHY",
		})
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(resp))
}
