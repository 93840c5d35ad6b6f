// Package handlers provides HTTP API request handlers.
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/studychat/backend/internal/ws"
)

// ChatHandler exposes the chat WebSocket endpoint.
type ChatHandler struct {
	wsHandler *ws.Handler
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(wsHandler *ws.Handler) *ChatHandler {
	return &ChatHandler{wsHandler: wsHandler}
}

// Attach handles WS /ws - upgrades the request and serves the chat protocol.
// Authentication happens on the socket itself with the first intent.
func (h *ChatHandler) Attach(c *gin.Context) {
	h.wsHandler.HandleConnection(c.Writer, c.Request)
}

// RegisterRoutes registers the WebSocket route on a Gin router.
func (h *ChatHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.Attach)
}
