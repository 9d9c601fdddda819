package handler

import (
	"net/http"

	"artmarket/backend/internal/chathub"
	"artmarket/backend/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: restrict to the marketplace origin once the frontend domain is
	// fixed.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket authenticates the caller, upgrades the connection and
// registers the client with the hub. Authentication failures are the only
// reason a connection is refused.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	user, err := h.authenticate(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Error("websocket upgrade failed",
			zap.String("user_id", user.ID), zap.Error(err))
		return
	}

	client := chathub.NewWebSocketClient(
		h.Hub, conn, user.ID, user.Username, user.Role, uuid.New().String())

	h.Hub.RegisterCh <- client
	client.Run()

	logger.Log.Info("websocket connected",
		zap.String("user_id", user.ID), zap.String("conn_id", client.ConnID))
}
