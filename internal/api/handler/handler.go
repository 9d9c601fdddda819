// Package handler exposes the messaging core over HTTP: the WebSocket
// gateway for the realtime protocol and the REST directory surface.
package handler

import (
	"artmarket/backend/internal/chathub"
	"artmarket/backend/internal/config"
	"artmarket/backend/internal/directory"
	"artmarket/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Hub       *chathub.ManagerService
	Storage   storage.Storage
	Directory *directory.Service
	Cfg       *config.Config
}

func NewHandler(hub *chathub.ManagerService, s storage.Storage, dir *directory.Service, cfg *config.Config) *Handler {
	return &Handler{Hub: hub, Storage: s, Directory: dir, Cfg: cfg}
}

// RegisterRoutes wires the gateway and the authenticated REST routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.ServeWebSocket)

	api := r.Group("/api", h.AuthRequired())
	{
		api.GET("/conversations", h.ListConversations)
		api.GET("/conversations/search", h.SearchConversations)
		api.GET("/conversations/:otherUserID/messages", h.ConversationMessages)
		api.GET("/conversations/:otherUserID/messages/search", h.SearchConversationMessages)
		api.GET("/messages/unread-count", h.UnreadCount)
		api.DELETE("/messages/:id", h.DeleteMessage)
		api.PATCH("/messages/:id", h.EditMessage)
	}
}
