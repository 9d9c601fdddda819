package handler

import (
	"net/http"
	"strconv"

	"artmarket/backend/internal/apperrors"
	"artmarket/backend/internal/contentfilter"
	"artmarket/backend/internal/directory"
	"artmarket/backend/internal/models"
	"artmarket/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// resolveCounterpart validates the other participant for a
// conversation-scoped route, mirroring the checks the realtime protocol
// applies: the counterpart must exist, hold the opposite role, and neither
// side may have blocked the other.
func (h *Handler) resolveCounterpart(viewer *models.User, otherUserID string) (*models.User, error) {
	if otherUserID == "" || otherUserID == viewer.ID {
		return nil, apperrors.Validation("invalid counterpart")
	}
	other, err := h.Storage.GetUserByID(otherUserID)
	if err != nil {
		return nil, err
	}
	if other.Role == viewer.Role {
		return nil, apperrors.ErrSameRole
	}
	if viewer.HasBlocked(other.ID) || other.HasBlocked(viewer.ID) {
		return nil, apperrors.ErrUnableToSend
	}
	return other, nil
}

func pagingParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(directory.DefaultLimit)))
	if page < 1 {
		page = directory.DefaultPage
	}
	if limit < 1 {
		limit = directory.DefaultLimit
	}
	if limit > directory.MaxLimit {
		limit = directory.MaxLimit
	}
	return page, limit
}

// ListConversations returns the caller's conversation list, newest activity
// first.
func (h *Handler) ListConversations(c *gin.Context) {
	user := currentUser(c)
	page, limit := pagingParams(c)

	result, err := h.Directory.ListConversations(user.ID, page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SearchConversations finds conversations by matching the caller's own
// message content.
func (h *Handler) SearchConversations(c *gin.Context) {
	user := currentUser(c)
	query := c.Query("q")
	if query == "" {
		writeError(c, apperrors.Validation("query parameter q is required"))
		return
	}
	page, limit := pagingParams(c)

	result, err := h.Directory.SearchConversations(user.ID, query, page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ConversationMessages returns one page of the message history with the
// given counterpart, ordered oldest first.
func (h *Handler) ConversationMessages(c *gin.Context) {
	user := currentUser(c)
	other, err := h.resolveCounterpart(user, c.Param("otherUserID"))
	if err != nil {
		writeError(c, err)
		return
	}
	page, limit := pagingParams(c)

	convID := storage.ConversationID(user.ID, other.ID)
	messages, total, err := h.Storage.ConversationMessages(convID, page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"pagination": directory.Pagination{
			Page: page, Limit: limit, Total: total,
			TotalPages: int((total + int64(limit) - 1) / int64(limit)),
		},
	})
}

// SearchConversationMessages searches inside a single conversation.
func (h *Handler) SearchConversationMessages(c *gin.Context) {
	user := currentUser(c)
	other, err := h.resolveCounterpart(user, c.Param("otherUserID"))
	if err != nil {
		writeError(c, err)
		return
	}
	query := c.Query("q")
	if query == "" {
		writeError(c, apperrors.Validation("query parameter q is required"))
		return
	}
	page, limit := pagingParams(c)

	result, err := h.Directory.SearchWithinConversation(user.ID, other.ID, query, page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UnreadCount returns the caller's unread total across all conversations.
func (h *Handler) UnreadCount(c *gin.Context) {
	user := currentUser(c)

	count, err := h.Storage.CountUnread(user.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unreadCount": count})
}

type deleteMessageRequest struct {
	Reason string `json:"reason"`
}

// DeleteMessage soft-deletes the caller's own message.
func (h *Handler) DeleteMessage(c *gin.Context) {
	user := currentUser(c)
	messageID := c.Param("id")

	var req deleteMessageRequest
	_ = c.ShouldBindJSON(&req) // reason is optional

	if err := h.Storage.SoftDeleteMessage(messageID, user.ID, req.Reason); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type editMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// EditMessage replaces the content of the caller's own message. The new
// content passes through the same safety filter as a fresh send.
func (h *Handler) EditMessage(c *gin.Context) {
	user := currentUser(c)
	messageID := c.Param("id")

	var req editMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.Validation("content is required"))
		return
	}

	report := contentfilter.Analyze(req.Content)
	if !report.Acceptable {
		writeError(c, apperrors.ContentRejected(report.Violations))
		return
	}

	msg, err := h.Storage.EditMessage(messageID, user.ID, contentfilter.Sanitize(req.Content))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}
