// Package directory derives conversation-level views from the message
// store. Conversations are never stored: every listing, unread count and
// search result is computed on read from the message log, so there is no
// second source of truth that could drift from it.
package directory

import (
	"time"

	"artmarket/backend/internal/apperrors"
	"artmarket/backend/internal/models"
	"artmarket/backend/internal/storage"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Pagination describes one page of an in-memory or query-level result set.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// ConversationSummary is one entry in a user's conversation list.
type ConversationSummary struct {
	ConversationID string            `json:"conversationId"`
	OtherUser      models.PublicUser `json:"otherUser"`
	LastMessage    *models.Message   `json:"lastMessage"`
	UnreadCount    int64             `json:"unreadCount"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// ConversationPage pairs summaries with their pagination.
type ConversationPage struct {
	Conversations []ConversationSummary `json:"conversations"`
	Pagination    Pagination            `json:"pagination"`
}

// MessagePage is a paginated slice of messages within one conversation.
type MessagePage struct {
	Messages   []models.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

type Service struct {
	Storage storage.Storage
}

func NewService(s storage.Storage) *Service {
	return &Service{Storage: s}
}

// ListConversations builds the viewer's conversation list: for every
// distinct conversation touching the user, the most recent non-deleted
// message, the resolved counterpart and the per-conversation unread count,
// sorted by last activity descending and paginated in memory.
func (s *Service) ListConversations(userID string, page, limit int) (*ConversationPage, error) {
	page, limit = clampPage(page, limit)

	ids, err := s.Storage.ConversationIDsForUser(userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(ids))
	for _, convID := range ids {
		summary, err := s.buildSummary(userID, convID, nil)
		if err != nil {
			if apperrors.IsExpected(err) {
				// Counterpart removed or every message soft-deleted since the
				// id list was read; the conversation drops out of the view.
				continue
			}
			return nil, err
		}
		summaries = append(summaries, *summary)
	}

	total := int64(len(summaries))
	return &ConversationPage{
		Conversations: pageSlice(summaries, page, limit),
		Pagination:    newPagination(page, limit, total),
	}, nil
}

// SearchConversations matches the query against the user's own messages,
// keeping only the first (most recent) hit per conversation.
func (s *Service) SearchConversations(userID, query string, page, limit int) (*ConversationPage, error) {
	page, limit = clampPage(page, limit)

	matches, err := s.Storage.SearchOwnMessages(userID, query)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	summaries := make([]ConversationSummary, 0)
	for i := range matches {
		msg := &matches[i]
		if _, ok := seen[msg.ConversationID]; ok {
			continue
		}
		seen[msg.ConversationID] = struct{}{}

		summary, err := s.buildSummary(userID, msg.ConversationID, msg)
		if err != nil {
			if apperrors.IsExpected(err) {
				continue
			}
			return nil, err
		}
		summaries = append(summaries, *summary)
	}

	total := int64(len(summaries))
	return &ConversationPage{
		Conversations: pageSlice(summaries, page, limit),
		Pagination:    newPagination(page, limit, total),
	}, nil
}

// SearchWithinConversation is a direct paginated substring search scoped to
// the conversation between the viewer and otherUserID.
func (s *Service) SearchWithinConversation(userID, otherUserID, query string, page, limit int) (*MessagePage, error) {
	page, limit = clampPage(page, limit)

	convID := storage.ConversationID(userID, otherUserID)
	messages, total, err := s.Storage.SearchConversationMessages(convID, query, page, limit)
	if err != nil {
		return nil, err
	}
	return &MessagePage{
		Messages:   messages,
		Pagination: newPagination(page, limit, total),
	}, nil
}

// buildSummary assembles one conversation entry. matched, when non-nil, is
// used as the displayed message instead of the most recent one.
func (s *Service) buildSummary(userID, convID string, matched *models.Message) (*ConversationSummary, error) {
	last := matched
	if last == nil {
		var err error
		last, err = s.Storage.LastMessageInConversation(convID)
		if err != nil {
			return nil, err
		}
	}

	otherID := last.ReceiverID
	if otherID == userID {
		otherID = last.SenderID
	}
	other, err := s.Storage.GetUserByID(otherID)
	if err != nil {
		return nil, err
	}

	unread, err := s.Storage.CountUnreadInConversation(convID, userID)
	if err != nil {
		return nil, err
	}

	return &ConversationSummary{
		ConversationID: convID,
		OtherUser:      other.Public(),
		LastMessage:    last,
		UnreadCount:    unread,
		UpdatedAt:      last.CreatedAt,
	}, nil
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

func pageSlice(items []ConversationSummary, page, limit int) []ConversationSummary {
	start := (page - 1) * limit
	if start >= len(items) {
		return []ConversationSummary{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func newPagination(page, limit int, total int64) Pagination {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}
