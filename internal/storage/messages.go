package storage

import (
	"errors"
	"sort"
	"strings"
	"time"

	"artmarket/backend/internal/apperrors"
	"artmarket/backend/internal/logger"
	"artmarket/backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConversationID derives the deterministic, order-independent key for the
// message thread between two users: the lexicographically sorted pair joined
// by an underscore. Pure function, no I/O.
func ConversationID(idA, idB string) string {
	pair := []string{idA, idB}
	sort.Strings(pair)
	return strings.Join(pair, "_")
}

// AppendMessage persists a new message in the sent state. Content must
// already be sanitized by the caller.
func (s *Service) AppendMessage(senderID, receiverID, content string) (*models.Message, error) {
	msg := models.Message{
		SenderID:       senderID,
		ReceiverID:     receiverID,
		ConversationID: ConversationID(senderID, receiverID),
		Content:        content,
		Status:         models.StatusSent,
		CreatedAt:      time.Now(),
	}
	if err := s.DB.Create(&msg).Error; err != nil {
		logger.Log.Error("failed to append message",
			zap.String("conversation_id", msg.ConversationID), zap.Error(err))
		return nil, err
	}
	return &msg, nil
}

func (s *Service) GetMessageByID(id string) (*models.Message, error) {
	var msg models.Message
	err := s.DB.Where("id = ? AND deleted = ?", id, false).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkConversationRead transitions every unread message in the conversation
// addressed to readerID to read. Idempotent: a second call affects zero rows.
func (s *Service) MarkConversationRead(conversationID, readerID string) (int64, error) {
	res := s.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND read = ? AND deleted = ?",
			conversationID, readerID, false, false).
		Updates(map[string]interface{}{
			"read":    true,
			"read_at": time.Now(),
			"status":  models.StatusRead,
		})
	if res.Error != nil {
		logger.Log.Error("failed to mark conversation read",
			zap.String("conversation_id", conversationID), zap.Error(res.Error))
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// MarkDelivered upgrades a message from sent to delivered. Status never
// regresses: a message already delivered or read is left alone.
func (s *Service) MarkDelivered(messageID string) error {
	return s.DB.Model(&models.Message{}).
		Where("id = ? AND status = ?", messageID, models.StatusSent).
		Update("status", models.StatusDelivered).Error
}

// SoftDeleteMessage is the self-service delete path: only the original
// sender may remove their message, and the row is retained.
func (s *Service) SoftDeleteMessage(messageID, actorID, reason string) error {
	msg, err := s.GetMessageByID(messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != actorID {
		return apperrors.ErrNotMessageSender
	}

	now := time.Now()
	return s.DB.Model(&models.Message{}).
		Where("id = ?", messageID).
		Updates(map[string]interface{}{
			"deleted":       true,
			"deleted_at":    now,
			"deleted_by":    actorID,
			"delete_reason": reason,
		}).Error
}

// EditMessage replaces the content of a sender's own message, preserving the
// original text on the first edit.
func (s *Service) EditMessage(messageID, actorID, newContent string) (*models.Message, error) {
	msg, err := s.GetMessageByID(messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != actorID {
		return nil, apperrors.ErrNotMessageSender
	}

	if !msg.Edited {
		msg.OriginalContent = msg.Content
	}
	now := time.Now()
	msg.Content = newContent
	msg.Edited = true
	msg.EditedAt = &now

	if err := s.DB.Save(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

// CountUnread counts non-deleted unread messages addressed to the user
// across all conversations.
func (s *Service) CountUnread(userID string) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Message{}).
		Where("receiver_id = ? AND read = ? AND deleted = ?", userID, false, false).
		Count(&count).Error
	return count, err
}

func (s *Service) CountUnreadInConversation(conversationID, userID string) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND read = ? AND deleted = ?",
			conversationID, userID, false, false).
		Count(&count).Error
	return count, err
}

// ConversationMessages returns one page of a conversation ordered by write
// time ascending, so read order always matches write order.
func (s *Service) ConversationMessages(conversationID string, page, limit int) ([]models.Message, int64, error) {
	var total int64
	if err := s.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND deleted = ?", conversationID, false).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var messages []models.Message
	err := s.DB.Where("conversation_id = ? AND deleted = ?", conversationID, false).
		Order("created_at asc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		logger.Log.Error("failed to load conversation messages",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return nil, 0, err
	}
	return messages, total, nil
}

// ConversationIDsForUser lists every distinct conversation touching the
// user, newest activity first.
func (s *Service) ConversationIDsForUser(userID string) ([]string, error) {
	var ids []string
	err := s.DB.Model(&models.Message{}).
		Where("(sender_id = ? OR receiver_id = ?) AND deleted = ?", userID, userID, false).
		Group("conversation_id").
		Order("MAX(created_at) DESC").
		Pluck("conversation_id", &ids).Error
	return ids, err
}

func (s *Service) LastMessageInConversation(conversationID string) (*models.Message, error) {
	var msg models.Message
	err := s.DB.Where("conversation_id = ? AND deleted = ?", conversationID, false).
		Order("created_at desc").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// SearchOwnMessages performs a case-insensitive substring match restricted
// to messages the user sent, newest first.
func (s *Service) SearchOwnMessages(userID, query string) ([]models.Message, error) {
	var messages []models.Message
	err := s.DB.Where("sender_id = ? AND deleted = ? AND content ILIKE ?",
		userID, false, "%"+query+"%").
		Order("created_at desc").
		Find(&messages).Error
	return messages, err
}

// SearchConversationMessages is the paginated substring search scoped to a
// single conversation.
func (s *Service) SearchConversationMessages(conversationID, query string, page, limit int) ([]models.Message, int64, error) {
	pattern := "%" + query + "%"

	var total int64
	if err := s.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND deleted = ? AND content ILIKE ?",
			conversationID, false, pattern).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var messages []models.Message
	err := s.DB.Where("conversation_id = ? AND deleted = ? AND content ILIKE ?",
		conversationID, false, pattern).
		Order("created_at desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

// DistinctCounterparts returns every user id that has exchanged at least one
// message with the given user. Used for presence status broadcasts.
func (s *Service) DistinctCounterparts(userID string) ([]string, error) {
	var senders, receivers []string

	if err := s.DB.Model(&models.Message{}).
		Where("receiver_id = ?", userID).
		Distinct().
		Pluck("sender_id", &senders).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&models.Message{}).
		Where("sender_id = ?", userID).
		Distinct().
		Pluck("receiver_id", &receivers).Error; err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(senders)+len(receivers))
	out := make([]string, 0, len(senders)+len(receivers))
	for _, id := range append(senders, receivers...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// FlagMessage marks a message for moderation review. Privileged: reached
// from the admin CLI, not from the chat protocol.
func (s *Service) FlagMessage(messageID, actorID, reason string) error {
	now := time.Now()
	res := s.DB.Model(&models.Message{}).
		Where("id = ?", messageID).
		Updates(map[string]interface{}{
			"flagged":     true,
			"flag_reason": reason,
			"flagged_by":  actorID,
			"flagged_at":  now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrMessageNotFound
	}
	return nil
}

func (s *Service) UnflagMessage(messageID string) error {
	res := s.DB.Model(&models.Message{}).
		Where("id = ?", messageID).
		Updates(map[string]interface{}{
			"flagged":     false,
			"flag_reason": "",
			"flagged_by":  "",
			"flagged_at":  nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrMessageNotFound
	}
	return nil
}

// AdminDeleteMessage is the privileged hard-delete path. It bypasses the
// sender check and removes the row.
func (s *Service) AdminDeleteMessage(messageID string) error {
	res := s.DB.Where("id = ?", messageID).Delete(&models.Message{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrMessageNotFound
	}
	return nil
}
