package chathub

import (
	"encoding/json"
	"errors"

	"artmarket/backend/internal/apperrors"
	"artmarket/backend/internal/contentfilter"
	"artmarket/backend/internal/logger"
	"artmarket/backend/internal/models"
	"artmarket/backend/internal/storage"

	"go.uber.org/zap"
)

// HandleEvent dispatches one inbound protocol event. It runs on the
// connection's read goroutine: events from the same connection are handled
// to completion in order, while other connections proceed concurrently.
func (m *ManagerService) HandleEvent(client Client, env models.EventEnvelope) {
	m.Presence.Touch(client.GetConnID())

	var err error
	switch env.Type {
	case models.EventJoinConversation:
		var p models.CounterpartPayload
		if err = decode(env.Data, &p); err == nil {
			err = m.handleJoin(client, p.OtherUserID)
		}
	case models.EventLeaveConversation:
		var p models.CounterpartPayload
		if err = decode(env.Data, &p); err == nil {
			err = m.handleLeave(client, p.OtherUserID)
		}
	case models.EventTypingStart:
		var p models.CounterpartPayload
		if err = decode(env.Data, &p); err == nil {
			err = m.handleTyping(client, p.OtherUserID, true)
		}
	case models.EventTypingStop:
		var p models.CounterpartPayload
		if err = decode(env.Data, &p); err == nil {
			err = m.handleTyping(client, p.OtherUserID, false)
		}
	case models.EventSendMessage:
		var p models.SendMessagePayload
		if err = decode(env.Data, &p); err == nil {
			err = m.handleSend(client, p)
		}
	case models.EventMarkAsRead:
		var p models.CounterpartPayload
		if err = decode(env.Data, &p); err == nil {
			err = m.handleMarkRead(client, p.OtherUserID)
		}
	case models.EventBlockUser:
		var p models.BlockUserPayload
		if err = decode(env.Data, &p); err == nil {
			err = m.handleBlock(client, p.TargetUserID)
		}
	default:
		err = apperrors.Validation("unknown event type")
	}

	if err != nil {
		m.emitError(client, err)
	}
}

func decode(data json.RawMessage, dst interface{}) error {
	if len(data) == 0 {
		return apperrors.ErrInvalidMessageData
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return apperrors.ErrInvalidMessageData
	}
	return nil
}

// counterpart validates and loads the other participant for an operation,
// enforcing the role boundary: messaging only occurs between users of
// differing roles.
func (m *ManagerService) counterpart(client Client, otherUserID string) (*models.User, error) {
	if otherUserID == "" {
		return nil, apperrors.ErrInvalidMessageData
	}
	if otherUserID == client.GetUserID() {
		return nil, apperrors.ErrSelfTarget
	}
	other, err := m.Storage.GetUserByID(otherUserID)
	if err != nil {
		return nil, err
	}
	if other.Role == client.GetRole() {
		return nil, apperrors.ErrSameRole
	}
	return other, nil
}

// handleJoin registers the caller's connection into the conversation-scoped
// broadcast group.
func (m *ManagerService) handleJoin(client Client, otherUserID string) error {
	other, err := m.counterpart(client, otherUserID)
	if err != nil {
		return err
	}

	// Block state forbids entering the shared room, without confirming which
	// side blocked.
	me, err := m.Storage.GetUserByID(client.GetUserID())
	if err != nil {
		return err
	}
	if me.HasBlocked(other.ID) || other.HasBlocked(me.ID) {
		return apperrors.ErrUnableToSend
	}

	m.joinRoom(storage.ConversationID(client.GetUserID(), otherUserID), client)
	return nil
}

// handleLeave removes the connection from the room and clears any typing
// indicator toward that counterpart.
func (m *ManagerService) handleLeave(client Client, otherUserID string) error {
	if otherUserID == "" || otherUserID == client.GetUserID() {
		return apperrors.ErrInvalidMessageData
	}
	m.leaveRoom(storage.ConversationID(client.GetUserID(), otherUserID), client)
	m.stopTyping(client, otherUserID)
	return nil
}

func (m *ManagerService) handleTyping(client Client, otherUserID string, start bool) error {
	if otherUserID == "" || otherUserID == client.GetUserID() {
		return apperrors.ErrInvalidMessageData
	}
	if start {
		m.startTyping(client, otherUserID)
	} else {
		m.stopTyping(client, otherUserID)
	}
	return nil
}

// handleSend runs the synchronous send sequence: validate receiver, check
// block state both ways, score the content, persist the sanitized message,
// clear typing, upgrade to delivered when the receiver is online, then emit
// confirmations and notifications. Steps already committed are not rolled
// back on a later failure (at-least-once).
func (m *ManagerService) handleSend(client Client, p models.SendMessagePayload) error {
	if p.ReceiverID == "" || p.ReceiverID == client.GetUserID() || p.Content == "" {
		return apperrors.ErrInvalidMessageData
	}
	receiver, err := m.Storage.GetUserByID(p.ReceiverID)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeNotFound {
			return apperrors.ErrReceiverNotFound
		}
		return err
	}
	if receiver.Role == client.GetRole() {
		return apperrors.ErrSameRole
	}

	sender, err := m.Storage.GetUserByID(client.GetUserID())
	if err != nil {
		return err
	}
	// Checked both directions; the rejection never confirms block state.
	if receiver.HasBlocked(sender.ID) || sender.HasBlocked(receiver.ID) {
		return apperrors.ErrUnableToSend
	}

	report := contentfilter.Analyze(p.Content)
	if !report.Acceptable {
		return apperrors.ContentRejected(report.Violations)
	}

	msg, err := m.Storage.AppendMessage(sender.ID, receiver.ID, contentfilter.Sanitize(p.Content))
	if err != nil {
		logger.Log.Error("failed to persist message",
			zap.String("sender_id", sender.ID), zap.Error(err))
		return apperrors.ErrSendFailed
	}

	// From here the message exists; failures surface as a generic error.
	m.stopTyping(client, receiver.ID)

	if m.Presence.IsOnline(receiver.ID) {
		if err := m.Storage.MarkDelivered(msg.ID); err != nil {
			logger.Log.Error("failed to mark message delivered",
				zap.String("message_id", msg.ID), zap.Error(err))
			return apperrors.ErrSendFailed
		}
		msg.Status = models.StatusDelivered
	}

	payload := models.MessagePayload{Message: msg, ConversationID: msg.ConversationID}
	m.emitToConn(client, models.NewEvent(models.EventMessageSent, payload))

	newMsgEv := models.NewEvent(models.EventNewMessage, payload)
	if m.Presence.IsOnline(receiver.ID) {
		m.emitToUser(receiver.ID, newMsgEv)
	}
	m.emitToRoom(msg.ConversationID,
		models.NewEvent(models.EventConversationMessage, payload), client.GetConnID())

	m.publish(models.BroadcastEvent{
		Origin:         m.instanceID,
		ConversationID: msg.ConversationID,
		TargetUserID:   receiver.ID,
		Event:          newMsgEv,
	})
	return nil
}

// handleMarkRead transitions every unread message addressed to the caller in
// the conversation to read and notifies the counterpart.
func (m *ManagerService) handleMarkRead(client Client, otherUserID string) error {
	other, err := m.counterpart(client, otherUserID)
	if err != nil {
		return err
	}

	convID := storage.ConversationID(client.GetUserID(), other.ID)
	count, err := m.Storage.MarkConversationRead(convID, client.GetUserID())
	if err != nil {
		logger.Log.Error("failed to mark conversation read",
			zap.String("conversation_id", convID), zap.Error(err))
		return apperrors.ErrSendFailed
	}
	if count == 0 {
		// Nothing was unread; idempotent no-op.
		return nil
	}

	ev := models.NewEvent(models.EventMessagesRead, models.MessagesReadPayload{
		ReadByUserID:   client.GetUserID(),
		ConversationID: convID,
	})
	m.emitToUser(other.ID, ev)
	m.publish(models.BroadcastEvent{
		Origin:         m.instanceID,
		ConversationID: convID,
		TargetUserID:   other.ID,
		Event:          ev,
	})
	return nil
}

// handleBlock toggles the caller's block edge toward the target. On block,
// the caller leaves the shared room and the blocked party learns the
// conversation is closed; on unblock the edge is simply removed.
func (m *ManagerService) handleBlock(client Client, targetUserID string) error {
	target, err := m.counterpart(client, targetUserID)
	if err != nil {
		return err
	}

	me, err := m.Storage.GetUserByID(client.GetUserID())
	if err != nil {
		return err
	}

	convID := storage.ConversationID(me.ID, target.ID)

	if me.HasBlocked(target.ID) {
		return m.Storage.RemoveBlockedUser(me.ID, target.ID)
	}

	if err := m.Storage.AddBlockedUser(me.ID, target.ID); err != nil {
		logger.Log.Error("failed to update block list",
			zap.String("user_id", me.ID), zap.Error(err))
		return apperrors.ErrSendFailed
	}

	m.leaveRoomAllConns(convID, me.ID)
	m.stopTyping(client, target.ID)

	ev := models.NewEvent(models.EventConversationBlocked, models.ConversationBlockedPayload{
		BlockedByUserID: me.ID,
		ConversationID:  convID,
	})
	if m.Presence.IsOnline(target.ID) {
		m.emitToUser(target.ID, ev)
	}
	m.publish(models.BroadcastEvent{
		Origin:         m.instanceID,
		ConversationID: convID,
		TargetUserID:   target.ID,
		Event:          ev,
	})
	return nil
}

// emitError reports a rejected operation back to the originating connection.
// Business-rule rejections carry their specific reason; operational faults
// surface as a generic failure and are logged instead.
func (m *ManagerService) emitError(client Client, err error) {
	payload := models.MessageErrorPayload{Message: "failed to send message"}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && apperrors.IsExpected(err) {
		payload.Message = appErr.Message
		payload.Violations = appErr.Violations
	} else {
		logger.Log.Error("protocol operation failed",
			zap.String("user_id", client.GetUserID()), zap.Error(err))
	}

	m.emitToConn(client, models.NewEvent(models.EventMessageError, payload))
}
