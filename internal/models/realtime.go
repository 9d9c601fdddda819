package models

import (
	"encoding/json"
	"time"
)

// Protocol event names. Inbound events arrive as an EventEnvelope whose Type
// selects the payload struct; outbound events are serialized the same way.
const (
	// inbound
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventTypingStart       = "typing_start"
	EventTypingStop        = "typing_stop"
	EventSendMessage       = "send_message"
	EventMarkAsRead        = "mark_as_read"
	EventBlockUser         = "block_user"

	// outbound
	EventMessageSent         = "message_sent"
	EventNewMessage          = "new_message"
	EventConversationMessage = "conversation_message"
	EventMessageError        = "message_error"
	EventUserTyping          = "user_typing"
	EventMessagesRead        = "messages_read"
	EventUserStatusChange    = "user_status_change"
	EventConversationBlocked = "conversation_blocked"
)

// EventEnvelope is the wire frame for every protocol event.
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent wraps a payload into an envelope. Marshal failures surface as an
// empty Data field; payload structs here contain nothing unmarshalable.
func NewEvent(eventType string, payload interface{}) EventEnvelope {
	data, _ := json.Marshal(payload)
	return EventEnvelope{Type: eventType, Data: data}
}

// Inbound payloads.

type CounterpartPayload struct {
	OtherUserID string `json:"otherUserId"`
}

type SendMessagePayload struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
}

type BlockUserPayload struct {
	TargetUserID string `json:"targetUserId"`
}

// Outbound payloads.

type MessagePayload struct {
	Message        *Message `json:"message"`
	ConversationID string   `json:"conversationId"`
}

type MessageErrorPayload struct {
	Message    string   `json:"message"`
	Violations []string `json:"violations,omitempty"`
}

type UserTypingPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type MessagesReadPayload struct {
	ReadByUserID   string `json:"readByUserId"`
	ConversationID string `json:"conversationId"`
}

type UserStatusChangePayload struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	IsOnline  bool      `json:"isOnline"`
	Timestamp time.Time `json:"timestamp"`
}

type ConversationBlockedPayload struct {
	BlockedByUserID string `json:"blockedByUserId"`
	ConversationID  string `json:"conversationId"`
}

// BroadcastEvent is the cross-instance fan-out frame published on Redis.
// Rooms and user channels are resolved locally on the receiving instance;
// Origin lets the publishing instance skip its own echo.
type BroadcastEvent struct {
	Origin         string        `json:"origin"`
	ConversationID string        `json:"conversationId,omitempty"`
	TargetUserID   string        `json:"targetUserId,omitempty"`
	Event          EventEnvelope `json:"event"`
}
