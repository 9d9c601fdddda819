package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Delivery status values. A message only ever advances forward through
// sent -> delivered -> read.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// Message represents a single chat communication between two users.
// Conversations are not stored independently; they exist as the grouping of
// messages sharing a ConversationID.
type Message struct {
	ID             string `gorm:"primaryKey" json:"id"`
	SenderID       string `gorm:"type:text;not null;index" json:"senderId"`
	ReceiverID     string `gorm:"type:text;not null;index" json:"receiverId"`
	ConversationID string `gorm:"type:text;not null;index:idx_conv_created" json:"conversationId"`
	// Content is stored post-filter: contact information redacted and
	// profanity masked.
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index:idx_conv_created" json:"createdAt"`

	Read   bool       `gorm:"not null;default:false" json:"read"`
	ReadAt *time.Time `json:"readAt,omitempty"`
	Status string     `gorm:"type:text;not null;default:sent" json:"status"`

	// Soft delete. Normal users never hard-delete; list/read queries exclude
	// deleted rows.
	Deleted      bool       `gorm:"not null;default:false" json:"-"`
	DeletedAt    *time.Time `json:"-"`
	DeletedBy    string     `gorm:"type:text" json:"-"`
	DeleteReason string     `gorm:"type:text" json:"-"`

	// Moderation flags, also writable by the admin moderation collaborator.
	Flagged    bool       `gorm:"not null;default:false" json:"flagged,omitempty"`
	FlagReason string     `gorm:"type:text" json:"-"`
	FlaggedBy  string     `gorm:"type:text" json:"-"`
	FlaggedAt  *time.Time `json:"-"`

	// Edit tracking. The pre-edit content is preserved.
	Edited          bool       `gorm:"not null;default:false" json:"edited,omitempty"`
	EditedAt        *time.Time `json:"editedAt,omitempty"`
	OriginalContent string     `gorm:"type:text" json:"-"`
}

// BeforeCreate is a GORM hook that assigns a UUID when the ID is unset.
func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}
