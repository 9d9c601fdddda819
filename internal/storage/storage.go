package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"artmarket/backend/internal/apperrors"
	"artmarket/backend/internal/logger"
	"artmarket/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Storage is the persistence surface consumed by the chat protocol, the
// conversation directory and the moderation CLI.
type Storage interface {
	// Identity collaborator reads and the block-list mutation the core
	// performs on its behalf.
	GetUserByID(id string) (*models.User, error)
	SaveUser(user *models.User) error
	AddBlockedUser(blockerID, targetID string) error
	RemoveBlockedUser(blockerID, targetID string) error
	SetUserOnline(userID string, online bool) error
	VerifyUser(userID string) error

	// Message store.
	AppendMessage(senderID, receiverID, content string) (*models.Message, error)
	GetMessageByID(id string) (*models.Message, error)
	MarkConversationRead(conversationID, readerID string) (int64, error)
	MarkDelivered(messageID string) error
	SoftDeleteMessage(messageID, actorID, reason string) error
	EditMessage(messageID, actorID, newContent string) (*models.Message, error)
	CountUnread(userID string) (int64, error)
	CountUnreadInConversation(conversationID, userID string) (int64, error)
	ConversationMessages(conversationID string, page, limit int) ([]models.Message, int64, error)
	ConversationIDsForUser(userID string) ([]string, error)
	LastMessageInConversation(conversationID string) (*models.Message, error)
	SearchOwnMessages(userID, query string) ([]models.Message, error)
	SearchConversationMessages(conversationID, query string, page, limit int) ([]models.Message, int64, error)
	DistinctCounterparts(userID string) ([]string, error)

	// Privileged moderation paths, reached from cmd/admin only.
	FlagMessage(messageID, actorID, reason string) error
	UnflagMessage(messageID string) error
	AdminDeleteMessage(messageID string) error

	// Cross-instance event fan-out.
	PublishEvent(ev models.BroadcastEvent) error
	SubscribeEvents() *redis.PubSub
}

// Service implements Storage on PostgreSQL (gorm) and Redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// eventsChannel is the Redis pub/sub channel carrying realtime events
// between instances.
const eventsChannel = "chat:events"

func (s *Service) GetUserByID(id string) (*models.User, error) {
	var user models.User
	err := s.DB.Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		logger.Log.Error("failed to load user", zap.String("user_id", id), zap.Error(err))
		return nil, err
	}
	return &user, nil
}

func (s *Service) SaveUser(user *models.User) error {
	return s.DB.Save(user).Error
}

// AddBlockedUser appends targetID to the blocker's block list. Adding an id
// that is already present is a no-op.
func (s *Service) AddBlockedUser(blockerID, targetID string) error {
	return s.DB.Model(&models.User{}).
		Where("id = ? AND NOT (? = ANY(blocked_users))", blockerID, targetID).
		Update("blocked_users", gorm.Expr("array_append(blocked_users, ?)", targetID)).Error
}

func (s *Service) RemoveBlockedUser(blockerID, targetID string) error {
	return s.DB.Model(&models.User{}).
		Where("id = ?", blockerID).
		Update("blocked_users", gorm.Expr("array_remove(blocked_users, ?)", targetID)).Error
}

// SetUserOnline persists the online flag with last-seen = now and mirrors it
// in Redis for fast cross-instance lookups.
func (s *Service) SetUserOnline(userID string, online bool) error {
	now := time.Now()
	err := s.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"is_online": online,
			"last_seen": now,
		}).Error
	if err != nil {
		return err
	}

	if s.Redis == nil {
		return nil
	}
	key := "online:" + userID
	if online {
		return s.Redis.Set(s.Ctx, key, now.Format(time.RFC3339), 0).Err()
	}
	return s.Redis.Del(s.Ctx, key).Err()
}

func (s *Service) VerifyUser(userID string) error {
	res := s.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Update("is_verified", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// PublishEvent publishes a realtime event on the shared fan-out channel.
func (s *Service) PublishEvent(ev models.BroadcastEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, eventsChannel, payload).Err()
}

// SubscribeEvents subscribes to the shared fan-out channel.
func (s *Service) SubscribeEvents() *redis.PubSub {
	return s.Redis.Subscribe(s.Ctx, eventsChannel)
}
