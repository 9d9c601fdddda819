package chathub_test

import (
	"artmarket/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify mock of the storage.Storage interface.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetUserByID(id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) SaveUser(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockStorage) AddBlockedUser(blockerID, targetID string) error {
	args := m.Called(blockerID, targetID)
	return args.Error(0)
}

func (m *MockStorage) RemoveBlockedUser(blockerID, targetID string) error {
	args := m.Called(blockerID, targetID)
	return args.Error(0)
}

func (m *MockStorage) SetUserOnline(userID string, online bool) error {
	args := m.Called(userID, online)
	return args.Error(0)
}

func (m *MockStorage) VerifyUser(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockStorage) AppendMessage(senderID, receiverID, content string) (*models.Message, error) {
	args := m.Called(senderID, receiverID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockStorage) GetMessageByID(id string) (*models.Message, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockStorage) MarkConversationRead(conversationID, readerID string) (int64, error) {
	args := m.Called(conversationID, readerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) MarkDelivered(messageID string) error {
	args := m.Called(messageID)
	return args.Error(0)
}

func (m *MockStorage) SoftDeleteMessage(messageID, actorID, reason string) error {
	args := m.Called(messageID, actorID, reason)
	return args.Error(0)
}

func (m *MockStorage) EditMessage(messageID, actorID, newContent string) (*models.Message, error) {
	args := m.Called(messageID, actorID, newContent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockStorage) CountUnread(userID string) (int64, error) {
	args := m.Called(userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) CountUnreadInConversation(conversationID, userID string) (int64, error) {
	args := m.Called(conversationID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) ConversationMessages(conversationID string, page, limit int) ([]models.Message, int64, error) {
	args := m.Called(conversationID, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Message), args.Get(1).(int64), args.Error(2)
}

func (m *MockStorage) ConversationIDsForUser(userID string) ([]string, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorage) LastMessageInConversation(conversationID string) (*models.Message, error) {
	args := m.Called(conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockStorage) SearchOwnMessages(userID, query string) ([]models.Message, error) {
	args := m.Called(userID, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockStorage) SearchConversationMessages(conversationID, query string, page, limit int) ([]models.Message, int64, error) {
	args := m.Called(conversationID, query, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Message), args.Get(1).(int64), args.Error(2)
}

func (m *MockStorage) DistinctCounterparts(userID string) ([]string, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorage) FlagMessage(messageID, actorID, reason string) error {
	args := m.Called(messageID, actorID, reason)
	return args.Error(0)
}

func (m *MockStorage) UnflagMessage(messageID string) error {
	args := m.Called(messageID)
	return args.Error(0)
}

func (m *MockStorage) AdminDeleteMessage(messageID string) error {
	args := m.Called(messageID)
	return args.Error(0)
}

func (m *MockStorage) PublishEvent(ev models.BroadcastEvent) error {
	args := m.Called(ev)
	return args.Error(0)
}

func (m *MockStorage) SubscribeEvents() *redis.PubSub {
	args := m.Called()
	return args.Get(0).(*redis.PubSub)
}

// mockClient is a test double for the chathub.Client interface.
type mockClient struct {
	userID   string
	username string
	role     string
	connID   string
	Recv     chan models.EventEnvelope
}

func newMockClient(userID, username, role, connID string) *mockClient {
	return &mockClient{
		userID:   userID,
		username: username,
		role:     role,
		connID:   connID,
		Recv:     make(chan models.EventEnvelope, 32), // Buffered to prevent blocking in tests
	}
}

func (c *mockClient) GetUserID() string   { return c.userID }
func (c *mockClient) GetUsername() string { return c.username }
func (c *mockClient) GetRole() string     { return c.role }
func (c *mockClient) GetConnID() string   { return c.connID }

func (c *mockClient) GetSendChannel() chan<- models.EventEnvelope { return c.Recv }

func (c *mockClient) Run()   {}
func (c *mockClient) Close() {}

// drain empties the receive channel and returns everything that was queued.
func (c *mockClient) drain() []models.EventEnvelope {
	var events []models.EventEnvelope
	for {
		select {
		case ev := <-c.Recv:
			events = append(events, ev)
		default:
			return events
		}
	}
}

// eventsOfType filters drained events by type.
func eventsOfType(events []models.EventEnvelope, eventType string) []models.EventEnvelope {
	var out []models.EventEnvelope
	for _, ev := range events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}
