package chathub

import (
	"strings"
	"time"

	"artmarket/backend/internal/config"
	"artmarket/backend/internal/models"
	"artmarket/backend/internal/storage"
)

// Typing indicators are a per (sender, receiver) ordered pair state machine:
// idle -> typing on typing_start (arming an inactivity timer), typing -> idle
// on typing_stop, on the timer firing, or on message send. A typing_start
// while already typing re-arms the timer instead of stacking a second one.

func typingKey(senderID, receiverID string) string {
	return senderID + ":" + receiverID
}

// startTyping arms (or re-arms) the debounce timer for the pair and notifies
// the receiver.
func (m *ManagerService) startTyping(client Client, receiverID string) {
	key := typingKey(client.GetUserID(), receiverID)

	m.mu.Lock()
	if prev, ok := m.typing[key]; ok {
		prev.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(config.TypingTimeout, func() {
		m.expireTyping(client, receiverID, timer)
	})
	m.typing[key] = timer
	m.mu.Unlock()

	m.notifyTyping(client, receiverID, true)
}

// stopTyping clears the pair's typing state. The isTyping:false notification
// is emitted only when the pair was actually typing, so the receiver sees
// exactly one transition.
func (m *ManagerService) stopTyping(client Client, receiverID string) {
	key := typingKey(client.GetUserID(), receiverID)

	m.mu.Lock()
	timer, ok := m.typing[key]
	if ok {
		timer.Stop()
		delete(m.typing, key)
	}
	m.mu.Unlock()

	if ok {
		m.notifyTyping(client, receiverID, false)
	}
}

// expireTyping is the timer callback: the sender went silent for the full
// timeout. own is the timer the callback belongs to; if the pair was
// re-armed while this callback was in flight, the registered timer differs
// and the transition belongs to it, not us.
func (m *ManagerService) expireTyping(client Client, receiverID string, own *time.Timer) {
	key := typingKey(client.GetUserID(), receiverID)

	m.mu.Lock()
	current, ok := m.typing[key]
	owns := ok && current == own
	if owns {
		delete(m.typing, key)
	}
	m.mu.Unlock()

	if owns {
		m.notifyTyping(client, receiverID, false)
	}
}

// cancelTypingForUser drops every timer the user owns without emitting,
// used when the user disconnects entirely.
func (m *ManagerService) cancelTypingForUser(userID string) {
	prefix := userID + ":"

	m.mu.Lock()
	defer m.mu.Unlock()
	for key, timer := range m.typing {
		if strings.HasPrefix(key, prefix) {
			timer.Stop()
			delete(m.typing, key)
		}
	}
}

func (m *ManagerService) notifyTyping(client Client, receiverID string, isTyping bool) {
	ev := models.NewEvent(models.EventUserTyping, models.UserTypingPayload{
		UserID:   client.GetUserID(),
		Username: client.GetUsername(),
		IsTyping: isTyping,
	})
	m.emitToUser(receiverID, ev)
	m.publish(models.BroadcastEvent{
		Origin:         m.instanceID,
		ConversationID: storage.ConversationID(client.GetUserID(), receiverID),
		TargetUserID:   receiverID,
		Event:          ev,
	})
}
