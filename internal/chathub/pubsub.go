package chathub

import (
	"encoding/json"

	"artmarket/backend/internal/logger"
	"artmarket/backend/internal/models"

	"go.uber.org/zap"
)

// StartPubSubListener subscribes to the shared Redis event channel and
// re-delivers events published by other instances to locally connected
// targets. Events originating from this instance are skipped: local delivery
// already happened before publishing.
func (m *ManagerService) StartPubSubListener() {
	go func() {
		pubsub := m.Storage.SubscribeEvents()
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev models.BroadcastEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					logger.Log.Error("failed to decode fan-out event", zap.Error(err))
					continue
				}
				m.deliverRemote(ev)
			case <-m.stopCh:
				return
			}
		}
	}()
}

func (m *ManagerService) deliverRemote(ev models.BroadcastEvent) {
	if ev.Origin == m.instanceID {
		return
	}
	if ev.TargetUserID != "" {
		m.emitToUser(ev.TargetUserID, ev.Event)
	}
	if ev.ConversationID != "" {
		// Room members other than the target also see conversation-scoped
		// events (the target already got its copy above).
		m.mu.RLock()
		members := make([]Client, 0, len(m.rooms[ev.ConversationID]))
		for _, client := range m.rooms[ev.ConversationID] {
			if client.GetUserID() != ev.TargetUserID {
				members = append(members, client)
			}
		}
		m.mu.RUnlock()

		for _, client := range members {
			m.emitToConn(client, ev.Event)
		}
	}
}
