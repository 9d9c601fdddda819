package chathub

import (
	"sync"
	"time"

	"artmarket/backend/internal/logger"
	"artmarket/backend/internal/models"
	"artmarket/backend/internal/presence"
	"artmarket/backend/internal/storage"

	"go.uber.org/zap"
)

// ManagerService is the hub: it owns the set of live clients, the
// conversation rooms and the typing timers, and orchestrates presence
// persistence and status broadcasts around connection lifecycle.
//
// Protocol events are dispatched on each connection's read goroutine, so one
// connection's events are handled strictly in order while different
// connections interleave freely. The maps below are the only shared mutable
// state and are guarded by mu.
type ManagerService struct {
	RegisterCh   chan Client
	UnregisterCh chan Client

	Storage  storage.Storage
	Presence *presence.Tracker

	// instanceID distinguishes this process in the Redis fan-out so it can
	// skip its own echoes.
	instanceID string

	mu      sync.RWMutex
	clients map[string]Client            // connection id -> client
	rooms   map[string]map[string]Client // conversation id -> connection id -> client
	typing  map[string]*time.Timer       // "senderID:receiverID" -> debounce timer

	stopCh chan struct{}
}

// NewManagerService creates the hub.
func NewManagerService(s storage.Storage, tracker *presence.Tracker, instanceID string) *ManagerService {
	return &ManagerService{
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		Storage:      s,
		Presence:     tracker,
		instanceID:   instanceID,
		clients:      make(map[string]Client),
		rooms:        make(map[string]map[string]Client),
		typing:       make(map[string]*time.Timer),
		stopCh:       make(chan struct{}),
	}
}

// Run processes connection lifecycle events. Start it as a goroutine.
func (m *ManagerService) Run() {
	for {
		select {
		case client := <-m.RegisterCh:
			m.register(client)
		case client := <-m.UnregisterCh:
			m.unregister(client)
		case <-m.stopCh:
			return
		}
	}
}

// Stop terminates Run and the sweeper.
func (m *ManagerService) Stop() {
	close(m.stopCh)
}

// StartSweeper periodically removes presence records that have gone silent,
// persisting and broadcasting the offline transition for each removed user.
func (m *ManagerService) StartSweeper(interval, threshold time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				for _, snap := range m.Presence.SweepInactive(threshold) {
					logger.Log.Info("presence sweep removed inactive user",
						zap.String("user_id", snap.UserID))
					m.setOffline(snap.UserID, snap.Username, snap.Role)
				}
			case <-m.stopCh:
				return
			}
		}
	}()
}

func (m *ManagerService) register(client Client) {
	m.mu.Lock()
	m.clients[client.GetConnID()] = client
	m.mu.Unlock()

	cameOnline := m.Presence.Connect(
		client.GetUserID(), client.GetUsername(), client.GetRole(), client.GetConnID())

	logger.Log.Info("client connected",
		zap.String("user_id", client.GetUserID()),
		zap.String("conn_id", client.GetConnID()))

	if cameOnline {
		if err := m.Storage.SetUserOnline(client.GetUserID(), true); err != nil {
			logger.Log.Error("failed to persist online status", zap.Error(err))
		}
		m.broadcastStatus(client.GetUserID(), client.GetUsername(), client.GetRole(), true)
	}
}

func (m *ManagerService) unregister(client Client) {
	connID := client.GetConnID()

	m.mu.Lock()
	if _, ok := m.clients[connID]; ok {
		delete(m.clients, connID)
		client.Close()
	}
	for convID, members := range m.rooms {
		if _, ok := members[connID]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(m.rooms, convID)
			}
		}
	}
	m.mu.Unlock()

	userID, wentOffline := m.Presence.Disconnect(connID)
	if userID == "" {
		return
	}

	logger.Log.Info("client disconnected",
		zap.String("user_id", userID), zap.String("conn_id", connID))

	if wentOffline {
		m.cancelTypingForUser(userID)
		m.setOffline(userID, client.GetUsername(), client.GetRole())
	}
}

func (m *ManagerService) setOffline(userID, username, role string) {
	if err := m.Storage.SetUserOnline(userID, false); err != nil {
		logger.Log.Error("failed to persist offline status", zap.Error(err))
	}
	m.broadcastStatus(userID, username, role, false)
}

// broadcastStatus notifies every user who has exchanged at least one message
// with the subject that their online state changed.
func (m *ManagerService) broadcastStatus(userID, username, role string, online bool) {
	counterparts, err := m.Storage.DistinctCounterparts(userID)
	if err != nil {
		logger.Log.Error("failed to resolve status broadcast targets",
			zap.String("user_id", userID), zap.Error(err))
		return
	}

	ev := models.NewEvent(models.EventUserStatusChange, models.UserStatusChangePayload{
		UserID:    userID,
		Username:  username,
		Role:      role,
		IsOnline:  online,
		Timestamp: time.Now(),
	})

	for _, counterpartID := range counterparts {
		if m.Presence.IsOnline(counterpartID) {
			m.emitToUser(counterpartID, ev)
		}
		m.publish(models.BroadcastEvent{
			Origin:       m.instanceID,
			TargetUserID: counterpartID,
			Event:        ev,
		})
	}
}

// emitToConn delivers an event to one connection, dropping it if the
// client's send buffer is full.
func (m *ManagerService) emitToConn(client Client, ev models.EventEnvelope) {
	select {
	case client.GetSendChannel() <- ev:
	default:
		logger.Log.Warn("send buffer full, dropping event",
			zap.String("conn_id", client.GetConnID()),
			zap.String("event", ev.Type))
	}
}

// emitToUser delivers an event to every connection of the given user.
func (m *ManagerService) emitToUser(userID string, ev models.EventEnvelope) {
	m.mu.RLock()
	targets := make([]Client, 0, 2)
	for _, client := range m.clients {
		if client.GetUserID() == userID {
			targets = append(targets, client)
		}
	}
	m.mu.RUnlock()

	for _, client := range targets {
		m.emitToConn(client, ev)
	}
}

// emitToRoom delivers an event to every connection joined to the
// conversation room, except the named connection.
func (m *ManagerService) emitToRoom(conversationID string, ev models.EventEnvelope, exceptConnID string) {
	m.mu.RLock()
	members := make([]Client, 0, len(m.rooms[conversationID]))
	for connID, client := range m.rooms[conversationID] {
		if connID != exceptConnID {
			members = append(members, client)
		}
	}
	m.mu.RUnlock()

	for _, client := range members {
		m.emitToConn(client, ev)
	}
}

func (m *ManagerService) joinRoom(conversationID string, client Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	members, ok := m.rooms[conversationID]
	if !ok {
		members = make(map[string]Client)
		m.rooms[conversationID] = members
	}
	members[client.GetConnID()] = client
}

func (m *ManagerService) leaveRoom(conversationID string, client Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if members, ok := m.rooms[conversationID]; ok {
		delete(members, client.GetConnID())
		if len(members) == 0 {
			delete(m.rooms, conversationID)
		}
	}
}

// leaveRoomAllConns removes every connection of the user from the room,
// used when the user blocks the counterpart.
func (m *ManagerService) leaveRoomAllConns(conversationID, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if members, ok := m.rooms[conversationID]; ok {
		for connID, client := range members {
			if client.GetUserID() == userID {
				delete(members, connID)
			}
		}
		if len(members) == 0 {
			delete(m.rooms, conversationID)
		}
	}
}

// InRoom reports room membership for a connection.
func (m *ManagerService) InRoom(conversationID, connID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rooms[conversationID][connID]
	return ok
}

// ClientCount returns the number of live connections.
func (m *ManagerService) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// publish sends an event into the Redis fan-out. Publish failures are
// operational faults, not protocol errors: local delivery already happened.
func (m *ManagerService) publish(ev models.BroadcastEvent) {
	if err := m.Storage.PublishEvent(ev); err != nil {
		logger.Log.Error("failed to publish event", zap.Error(err))
	}
}
