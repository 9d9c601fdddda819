// Package presence is the in-process registry of connected users. It is the
// single source of truth for "is this user online" and for resolving which
// connection a realtime notification should be pushed to.
//
// A user's presence is a set of live connections; the user counts as online
// while at least one connection remains. The tracker does no I/O: persisting
// the online flag and broadcasting status changes is the hub's job.
package presence

import (
	"sync"
	"time"
)

// Connection is one live socket belonging to a user.
type Connection struct {
	ConnID       string
	ConnectedAt  time.Time
	LastActivity time.Time
}

type record struct {
	userID      string
	username    string
	role        string
	connections map[string]*Connection
}

// Snapshot is a copy of a user's presence handed to callers.
type Snapshot struct {
	UserID      string
	Username    string
	Role        string
	Connections int
	LastActive  time.Time
}

type Tracker struct {
	mu     sync.RWMutex
	byUser map[string]*record
	bySock map[string]string // connection id -> user id
}

func NewTracker() *Tracker {
	return &Tracker{
		byUser: make(map[string]*record),
		bySock: make(map[string]string),
	}
}

// Connect registers a connection for the user. The first connection brings
// the user online; further connections from other devices coexist.
// It reports whether the user was offline before this call.
func (t *Tracker) Connect(userID, username, role, connID string) (cameOnline bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.byUser[userID]
	if !ok {
		rec = &record{
			userID:      userID,
			username:    username,
			role:        role,
			connections: make(map[string]*Connection),
		}
		t.byUser[userID] = rec
	}

	now := time.Now()
	rec.connections[connID] = &Connection{
		ConnID:       connID,
		ConnectedAt:  now,
		LastActivity: now,
	}
	t.bySock[connID] = userID
	return !ok
}

// Disconnect removes a connection. Removing an unknown or already-removed
// connection is a no-op. It reports the owning user and whether that user
// went fully offline.
func (t *Tracker) Disconnect(connID string) (userID string, wentOffline bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	userID, ok := t.bySock[connID]
	if !ok {
		return "", false
	}
	delete(t.bySock, connID)

	rec, ok := t.byUser[userID]
	if !ok {
		return userID, false
	}
	delete(rec.connections, connID)
	if len(rec.connections) == 0 {
		delete(t.byUser, userID)
		return userID, true
	}
	return userID, false
}

// Touch records activity on a connection. Called for every inbound protocol
// event.
func (t *Tracker) Touch(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	userID, ok := t.bySock[connID]
	if !ok {
		return
	}
	if rec, ok := t.byUser[userID]; ok {
		if conn, ok := rec.connections[connID]; ok {
			conn.LastActivity = time.Now()
		}
	}
}

func (t *Tracker) IsOnline(userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.byUser[userID]
	return ok && len(rec.connections) > 0
}

// SocketOf returns the user's most recently active connection id, or ok
// false when the user is offline.
func (t *Tracker) SocketOf(userID string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.byUser[userID]
	if !ok {
		return "", false
	}

	var (
		best     string
		bestSeen time.Time
	)
	for id, conn := range rec.connections {
		if best == "" || conn.LastActivity.After(bestSeen) {
			best = id
			bestSeen = conn.LastActivity
		}
	}
	return best, best != ""
}

// UsersByRole returns snapshots of every online user with the given role.
func (t *Tracker) UsersByRole(role string) []Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []Snapshot
	for _, rec := range t.byUser {
		if rec.role == role {
			out = append(out, snapshotOf(rec))
		}
	}
	return out
}

// Stats summarizes online users and connections, keyed by role plus the
// "users" and "connections" totals.
func (t *Tracker) Stats() map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := map[string]int{"users": 0, "connections": 0}
	for _, rec := range t.byUser {
		stats["users"]++
		stats["connections"] += len(rec.connections)
		stats[rec.role]++
	}
	return stats
}

// SweepInactive removes every connection whose last activity is older than
// threshold and returns a snapshot for each user that went fully offline.
// The cutoff is captured before iteration, so a connection touched while the
// sweep runs is never removed.
func (t *Tracker) SweepInactive(threshold time.Duration) []Snapshot {
	cutoff := time.Now().Add(-threshold)

	t.mu.Lock()
	defer t.mu.Unlock()

	var wentOffline []Snapshot
	for userID, rec := range t.byUser {
		for connID, conn := range rec.connections {
			if conn.LastActivity.Before(cutoff) {
				delete(rec.connections, connID)
				delete(t.bySock, connID)
			}
		}
		if len(rec.connections) == 0 {
			wentOffline = append(wentOffline, snapshotOf(rec))
			delete(t.byUser, userID)
		}
	}
	return wentOffline
}

func snapshotOf(rec *record) Snapshot {
	s := Snapshot{
		UserID:      rec.userID,
		Username:    rec.username,
		Role:        rec.role,
		Connections: len(rec.connections),
	}
	for _, conn := range rec.connections {
		if conn.LastActivity.After(s.LastActive) {
			s.LastActive = conn.LastActivity
		}
	}
	return s
}
