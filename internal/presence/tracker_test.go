package presence_test

import (
	"testing"
	"time"

	"artmarket/backend/internal/presence"

	"github.com/stretchr/testify/assert"
)

func TestTracker_ConnectDisconnect(t *testing.T) {
	tr := presence.NewTracker()

	cameOnline := tr.Connect("u1", "alice", "artist", "sock-1")
	assert.True(t, cameOnline)
	assert.True(t, tr.IsOnline("u1"))

	sock, ok := tr.SocketOf("u1")
	assert.True(t, ok)
	assert.Equal(t, "sock-1", sock)

	userID, wentOffline := tr.Disconnect("sock-1")
	assert.Equal(t, "u1", userID)
	assert.True(t, wentOffline)
	assert.False(t, tr.IsOnline("u1"))
}

func TestTracker_DisconnectUnknownIsNoop(t *testing.T) {
	tr := presence.NewTracker()

	userID, wentOffline := tr.Disconnect("never-registered")
	assert.Empty(t, userID)
	assert.False(t, wentOffline)

	// Double-remove of the same connection must be tolerated too.
	tr.Connect("u1", "alice", "artist", "sock-1")
	tr.Disconnect("sock-1")
	userID, wentOffline = tr.Disconnect("sock-1")
	assert.Empty(t, userID)
	assert.False(t, wentOffline)
}

func TestTracker_MultiDevice(t *testing.T) {
	tr := presence.NewTracker()

	assert.True(t, tr.Connect("u1", "alice", "artist", "phone"))
	assert.False(t, tr.Connect("u1", "alice", "artist", "laptop"))

	// Dropping one device keeps the user online.
	_, wentOffline := tr.Disconnect("phone")
	assert.False(t, wentOffline)
	assert.True(t, tr.IsOnline("u1"))

	_, wentOffline = tr.Disconnect("laptop")
	assert.True(t, wentOffline)
	assert.False(t, tr.IsOnline("u1"))
}

func TestTracker_SocketOfPrefersRecentActivity(t *testing.T) {
	tr := presence.NewTracker()
	tr.Connect("u1", "alice", "artist", "old")
	tr.Connect("u1", "alice", "artist", "new")

	time.Sleep(5 * time.Millisecond)
	tr.Touch("old")

	sock, ok := tr.SocketOf("u1")
	assert.True(t, ok)
	assert.Equal(t, "old", sock)
}

func TestTracker_UsersByRoleAndStats(t *testing.T) {
	tr := presence.NewTracker()
	tr.Connect("a1", "alice", "artist", "s1")
	tr.Connect("a2", "anna", "artist", "s2")
	tr.Connect("b1", "bob", "buyer", "s3")
	tr.Connect("b1", "bob", "buyer", "s4")

	artists := tr.UsersByRole("artist")
	assert.Len(t, artists, 2)

	stats := tr.Stats()
	assert.Equal(t, 3, stats["users"])
	assert.Equal(t, 4, stats["connections"])
	assert.Equal(t, 2, stats["artist"])
	assert.Equal(t, 1, stats["buyer"])
}

func TestTracker_SweepInactive(t *testing.T) {
	tr := presence.NewTracker()
	tr.Connect("stale", "sam", "buyer", "s-stale")
	tr.Connect("fresh", "fay", "artist", "s-fresh")

	time.Sleep(20 * time.Millisecond)
	tr.Touch("s-fresh")

	removed := tr.SweepInactive(10 * time.Millisecond)

	assert.Len(t, removed, 1)
	assert.Equal(t, "stale", removed[0].UserID)
	assert.False(t, tr.IsOnline("stale"))
	assert.True(t, tr.IsOnline("fresh"))
}

func TestTracker_SweepKeepsActiveUsers(t *testing.T) {
	tr := presence.NewTracker()
	tr.Connect("u1", "alice", "artist", "s1")

	removed := tr.SweepInactive(time.Hour)
	assert.Empty(t, removed)
	assert.True(t, tr.IsOnline("u1"))
}
