package storage_test

import (
	"testing"

	"artmarket/backend/internal/storage"

	"github.com/stretchr/testify/assert"
)

func TestConversationID_Commutative(t *testing.T) {
	pairs := [][2]string{
		{"artist-1", "buyer-2"},
		{"b", "a"},
		{"2f6d", "2f6c"},
		{"same", "same"},
	}

	for _, p := range pairs {
		assert.Equal(t,
			storage.ConversationID(p[0], p[1]),
			storage.ConversationID(p[1], p[0]),
			"conversation id must not depend on sender/receiver order")
	}
}

func TestConversationID_SortedUnderscoreJoin(t *testing.T) {
	assert.Equal(t, "alice_bob", storage.ConversationID("bob", "alice"))
	assert.Equal(t, "alice_bob", storage.ConversationID("alice", "bob"))
}
