package models

import (
	"time"

	"github.com/lib/pq"
)

// User roles. Messaging and blocking only occur across the artist/buyer
// boundary.
const (
	RoleArtist = "artist"
	RoleBuyer  = "buyer"
	RoleAdmin  = "admin"
)

// User is the messaging core's projection of the identity collaborator's
// user record: identity, role, verification state and block list. The core
// reads it and mutates only BlockedUsers (on behalf of the block-toggle
// operation) and the online/last-seen pair.
type User struct {
	ID         string `gorm:"primaryKey" json:"id"`
	Username   string `gorm:"uniqueIndex;not null" json:"username"`
	Email      string `gorm:"uniqueIndex;not null" json:"-"`
	Role       string `gorm:"type:text;not null" json:"role"`
	IsVerified bool   `gorm:"not null;default:false" json:"isVerified"`
	// BlockedUsers is a directional edge list: ids this user has blocked.
	BlockedUsers pq.StringArray `gorm:"type:text[]" json:"-"`

	IsOnline bool      `gorm:"not null;default:false" json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
}

// HasBlocked reports whether u has blocked the given user id.
func (u *User) HasBlocked(userID string) bool {
	for _, id := range u.BlockedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// PublicUser is the counterpart projection embedded in conversation views.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	IsOnline bool   `json:"isOnline"`
}

// Public strips the user down to what the other participant may see.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
		IsOnline: u.IsOnline,
	}
}
