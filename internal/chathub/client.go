package chathub

import "artmarket/backend/internal/models"

// Client is the interface for one authenticated realtime connection. It
// abstracts the underlying transport so the hub can manage connections
// uniformly and tests can substitute doubles.
type Client interface {
	// GetUserID returns the authenticated user id behind the connection.
	GetUserID() string
	// GetUsername returns the authenticated username.
	GetUsername() string
	// GetRole returns the user's role (artist or buyer).
	GetRole() string
	// GetConnID returns the unique id of this connection. A user with
	// multiple devices has one client per connection.
	GetConnID() string

	// GetSendChannel returns the channel the hub writes outbound events to.
	GetSendChannel() chan<- models.EventEnvelope

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts down the client's pumps and connection. The send channel
	// stays open so late emits from hub goroutines cannot panic.
	Close()
}
