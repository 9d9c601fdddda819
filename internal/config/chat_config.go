package config

import "time"

const (
	// Typing indicator
	TypingTimeout = 3 * time.Second

	// Presence
	PresenceSweepInterval = 5 * time.Minute
	InactivityThreshold   = 30 * time.Minute

	// Content safety scoring
	AcceptableScore  = 70
	CategoryPenalty  = 20
	ProfanityPenalty = 15
	EvasionPenalty   = 25

	// Inbound protocol events per connection
	EventRateLimit = 10 // events per second
	EventRateBurst = 20
)
