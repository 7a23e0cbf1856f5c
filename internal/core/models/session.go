package models

import (
	"errors"
	"time"
)

// Session is an archived chat session as stored in the transcript database
type Session struct {
	ID           int64
	SessionID    string // UUID generated by the client
	Email        string // Empty when the email gate was disabled
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
	Preview      string // first user message, for listings
}

// Validate checks if the session has required fields
func (s *Session) Validate() error {
	if s.SessionID == "" {
		return errors.New("session_id is required")
	}
	return nil
}

// Transcript is an archived session together with its messages in order
type Transcript struct {
	Session  Session
	Messages []Message
}
