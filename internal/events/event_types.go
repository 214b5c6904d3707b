package events

import (
	"time"

	"github.com/spec-kit/auth-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventMemberRegistered EventType = "member_registered"
	EventSessionStarted   EventType = "session_started"
	EventSessionRefreshed EventType = "session_refreshed"
	EventSessionEnded     EventType = "session_ended"
	EventTokenRevoked     EventType = "token_revoked"
)

// Event represents an auth lifecycle event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id"`
	Role      domain.Role `json:"role,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// SessionStartedPayload payload.
type SessionStartedPayload struct {
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// SessionRefreshedPayload payload.
type SessionRefreshedPayload struct {
	Rotated         bool      `json:"rotated"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

// SessionEndedPayload payload.
type SessionEndedPayload struct {
	Reason string `json:"reason"`
}
