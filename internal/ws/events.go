package ws

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventSessionState EventType = "session.state"
	EventFrameUpdate  EventType = "session.frame"
	EventEnrollment   EventType = "enrollment.completed"
	EventVerification EventType = "verification.completed"
	EventFallback     EventType = "session.fallback"
)

// Event is pushed to dashboard clients watching a capture session
type Event struct {
	SessionID uuid.UUID   `json:"-"`
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
