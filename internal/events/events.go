package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTypeSessionCompleted EventType = "practice.session.completed"
)

// SessionCompletedEvent is emitted once per graded practice session.
type SessionCompletedEvent struct {
	EventID      string    `json:"event_id"`
	Type         EventType `json:"type"`
	OccurredAt   time.Time `json:"occurred_at"`
	SessionID    string    `json:"session_id"`
	UserID       int64     `json:"user_id"`
	PassageID    string    `json:"passage_id"`
	SetID        string    `json:"set_id"`
	SetType      string    `json:"set_type"`
	CorrectCount int       `json:"correct_count"`
	TotalCount   int       `json:"total_count"`
	Percentage   int       `json:"percentage"`
	XPEarned     int       `json:"xp_earned"`
}

func NewSessionCompletedEvent(sessionID string, userID int64) SessionCompletedEvent {
	return SessionCompletedEvent{
		EventID:    uuid.NewString(),
		Type:       EventTypeSessionCompleted,
		OccurredAt: time.Now().UTC(),
		SessionID:  sessionID,
		UserID:     userID,
	}
}
