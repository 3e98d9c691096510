package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventPrincipalSignedUp    EventType = "principal_signed_up"
	EventPasswordChanged      EventType = "password_changed"
	EventPrincipalDeactivated EventType = "principal_deactivated"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	PrincipalID string      `json:"principal_id"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// New builds an event with a fresh id.
func New(eventType EventType, principalID string, at time.Time, payload interface{}) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		PrincipalID: principalID,
		Timestamp:   at,
		Payload:     payload,
	}
}

// PrincipalSignedUpPayload payload.
type PrincipalSignedUpPayload struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	ContextURL string `json:"context_url"`
}

// PasswordChangeReason tells how a credential was replaced.
type PasswordChangeReason string

const (
	PasswordChangeUpdate PasswordChangeReason = "update"
	PasswordChangeReset  PasswordChangeReason = "reset"
)

// PasswordChangedPayload payload.
type PasswordChangedPayload struct {
	Reason PasswordChangeReason `json:"reason"`
}
