package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// apply different retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers account creation and other records with legal weight.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers failures worth alerting on.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine activity; can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// Subject is the identifier the action concerns.
	Subject   string
	Action    string
	Decision  string
	Reason    string
	SessionID string
	RequestID string
	// Client is a short description of the user agent that drove the session.
	Client string
}

type AuditEvent string

const (
	EventSessionOpened       AuditEvent = "signup_session_opened"
	EventSessionClosed       AuditEvent = "signup_session_closed"
	EventIdentifierChecked   AuditEvent = "identifier_checked"
	EventAccountRegistered   AuditEvent = "account_registered"
	EventRegistrationFailed  AuditEvent = "registration_failed"
	EventRegistrationBlocked AuditEvent = "registration_blocked"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventAccountRegistered: CategoryCompliance,

	EventRegistrationFailed:  CategorySecurity,
	EventRegistrationBlocked: CategorySecurity,

	EventSessionOpened:     CategoryOperations,
	EventSessionClosed:     CategoryOperations,
	EventIdentifierChecked: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists or forwards audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
