// Package notify publishes domain notifications about ownership changes so
// that other systems (calendars, mailers, reporting) can follow the CRM.
package notify

import (
	"time"

	"github.com/google/uuid"
)

// Type names a notification. The published subject is "<prefix>.<type>".
type Type string

const (
	ClientCreated      Type = "client.created"
	ClientReassigned   Type = "client.reassigned"
	ContractCreated    Type = "contract.created"
	ContractSigned     Type = "contract.signed"
	ContractReassigned Type = "contract.reassigned"
	EventCreated       Type = "event.created"
	EventAssigned      Type = "event.assigned"
)

// Event is the JSON payload of a notification
type Event struct {
	Type       Type                   `json:"type"`
	EntityID   uuid.UUID              `json:"entityId"`
	ClientID   uuid.UUID              `json:"clientId"`
	ActorID    uuid.UUID              `json:"actorId"`
	OccurredAt time.Time              `json:"occurredAt"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// New builds an event stamped with the current time
func New(t Type, entityID, clientID, actorID uuid.UUID, data map[string]interface{}) Event {
	return Event{
		Type:       t,
		EntityID:   entityID,
		ClientID:   clientID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Publisher sends notifications. Publishing is fire-and-forget: callers log
// failures and never roll back because of them.
type Publisher interface {
	Publish(e Event) error
	Close()
}

// Noop drops every notification. Used when no bus is configured.
type Noop struct{}

func (Noop) Publish(Event) error { return nil }
func (Noop) Close()              {}
