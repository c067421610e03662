package workflow

import (
	"github.com/angelmondragon/quoteflow-backend/internal/notifications"
	"github.com/angelmondragon/quoteflow-backend/internal/permissions"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	"github.com/google/uuid"
)

// Entity types carried by workflow events and audit rows.
const (
	EntityInquiry         = "inquiry"
	EntityItem            = "inquiry_item"
	EntityCostCalculation = "cost_calculation"
	EntityApproval        = "approval"
	EntityQuote           = "quote"
	EntityProductionOrder = "production_order"
	EntityUser            = "user"
)

// Event is a committed workflow change offered to the automation engine.
// Payload is one of the structs in pkg/outbox/payloads.
type Event struct {
	Trigger    enums.AutomationTrigger
	EntityType string
	EntityID   uuid.UUID
	Payload    any
	Actor      permissions.Actor
}

// effects collects what a command does after its transaction commits.
type effects struct {
	events      []Event
	messages    []notifications.Message
	emails      []notifications.Email
	transitions []transition
}

type transition struct {
	entity string
	status string
}

func (f *effects) event(ev Event) {
	f.events = append(f.events, ev)
}

func (f *effects) notify(msg notifications.Message) {
	f.messages = append(f.messages, msg)
}

func (f *effects) email(email notifications.Email) {
	f.emails = append(f.emails, email)
}

func (f *effects) moved(entity string, status string) {
	f.transitions = append(f.transitions, transition{entity: entity, status: status})
}
