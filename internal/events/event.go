// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"command_center_backend/platform/events"
	"command_center_backend/platform/logger"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// ModCRM Domain Events (inbound, consumed by lead routing)
// =============================================================================

// Event names match the "type" field of the inbound ModCRM webhook.
const (
	NameContactCreated       = "contact.created"
	NameFormSubmitted        = "form.submitted"
	NamePaymentCompleted     = "payment.completed"
	NamePipelineStageChanged = "pipeline.stage_changed"
)

// Contact is the identity block carried by every ModCRM event.
type Contact struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Source    string `json:"source,omitempty"`
}

// ContactCreated is published when ModCRM reports a new contact.
type ContactCreated struct {
	BaseEvent
	EventID  string  `json:"eventId"`
	Business string  `json:"business"`
	Contact  Contact `json:"contact"`
}

func (e ContactCreated) EventName() string { return NameContactCreated }

// FormSubmitted is published when a tenant form is submitted.
type FormSubmitted struct {
	BaseEvent
	EventID  string  `json:"eventId"`
	Business string  `json:"business"`
	FormType string  `json:"formType"`
	Contact  Contact `json:"contact"`
}

func (e FormSubmitted) EventName() string { return NameFormSubmitted }

// PaymentCompleted is published when a customer completes a payment.
type PaymentCompleted struct {
	BaseEvent
	EventID     string  `json:"eventId"`
	Business    string  `json:"business"`
	ProductType string  `json:"productType"`
	AmountCents int64   `json:"amountCents,omitempty"`
	Customer    Contact `json:"customer"`
}

func (e PaymentCompleted) EventName() string { return NamePaymentCompleted }

// PipelineStageChanged is published when a contact moves between pipeline stages.
type PipelineStageChanged struct {
	BaseEvent
	EventID   string  `json:"eventId"`
	Business  string  `json:"business"`
	Pipeline  string  `json:"pipeline"`
	FromStage string  `json:"fromStage"`
	ToStage   string  `json:"toStage"`
	Contact   Contact `json:"contact"`
}

func (e PipelineStageChanged) EventName() string { return NamePipelineStageChanged }

// =============================================================================
// Capture Domain Events
// =============================================================================

const (
	NameLeadCaptured    = "capture.lead_captured"
	NameBookingCaptured = "capture.booking_captured"
)

// LeadCaptured is published after a lead is stored in its tenant database.
type LeadCaptured struct {
	BaseEvent
	Tenant  string  `json:"tenant"`
	LeadID  string  `json:"leadId"`
	Contact Contact `json:"contact"`
}

func (e LeadCaptured) EventName() string { return NameLeadCaptured }

// BookingCaptured is published after a booking is stored in its tenant database.
type BookingCaptured struct {
	BaseEvent
	Tenant    string `json:"tenant"`
	BookingID string `json:"bookingId"`
	Email     string `json:"email"`
}

func (e BookingCaptured) EventName() string { return NameBookingCaptured }
