package routing

import (
	"context"

	"command_center_backend/internal/events"
	"command_center_backend/platform/logger"
)

// EventHandler turns ModCRM and capture events into routing attempts.
type EventHandler struct {
	router *Router
	log    *logger.Logger
}

// NewEventHandler creates a handler that routes through router.
func NewEventHandler(router *Router, log *logger.Logger) *EventHandler {
	return &EventHandler{router: router, log: log}
}

// Subscribe registers the handler for every event it understands.
func (h *EventHandler) Subscribe(bus events.Bus) {
	for _, name := range []string{
		events.NameContactCreated,
		events.NameFormSubmitted,
		events.NamePaymentCompleted,
		events.NamePipelineStageChanged,
		events.NameLeadCaptured,
	} {
		bus.Subscribe(name, h)
	}
}

// Handle implements events.Handler. CRM failures are logged and swallowed so
// one bad lead never fails the bus.
func (h *EventHandler) Handle(ctx context.Context, event events.Event) error {
	res, err := h.Process(ctx, event)
	if err != nil {
		h.log.WithContext(ctx).Error("lead routing failed", "event", event.EventName(), "error", err)
		return nil
	}
	if !res.Routed {
		h.log.WithContext(ctx).Debug("lead not routed", "event", event.EventName(), "reason", res.Reason, "score", res.Score)
	}
	return nil
}

// Process maps event to activities and routes the contact it carries.
func (h *EventHandler) Process(ctx context.Context, event events.Event) (RouteResult, error) {
	switch e := event.(type) {
	case events.ContactCreated:
		return h.router.Route(ctx, e.Business, leadFromContact(e.Contact), ContactActivities(e.Contact.Source))

	case events.FormSubmitted:
		return h.router.Route(ctx, e.Business, leadFromContact(e.Contact), FormActivities(e.FormType))

	case events.PaymentCompleted:
		return h.router.Route(ctx, e.Business, leadFromContact(e.Customer), PaymentActivities(e.ProductType))

	case events.PipelineStageChanged:
		activities, ok := StageActivities(e.ToStage)
		if !ok {
			return RouteResult{Routed: false, Reason: ReasonStageNotQualifying}, nil
		}
		return h.router.Route(ctx, e.Business, leadFromContact(e.Contact), activities)

	case events.LeadCaptured:
		lead := leadFromContact(e.Contact)
		lead.ID = e.LeadID
		return h.router.Route(ctx, e.Tenant, lead, ContactActivities(e.Contact.Source))

	default:
		return RouteResult{Routed: false, Reason: ReasonUnhandledEvent}, nil
	}
}

func leadFromContact(c events.Contact) Lead {
	return Lead{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		Source:    c.Source,
	}
}
