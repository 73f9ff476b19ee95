package webhook

import (
	"context"
	"encoding/json"
	"strings"

	"command_center_backend/internal/events"
	"command_center_backend/platform/apperr"
	"command_center_backend/platform/logger"
)

// Envelope is the body ModCRM posts for every event.
type Envelope struct {
	ID       string          `json:"id" validate:"required,max=200"`
	Type     string          `json:"type" validate:"required,max=100"`
	Business string          `json:"business" validate:"required,max=100"`
	Data     json.RawMessage `json:"data"`
}

// Outcome describes what happened to a delivery.
type Outcome struct {
	Duplicate bool   `json:"duplicate"`
	Accepted  bool   `json:"accepted"`
	EventType string `json:"type,omitempty"`
}

// Service turns ModCRM deliveries into domain events.
type Service struct {
	bus     events.Bus
	deduper Deduper
	log     *logger.Logger
}

func NewService(bus events.Bus, deduper Deduper, log *logger.Logger) *Service {
	return &Service{bus: bus, deduper: deduper, log: log}
}

// Ingest publishes env on the event bus unless its id was already delivered.
// Unknown event types are acknowledged and dropped.
func (s *Service) Ingest(ctx context.Context, env Envelope) (Outcome, error) {
	event, known, err := decode(env)
	if err != nil {
		return Outcome{}, err
	}

	first, err := s.deduper.FirstDelivery(ctx, env.ID)
	if err != nil {
		// ModCRM redelivers on 5xx.
		s.log.WithContext(ctx).Error("webhook dedupe failed", "event_id", env.ID, "error", err)
		return Outcome{}, apperr.Wrap(apperr.KindInternal, "dedupe unavailable", err).WithOp("webhook.Ingest")
	}
	if !first {
		s.log.WithContext(ctx).Info("duplicate webhook delivery", "event_id", env.ID, "type", env.Type)
		return Outcome{Duplicate: true, EventType: env.Type}, nil
	}

	if !known {
		s.log.WithContext(ctx).Info("ignoring webhook event", "event_id", env.ID, "type", env.Type)
		return Outcome{EventType: env.Type}, nil
	}

	s.bus.Publish(ctx, event)
	return Outcome{Accepted: true, EventType: env.Type}, nil
}

func decode(env Envelope) (events.Event, bool, error) {
	business := strings.TrimSpace(env.Business)
	data := env.Data
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}

	var (
		event events.Event
		err   error
	)
	switch env.Type {
	case events.NameContactCreated:
		var e events.ContactCreated
		err = json.Unmarshal(data, &e)
		e.BaseEvent, e.EventID, e.Business = events.NewBaseEvent(), env.ID, business
		event = e
	case events.NameFormSubmitted:
		var e events.FormSubmitted
		err = json.Unmarshal(data, &e)
		e.BaseEvent, e.EventID, e.Business = events.NewBaseEvent(), env.ID, business
		event = e
	case events.NamePaymentCompleted:
		var e events.PaymentCompleted
		err = json.Unmarshal(data, &e)
		e.BaseEvent, e.EventID, e.Business = events.NewBaseEvent(), env.ID, business
		event = e
	case events.NamePipelineStageChanged:
		var e events.PipelineStageChanged
		err = json.Unmarshal(data, &e)
		e.BaseEvent, e.EventID, e.Business = events.NewBaseEvent(), env.ID, business
		event = e
	default:
		return nil, false, nil
	}
	if err != nil {
		return nil, true, apperr.Validation("malformed event data").WithOp("webhook.decode")
	}
	return event, true, nil
}
