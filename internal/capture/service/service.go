// Package service implements local-first capture of leads and bookings.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"command_center_backend/internal/capture/transport"
	"command_center_backend/internal/events"
	"command_center_backend/internal/postgrest"
	"command_center_backend/internal/registry"
	"command_center_backend/internal/uplinesync"
	"command_center_backend/platform/apperr"
	"command_center_backend/platform/logger"
	"command_center_backend/platform/phone"
	"command_center_backend/platform/sanitize"
)

const (
	statusNew      = "new"
	statusPending  = "pending"
	defaultService = "consultation"
	defaultFormID  = "website-lead-form"
	maxMessage     = 5000
	maxShortText   = 200
)

// SyncDispatcher hands a freshly stored row to the upline walker. It must
// not wait for the walk to finish.
type SyncDispatcher interface {
	DispatchSync(ctx context.Context, job uplinesync.Job) error
}

// Service writes captured records to the tenant's own store and schedules
// their upline sync.
type Service struct {
	reg        *registry.Registry
	stores     postgrest.Provider
	dispatcher SyncDispatcher
	bus        events.Bus
	log        *logger.Logger
	now        func() time.Time
}

// New creates a capture service.
func New(reg *registry.Registry, stores postgrest.Provider, dispatcher SyncDispatcher, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		reg:        reg,
		stores:     stores,
		dispatcher: dispatcher,
		bus:        bus,
		log:        log,
		now:        time.Now,
	}
}

// CaptureLead stores a lead in tenant's database and schedules its sync.
func (s *Service) CaptureLead(ctx context.Context, tenant string, req transport.CaptureLeadRequest) (postgrest.Row, error) {
	entry, err := s.entry(tenant)
	if err != nil {
		return nil, err
	}

	row := postgrest.Row{
		"name":          sanitize.Text(req.Name, maxShortText),
		"email":         strings.ToLower(strings.TrimSpace(req.Email)),
		"phone":         optional(phone.NormalizeE164(req.Phone, entry.PhoneRegion)),
		"company":       optional(sanitize.Text(req.Company, maxShortText)),
		"message":       optional(sanitize.Text(req.Message, maxMessage)),
		"form_id":       orDefault(strings.TrimSpace(req.FormID), defaultFormID),
		"product_id":    optional(strings.TrimSpace(req.ProductID)),
		"business_type": optional(sanitize.Text(req.BusinessType, maxShortText)),
		"utm_source":    optional(req.UTMSource),
		"utm_medium":    optional(req.UTMMedium),
		"utm_campaign":  optional(req.UTMCampaign),
		"utm_term":      optional(req.UTMTerm),
		"utm_content":   optional(req.UTMContent),
		"referrer":      optional(req.Referrer),
		"landing_page":  optional(req.LandingPage),
		"status":        orDefault(strings.TrimSpace(req.Status), statusNew),
	}
	if req.CreditScore != nil {
		row["credit_score"] = *req.CreditScore
	}
	if req.FundingAmount != nil {
		row["funding_amount"] = *req.FundingAmount
	}
	row[uplinesync.ColSource] = tenant

	stored, err := s.captureAndSync(ctx, uplinesync.TableLeads, tenant, row)
	if err != nil {
		return nil, err
	}

	first, last, _ := strings.Cut(stringOf(row["name"]), " ")
	contactSource := ""
	if req.LandingPage != "" {
		contactSource = "landing_page"
	}
	s.bus.Publish(ctx, events.LeadCaptured{
		BaseEvent: events.NewBaseEvent(),
		Tenant:    tenant,
		LeadID:    stored.IDString(),
		Contact: events.Contact{
			ID:        stored.IDString(),
			FirstName: first,
			LastName:  last,
			Email:     fmt.Sprint(row["email"]),
			Phone:     stringOf(row["phone"]),
			Source:    contactSource,
		},
	})

	return stored, nil
}

// CaptureBooking stores a booking in tenant's database and schedules its sync.
func (s *Service) CaptureBooking(ctx context.Context, tenant string, req transport.CaptureBookingRequest) (postgrest.Row, error) {
	entry, err := s.entry(tenant)
	if err != nil {
		return nil, err
	}

	row := postgrest.Row{
		"name":    sanitize.Text(req.Name, maxShortText),
		"email":   strings.ToLower(strings.TrimSpace(req.Email)),
		"phone":   optional(phone.NormalizeE164(req.Phone, entry.PhoneRegion)),
		"service": orDefault(sanitize.Text(req.Service, maxShortText), defaultService),
		"date":    req.Date,
		"time":    strings.TrimSpace(req.Time),
		"notes":   optional(sanitize.Text(req.Notes, maxMessage)),
		"status":  orDefault(strings.TrimSpace(req.Status), statusPending),
	}
	row[uplinesync.ColSource] = orDefault(strings.TrimSpace(req.Source), tenant)

	stored, err := s.captureAndSync(ctx, uplinesync.TableBookings, tenant, row)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.BookingCaptured{
		BaseEvent: events.NewBaseEvent(),
		Tenant:    tenant,
		BookingID: stored.IDString(),
		Email:     fmt.Sprint(row["email"]),
	})
	return stored, nil
}

func (s *Service) entry(tenant string) (registry.Entry, error) {
	entry, ok := s.reg.Lookup(tenant)
	if !ok {
		return registry.Entry{}, apperr.Configuration(fmt.Sprintf("source database %s not configured", tenant)).WithOp("capture")
	}
	return entry, nil
}

// captureAndSync inserts row locally and hands the stored row to the walker.
// Only the local write can fail the call.
func (s *Service) captureAndSync(ctx context.Context, table, tenant string, row postgrest.Row) (postgrest.Row, error) {
	op := "capture." + table

	local := s.stores.Store(tenant, false)
	if local == nil {
		return nil, apperr.Configuration(fmt.Sprintf("source database %s not configured", tenant)).WithOp(op)
	}

	row["created_at"] = s.now().UTC().Format(time.RFC3339Nano)

	stored, err := local.Insert(ctx, table, row)
	if err != nil {
		s.log.WithContext(ctx).Error("local capture failed", "table", table, "tenant", tenant, "error", err)
		return nil, apperr.Persistence("failed to store record", err).WithOp(op)
	}
	s.log.WithContext(ctx).Info("record captured", "table", table, "tenant", tenant, "id", stored.IDString())

	job := uplinesync.Job{Table: table, Origin: tenant, Record: stored.Clone(), Attempt: 1}
	if err := s.dispatcher.DispatchSync(context.WithoutCancel(ctx), job); err != nil {
		s.log.WithContext(ctx).Error("failed to schedule upline sync", "table", table, "tenant", tenant, "id", stored.IDString(), "error", err)
	}

	return stored, nil
}

// optional maps blank strings to SQL NULL.
func optional(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func stringOf(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
