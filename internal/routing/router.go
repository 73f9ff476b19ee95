package routing

import (
	"context"
	"fmt"
	"time"

	"command_center_backend/platform/logger"
)

// RoutedBy identifies this service in outbound lead metadata.
const RoutedBy = "modcrm-lead-router"

const defaultPriority = "normal"

// Reasons reported when a lead is not routed.
const (
	ReasonScoreTooLow        = "score_too_low"
	ReasonStageNotQualifying = "stage_not_qualifying"
	ReasonUnhandledEvent     = "unhandled_event"
)

// RouteResult is the outcome of a routing attempt.
type RouteResult struct {
	Routed     bool   `json:"routed"`
	Reason     string `json:"reason,omitempty"`
	LeadID     string `json:"leadId,omitempty"`
	Score      int    `json:"score,omitempty"`
	Type       string `json:"type,omitempty"`
	AssignedTo string `json:"assignedTo,omitempty"`
}

// LeadPayload is the body sent to the external CRM.
type LeadPayload struct {
	Source     string         `json:"source"`
	SourceID   string         `json:"sourceId"`
	Contact    PayloadContact `json:"contact"`
	LeadData   LeadData       `json:"leadData"`
	Activities []Activity     `json:"activities"`
	Metadata   Metadata       `json:"metadata"`
}

type PayloadContact struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type LeadData struct {
	Type     string   `json:"type"`
	Score    int      `json:"score"`
	Tags     []string `json:"tags"`
	AssignTo string   `json:"assignTo,omitempty"`
	Priority string   `json:"priority"`
}

type Metadata struct {
	RoutedAt   time.Time `json:"routedAt"`
	RoutedBy   string    `json:"routedBy"`
	BusinessID string    `json:"businessId"`
}

// CRMClient creates leads in the external CRM and returns the CRM lead id.
type CRMClient interface {
	CreateLead(ctx context.Context, payload LeadPayload) (string, error)
}

// Router forwards qualified leads to the external CRM.
type Router struct {
	qualifier *Qualifier
	scorer    *Scorer
	crm       CRMClient
	log       *logger.Logger
	now       func() time.Time
}

// NewRouter creates a router. crm must not be nil; use NewDryRunClient when
// no CRM endpoint is configured.
func NewRouter(scorer *Scorer, crm CRMClient, log *logger.Logger) *Router {
	return &Router{
		qualifier: NewQualifier(scorer),
		scorer:    scorer,
		crm:       crm,
		log:       log,
		now:       time.Now,
	}
}

// Qualifier exposes the router's qualifier.
func (r *Router) Qualifier() *Qualifier {
	return r.qualifier
}

// Route qualifies the lead and forwards it when qualified.
func (r *Router) Route(ctx context.Context, tenant string, lead Lead, activities []Activity) (RouteResult, error) {
	return r.RouteToExternalCRM(ctx, tenant, r.qualifier.Qualify(tenant, lead, activities))
}

// RouteToExternalCRM sends a qualified lead to the CRM. Leads below the
// threshold are reported as not routed without any network call.
func (r *Router) RouteToExternalCRM(ctx context.Context, tenant string, q QualifiedLead) (RouteResult, error) {
	if !q.Qualified {
		r.log.LeadRouted(tenant, q.Category, q.Score, false, ReasonScoreTooLow)
		return RouteResult{Routed: false, Reason: ReasonScoreTooLow, Score: q.Score}, nil
	}

	payload := r.buildPayload(tenant, q)
	leadID, err := r.crm.CreateLead(ctx, payload)
	if err != nil {
		return RouteResult{}, fmt.Errorf("route lead to crm: %w", err)
	}

	r.log.LeadRouted(tenant, q.Category, q.Score, true, "")
	return RouteResult{
		Routed:     true,
		LeadID:     leadID,
		Score:      q.Score,
		Type:       q.Category,
		AssignedTo: payload.LeadData.AssignTo,
	}, nil
}

func (r *Router) buildPayload(tenant string, q QualifiedLead) LeadPayload {
	data := LeadData{
		Type:     q.Category,
		Score:    q.Score,
		Tags:     []string{},
		Priority: defaultPriority,
	}
	if q.Routing != nil {
		if len(q.Routing.Tags) > 0 {
			data.Tags = append([]string(nil), q.Routing.Tags...)
		}
		data.AssignTo = q.Routing.AssignTo
		if q.Routing.Priority != "" {
			data.Priority = q.Routing.Priority
		}
	}

	var businessID string
	if p, ok := r.scorer.Profile(tenant); ok {
		businessID = p.BusinessID
	}

	activities := q.Activities
	if activities == nil {
		activities = []Activity{}
	}

	return LeadPayload{
		Source:   tenant,
		SourceID: q.Lead.ID,
		Contact: PayloadContact{
			FirstName: q.Lead.FirstName,
			LastName:  q.Lead.LastName,
			Email:     q.Lead.Email,
			Phone:     q.Lead.Phone,
		},
		LeadData:   data,
		Activities: activities,
		Metadata: Metadata{
			RoutedAt:   r.now().UTC(),
			RoutedBy:   RoutedBy,
			BusinessID: businessID,
		},
	}
}
