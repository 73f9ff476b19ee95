package syncadmin

import (
	"time"

	"command_center_backend/internal/postgrest"
	"command_center_backend/internal/uplinesync"
)

// BackfillRequest selects the local rows to push upline again.
type BackfillRequest struct {
	Table string     `json:"table" validate:"required,oneof=crm_leads bookings"`
	Since *time.Time `json:"since,omitempty"`
	Limit int        `json:"limit,omitempty" validate:"omitempty,min=1,max=10000"`
}

// ReplayRequest walks one record synchronously.
type ReplayRequest struct {
	Table  string        `json:"table" validate:"required,oneof=crm_leads bookings"`
	Record postgrest.Row `json:"record" validate:"required"`
}

// RunResponse is a sync_runs ledger row.
type RunResponse struct {
	ID        string                  `json:"id"`
	Table     string                  `json:"table"`
	Origin    string                  `json:"origin"`
	RecordID  string                  `json:"recordId"`
	Status    uplinesync.RunStatus    `json:"status"`
	Reached   []string                `json:"reached"`
	Failures  []uplinesync.HopFailure `json:"failures"`
	Attempt   int                     `json:"attempt"`
	CreatedAt time.Time               `json:"createdAt"`
}

// RegistryEntry describes one database without its credentials.
type RegistryEntry struct {
	Key      string   `json:"key"`
	Name     string   `json:"name"`
	IsMaster bool     `json:"isMaster"`
	SyncTo   string   `json:"syncTo,omitempty"`
	Upline   []string `json:"upline"`
}

func toRunResponse(r uplinesync.Run) RunResponse {
	reached := r.Reached
	if reached == nil {
		reached = []string{}
	}
	failures := r.Failures
	if failures == nil {
		failures = []uplinesync.HopFailure{}
	}
	return RunResponse{
		ID:        r.ID.String(),
		Table:     r.Table,
		Origin:    r.Origin,
		RecordID:  r.RecordID,
		Status:    r.Status,
		Reached:   reached,
		Failures:  failures,
		Attempt:   r.Attempt,
		CreatedAt: r.CreatedAt,
	}
}
