// Package uplinesync propagates captured rows from a tenant store up the
// registry chain (tenant -> aggregator -> master), one hop at a time.
package uplinesync

import (
	"strings"
	"time"

	"command_center_backend/internal/postgrest"
)

// Tables that take part in upline sync.
const (
	TableLeads    = "crm_leads"
	TableBookings = "bookings"
)

// Column names of the lineage fields.
const (
	ColID             = "id"
	ColSource         = "source"
	ColSyncedFrom     = "synced_from"
	ColSyncedAt       = "synced_at"
	ColOriginalID     = "original_id"
	ColSyncedToMaster = "synced_to_master"
)

// ConflictTarget is the idempotency key of every upline upsert.
var ConflictTarget = []string{ColOriginalID, ColSyncedFrom}

// IsSyncTable reports whether table is one of the synced tables.
func IsSyncTable(table string) bool {
	return table == TableLeads || table == TableBookings
}

// lineageCopy builds the row written into the parent of from: the local id is
// dropped so the parent assigns its own, and the row is linked back to the
// immediate child it came from.
func lineageCopy(rec postgrest.Row, from, origin string, at time.Time) postgrest.Row {
	out := rec.Clone()
	delete(out, ColID)
	delete(out, ColSyncedToMaster)

	out[ColSyncedFrom] = from
	out[ColOriginalID] = rec.ID()
	out[ColSyncedAt] = at.UTC().Format(time.RFC3339Nano)

	if s, _ := out[ColSource].(string); strings.TrimSpace(s) == "" {
		out[ColSource] = origin
	}
	return out
}

func hasID(rec postgrest.Row) bool {
	switch v := rec.ID().(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	default:
		return true
	}
}
