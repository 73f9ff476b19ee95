package uplinesync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"command_center_backend/internal/postgrest"
	"command_center_backend/internal/registry"
	"command_center_backend/platform/logger"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	master    = "pitchModularSpaces"
	agency    = "pitchMarketingAgency"
	credit    = "creditprenuers"
	logistics = "coyslogistics"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New([]registry.Entry{
		{Key: master, IsMaster: true},
		{Key: agency, SyncTo: master},
		{Key: credit, SyncTo: agency},
		{Key: logistics, SyncTo: agency},
	})
	require.NoError(t, err)
	return reg
}

func newTestWalker(t *testing.T, provider *memProvider) *Walker {
	t.Helper()
	w := NewWalker(testRegistry(t), provider, logger.Nop())
	w.now = func() time.Time { return time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC) }
	return w
}

func captureLocal(t *testing.T, provider *memProvider, tenant string) postgrest.Row {
	t.Helper()
	row, err := provider.stores[tenant].Insert(context.Background(), TableLeads, postgrest.Row{
		"email":  "lead@example.com",
		"status": "new",
		"source": tenant,
	})
	require.NoError(t, err)
	return row
}

func TestSyncUpline_WritesLineageAtEveryHop(t *testing.T) {
	provider := newMemProvider(master, agency, credit)
	w := newTestWalker(t, provider)
	local := captureLocal(t, provider, credit)

	res := w.SyncUpline(context.Background(), TableLeads, local, credit)

	require.True(t, res.OK(), "failures: %+v", res.Failed)
	assert.Equal(t, []string{agency, master}, res.Reached())

	agencyRows := provider.stores[agency].rows(TableLeads)
	masterRows := provider.stores[master].rows(TableLeads)
	require.Len(t, agencyRows, 1)
	require.Len(t, masterRows, 1)

	assert.Equal(t, local.ID(), agencyRows[0][ColOriginalID])
	assert.Equal(t, credit, agencyRows[0][ColSyncedFrom])
	assert.NotEqual(t, local.ID(), agencyRows[0].ID())

	assert.Equal(t, agencyRows[0].ID(), masterRows[0][ColOriginalID], "master row links to its immediate child")
	assert.Equal(t, agency, masterRows[0][ColSyncedFrom])

	assert.Equal(t, credit, masterRows[0][ColSource])
	assert.Equal(t, "2026-10-17T12:00:00Z", masterRows[0][ColSyncedAt])
	assert.Len(t, provider.stores[credit].rows(TableLeads), 1, "local row untouched")
}

func TestSyncUpline_IsIdempotent(t *testing.T) {
	provider := newMemProvider(master, agency, credit)
	w := newTestWalker(t, provider)
	local := captureLocal(t, provider, credit)

	first := w.SyncUpline(context.Background(), TableLeads, local, credit)
	second := w.SyncUpline(context.Background(), TableLeads, local, credit)

	require.True(t, first.OK())
	require.True(t, second.OK())
	assert.Len(t, provider.stores[agency].rows(TableLeads), 1)
	assert.Len(t, provider.stores[master].rows(TableLeads), 1)
	assert.Equal(t, first.Success[0].Data[0].ID(), second.Success[0].Data[0].ID())
}

func TestSyncUpline_UnconfiguredAggregatorHaltsWalk(t *testing.T) {
	provider := newMemProvider(master, agency, credit)
	provider.unconfigured[agency] = true
	w := newTestWalker(t, provider)
	local := captureLocal(t, provider, credit)

	res := w.SyncUpline(context.Background(), TableLeads, local, credit)

	require.Len(t, res.Failed, 1)
	assert.Equal(t, HopFailure{DB: agency, Error: "not configured"}, res.Failed[0])
	assert.Empty(t, res.Success)
	assert.Empty(t, provider.stores[master].rows(TableLeads), "walk must not skip to master")
	assert.Zero(t, provider.stores[master].upserts)
}

func TestSyncUpline_RejectedWriteHaltsWalk(t *testing.T) {
	provider := newMemProvider(master, agency, credit)
	provider.stores[agency].upsertErr = errors.New("connection refused")
	w := newTestWalker(t, provider)
	local := captureLocal(t, provider, credit)

	res := w.SyncUpline(context.Background(), TableLeads, local, credit)

	require.Len(t, res.Failed, 1)
	assert.Equal(t, agency, res.Failed[0].DB)
	assert.Equal(t, "connection refused", res.Failed[0].Error)
	assert.Equal(t, RunFailed, res.Status())
	assert.Zero(t, provider.stores[master].upserts)
}

func TestSyncUpline_PartialWhenMasterRejects(t *testing.T) {
	provider := newMemProvider(master, agency, logistics)
	provider.stores[master].upsertErr = &postgrest.Error{Status: 409, Code: "23505", Message: "duplicate"}
	w := newTestWalker(t, provider)
	local := captureLocal(t, provider, logistics)

	res := w.SyncUpline(context.Background(), TableLeads, local, logistics)

	assert.Equal(t, []string{agency}, res.Reached())
	require.Len(t, res.Failed, 1)
	assert.Equal(t, master, res.Failed[0].DB)
	assert.Equal(t, RunPartial, res.Status())
}

func TestSyncUpline_MasterOriginHasNothingToDo(t *testing.T) {
	provider := newMemProvider(master)
	w := newTestWalker(t, provider)

	res := w.SyncUpline(context.Background(), TableLeads, postgrest.Row{"id": "m-1"}, master)

	assert.True(t, res.OK())
	assert.Empty(t, res.Success)
	assert.Equal(t, RunSynced, res.Status())
}

func TestSyncUpline_RecordWithoutIDFailsFirstHop(t *testing.T) {
	provider := newMemProvider(master, agency, credit)
	w := newTestWalker(t, provider)

	res := w.SyncUpline(context.Background(), TableLeads, postgrest.Row{"email": "x@y.z"}, credit)

	require.Len(t, res.Failed, 1)
	assert.Equal(t, agency, res.Failed[0].DB)
	assert.Zero(t, provider.stores[agency].upserts)
}

func TestRun_RecordsLedgerEntry(t *testing.T) {
	provider := newMemProvider(master, agency, credit)
	provider.stores[master].upsertErr = errors.New("timeout")
	ledger := &memLedger{}
	w := newTestWalker(t, provider)
	w.SetLedger(ledger)
	local := captureLocal(t, provider, credit)

	w.Run(context.Background(), Job{Table: TableLeads, Origin: credit, Record: local, Attempt: 3})

	require.Len(t, ledger.runs, 1)
	run := ledger.runs[0]
	assert.Equal(t, RunPartial, run.Status)
	assert.Equal(t, 3, run.Attempt)
	assert.Equal(t, local.IDString(), run.RecordID)
	assert.Equal(t, []string{agency}, run.Reached)
	assert.Equal(t, []HopFailure{{DB: master, Error: "timeout"}}, run.Failures)
}

func TestSyncUpline_StampsOriginWhenMasterReached(t *testing.T) {
	provider := newMemProvider(master, agency, credit)
	w := newTestWalker(t, provider)
	w.SetStampOrigin(true)
	local := captureLocal(t, provider, credit)

	res := w.SyncUpline(context.Background(), TableLeads, local, credit)
	require.True(t, res.OK())

	rows := provider.stores[credit].rows(TableLeads)
	require.Len(t, rows, 1)
	assert.Equal(t, true, rows[0][ColSyncedToMaster])

	// The stamp is local only and never travels upline.
	_, carried := provider.stores[agency].rows(TableLeads)[0][ColSyncedToMaster]
	assert.False(t, carried)
}

func TestSyncUpline_RowCountMatchesChainLength(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a walk adds exactly one row per ancestor", prop.ForAll(
		func(depth int) bool {
			entries := []registry.Entry{{Key: "n0", IsMaster: true}}
			keys := []string{"n0"}
			for i := 1; i <= depth; i++ {
				key := fmt.Sprintf("n%d", i)
				entries = append(entries, registry.Entry{Key: key, SyncTo: fmt.Sprintf("n%d", i-1)})
				keys = append(keys, key)
			}
			reg, err := registry.New(entries)
			if err != nil {
				return false
			}

			provider := newMemProvider(keys...)
			origin := fmt.Sprintf("n%d", depth)
			local, _ := provider.stores[origin].Insert(context.Background(), TableBookings, postgrest.Row{"name": "x"})

			w := NewWalker(reg, provider, logger.Nop())
			res := w.SyncUpline(context.Background(), TableBookings, local, origin)

			total := 0
			for _, k := range keys[:depth] {
				total += len(provider.stores[k].rows(TableBookings))
			}
			return res.OK() && len(res.Success) == depth && total == depth
		},
		gen.IntRange(0, 6),
	))

	properties.TestingRun(t)
}
