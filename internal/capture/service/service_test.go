package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"command_center_backend/internal/capture/transport"
	"command_center_backend/internal/events"
	"command_center_backend/internal/postgrest"
	"command_center_backend/internal/registry"
	"command_center_backend/internal/uplinesync"
	"command_center_backend/platform/apperr"
	"command_center_backend/platform/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tableStore struct {
	mu        sync.Mutex
	name      string
	rows      map[string][]postgrest.Row
	seq       int
	insertErr error
}

func newTableStore(name string) *tableStore {
	return &tableStore{name: name, rows: map[string][]postgrest.Row{}}
}

func (s *tableStore) Insert(_ context.Context, table string, row postgrest.Row) (postgrest.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	s.seq++
	stored := row.Clone()
	stored["id"] = fmt.Sprintf("%s-%d", s.name, s.seq)
	s.rows[table] = append(s.rows[table], stored)
	return stored.Clone(), nil
}

func (s *tableStore) Upsert(_ context.Context, table string, row postgrest.Row, onConflict []string) ([]postgrest.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.rows[table] {
		match := true
		for _, c := range onConflict {
			if fmt.Sprint(existing[c]) != fmt.Sprint(row[c]) {
				match = false
			}
		}
		if match {
			merged := existing.Clone()
			for k, v := range row {
				merged[k] = v
			}
			s.rows[table][i] = merged
			return []postgrest.Row{merged.Clone()}, nil
		}
	}
	s.seq++
	stored := row.Clone()
	stored["id"] = fmt.Sprintf("%s-%d", s.name, s.seq)
	s.rows[table] = append(s.rows[table], stored)
	return []postgrest.Row{stored.Clone()}, nil
}

func (s *tableStore) Update(context.Context, string, string, any, postgrest.Row) error { return nil }

func (s *tableStore) Select(context.Context, string, postgrest.SelectQuery) ([]postgrest.Row, error) {
	return nil, nil
}

func (s *tableStore) count(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows[table])
}

type provider map[string]*tableStore

func (p provider) Store(key string, _ bool) postgrest.Store {
	if s, ok := p[key]; ok && s != nil {
		return s
	}
	return nil
}

type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []uplinesync.Job
	err  error
}

func (d *recordingDispatcher) DispatchSync(_ context.Context, job uplinesync.Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, job)
	return d.err
}

// gatedDispatcher walks in the background once release is closed.
type gatedDispatcher struct {
	walker  *uplinesync.Walker
	release chan struct{}
	done    chan uplinesync.Result
}

func (d *gatedDispatcher) DispatchSync(ctx context.Context, job uplinesync.Job) error {
	go func() {
		<-d.release
		d.done <- d.walker.Run(ctx, job)
	}()
	return nil
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New([]registry.Entry{
		{Key: "pitchModularSpaces", IsMaster: true},
		{Key: "pitchMarketingAgency", SyncTo: "pitchModularSpaces"},
		{Key: "creditprenuers", SyncTo: "pitchMarketingAgency", PhoneRegion: "US"},
	})
	require.NoError(t, err)
	return reg
}

func leadRequest() transport.CaptureLeadRequest {
	return transport.CaptureLeadRequest{
		Name:    "Ada Byron",
		Email:   " Ada@Example.com ",
		Phone:   "(415) 555-2671",
		Message: "<b>Need</b> funding",
	}
}

func TestCaptureLead_StoresLocallyAndDispatches(t *testing.T) {
	stores := provider{"creditprenuers": newTableStore("cp")}
	dispatcher := &recordingDispatcher{}
	bus := events.NewInMemoryBus(logger.Nop())
	var captured []events.LeadCaptured
	var mu sync.Mutex
	bus.Subscribe(events.NameLeadCaptured, events.HandlerFunc(func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		captured = append(captured, e.(events.LeadCaptured))
		return nil
	}))

	svc := New(testRegistry(t), stores, dispatcher, bus, logger.Nop())
	svc.now = func() time.Time { return time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC) }

	row, err := svc.CaptureLead(context.Background(), "creditprenuers", leadRequest())
	require.NoError(t, err)
	bus.Wait()

	assert.Equal(t, "cp-1", row.ID())
	assert.Equal(t, "creditprenuers", row["source"])
	assert.Equal(t, "new", row["status"])
	assert.Equal(t, "ada@example.com", row["email"])
	assert.Equal(t, "+14155552671", row["phone"])
	assert.Equal(t, "Need funding", row["message"])
	assert.Equal(t, "website-lead-form", row["form_id"])
	assert.Equal(t, "2026-10-17T08:00:00Z", row["created_at"])
	assert.Nil(t, row["company"])

	require.Len(t, dispatcher.jobs, 1)
	job := dispatcher.jobs[0]
	assert.Equal(t, uplinesync.TableLeads, job.Table)
	assert.Equal(t, "creditprenuers", job.Origin)
	assert.Equal(t, "cp-1", job.Record.ID(), "walker receives the persisted row")

	require.Len(t, captured, 1)
	assert.Equal(t, "Ada", captured[0].Contact.FirstName)
	assert.Equal(t, "Byron", captured[0].Contact.LastName)
	assert.Equal(t, "cp-1", captured[0].LeadID)
}

func TestCaptureBooking_Defaults(t *testing.T) {
	stores := provider{"creditprenuers": newTableStore("cp")}
	svc := New(testRegistry(t), stores, &recordingDispatcher{}, events.NewInMemoryBus(logger.Nop()), logger.Nop())

	row, err := svc.CaptureBooking(context.Background(), "creditprenuers", transport.CaptureBookingRequest{
		Name: "Ada", Email: "ada@example.com", Date: "2026-11-02", Time: "10:30",
	})
	require.NoError(t, err)

	assert.Equal(t, "consultation", row["service"])
	assert.Equal(t, "pending", row["status"])
	assert.Equal(t, "creditprenuers", row["source"])

	row, err = svc.CaptureBooking(context.Background(), "creditprenuers", transport.CaptureBookingRequest{
		Name: "Ada", Email: "ada@example.com", Date: "2026-11-02", Time: "10:30", Source: "mobile_app",
	})
	require.NoError(t, err)
	assert.Equal(t, "mobile_app", row["source"])
}

func TestCapture_Errors(t *testing.T) {
	ctx := context.Background()
	reg := testRegistry(t)

	svc := New(reg, provider{}, &recordingDispatcher{}, events.NewInMemoryBus(logger.Nop()), logger.Nop())
	_, err := svc.CaptureLead(ctx, "unknown", leadRequest())
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))

	_, err = svc.CaptureLead(ctx, "creditprenuers", leadRequest())
	assert.True(t, apperr.Is(err, apperr.KindConfiguration), "no local client")

	failing := newTableStore("cp")
	failing.insertErr = &postgrest.Error{Status: 409, Message: "duplicate key"}
	dispatcher := &recordingDispatcher{}
	svc = New(reg, provider{"creditprenuers": failing}, dispatcher, events.NewInMemoryBus(logger.Nop()), logger.Nop())
	_, err = svc.CaptureBooking(ctx, "creditprenuers", transport.CaptureBookingRequest{Name: "A", Email: "a@b.co", Date: "2026-01-01", Time: "9"})
	assert.True(t, apperr.Is(err, apperr.KindPersistence))
	assert.Empty(t, dispatcher.jobs, "nothing to sync after a failed local write")
}

func TestCapture_DispatchFailureDoesNotFailCapture(t *testing.T) {
	stores := provider{"creditprenuers": newTableStore("cp")}
	dispatcher := &recordingDispatcher{err: errors.New("redis down")}
	svc := New(testRegistry(t), stores, dispatcher, events.NewInMemoryBus(logger.Nop()), logger.Nop())

	_, err := svc.CaptureLead(context.Background(), "creditprenuers", leadRequest())
	assert.NoError(t, err)
}

func TestCapture_SucceedsWhenAggregatorUnconfigured(t *testing.T) {
	local := newTableStore("cp")
	master := newTableStore("master")
	stores := provider{"creditprenuers": local, "pitchModularSpaces": master}
	reg := testRegistry(t)

	walker := uplinesync.NewWalker(reg, stores, logger.Nop())
	dispatcher := &gatedDispatcher{walker: walker, release: make(chan struct{}), done: make(chan uplinesync.Result, 1)}
	svc := New(reg, stores, dispatcher, events.NewInMemoryBus(logger.Nop()), logger.Nop())

	// The walk is held back, so capture must return without it.
	row, err := svc.CaptureLead(context.Background(), "creditprenuers", leadRequest())
	require.NoError(t, err)
	assert.Equal(t, "cp-1", row.ID())
	assert.Equal(t, 1, local.count(uplinesync.TableLeads))

	close(dispatcher.release)
	var res uplinesync.Result
	select {
	case res = <-dispatcher.done:
	case <-time.After(2 * time.Second):
		t.Fatal("walk did not finish")
	}

	require.Len(t, res.Failed, 1)
	assert.Equal(t, "pitchMarketingAgency", res.Failed[0].DB)
	assert.Equal(t, "not configured", res.Failed[0].Error)
	assert.Zero(t, master.count(uplinesync.TableLeads))
}
