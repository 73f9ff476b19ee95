package synclog

import (
	"context"
	"os"
	"testing"
	"time"

	"command_center_backend/internal/uplinesync"
	"command_center_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampLimit(t *testing.T) {
	cases := map[int]int{0: DefaultListLimit, -4: DefaultListLimit, 10: 10, 10_000: MaxListLimit}
	for in, want := range cases {
		if got := clampLimit(in); got != want {
			t.Fatalf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

type dsn string

func (d dsn) GetDatabaseURL() string { return string(d) }

// TestRepository_RoundTrip runs against a real Postgres when
// SYNCLOG_TEST_DATABASE_URL is set.
func TestRepository_RoundTrip(t *testing.T) {
	url := os.Getenv("SYNCLOG_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SYNCLOG_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	require.NoError(t, db.RunMigrations(ctx, dsn(url), "../../migrations"))
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	repo := New(pool)
	origin := "test-" + uuid.NewString()[:8]
	run := uplinesync.Run{
		ID:        uuid.New(),
		Table:     uplinesync.TableLeads,
		Origin:    origin,
		RecordID:  "42",
		Status:    uplinesync.RunPartial,
		Reached:   []string{"pitchMarketingAgency"},
		Failures:  []uplinesync.HopFailure{{DB: "pitchModularSpaces", Error: "timeout"}},
		Attempt:   2,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.RecordRun(ctx, run))

	runs, err := repo.ListRuns(ctx, ListFilter{Status: uplinesync.RunPartial, Origin: origin})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, run.Reached, runs[0].Reached)
	assert.Equal(t, run.Failures, runs[0].Failures)
	assert.True(t, run.CreatedAt.Equal(runs[0].CreatedAt))

	deleted, err := repo.DeleteBefore(ctx, time.Now().Add(time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, deleted, int64(1))
}
