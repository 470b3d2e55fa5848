package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dios/internal/domain"
	"github.com/roach88/dios/internal/ingest"
	"github.com/roach88/dios/internal/store"
	"github.com/roach88/dios/internal/testutil"
)

func setup(t *testing.T) (*Service, *ingest.Coordinator, *store.Store) {
	t.Helper()
	clk := testutil.ClockAt("2026-03-02")
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), store.WithClock(clk))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st), ingest.New(st, clk), st
}

func record(t *testing.T, co *ingest.Coordinator, day string, raws ...string) {
	t.Helper()
	d := domain.MustParseDate(day)
	for _, raw := range raws {
		_, err := co.IngestOne(context.Background(), ingest.Item{Raw: raw, Day: &d})
		require.NoError(t, err, raw)
	}
}

func TestToday(t *testing.T) {
	svc, co, _ := setup(t)
	ctx := context.Background()
	record(t, co, "2026-03-02", "TODO: call bank", "gasté $12 en taxi", "METRIC: sleep=7 h", "FACT: x")
	record(t, co, "2026-03-01", "TODO: other day")

	day, err := svc.Today(ctx, domain.MustParseDate("2026-03-02"))
	require.NoError(t, err)
	assert.False(t, day.IsClosed)
	assert.Equal(t, Totals{Entries: 4, Tasks: 1, Transactions: 1, Facts: 1, Metrics: 1}, day.Totals)
	assert.Equal(t, "call bank", day.Tasks[0].Title)
	assert.Equal(t, "sleep", day.Metrics[0].Name)

	empty, err := svc.Today(ctx, domain.MustParseDate("2026-02-01"))
	require.NoError(t, err)
	assert.Equal(t, Totals{}, empty.Totals)
	assert.Empty(t, empty.Entries)
}

func TestActive(t *testing.T) {
	svc, co, st := setup(t)
	ctx := context.Background()
	record(t, co, "2026-03-01", "TODO: old", "PROJECT: garden")
	record(t, co, "2026-03-02", "TODO: new", "TODO: finished")

	require.NoError(t, st.WithTx(ctx, func(tx *store.Tx) error {
		tasks, err := tx.ListTasksByDay(ctx, domain.MustParseDate("2026-03-02"))
		if err != nil {
			return err
		}
		_, err = tx.SetTaskStatus(ctx, tasks[1].ID, domain.TaskDone)
		return err
	}))
	_, err := svc.CloseDay(ctx, domain.MustParseDate("2026-03-01"), nil)
	require.NoError(t, err)

	active, err := svc.Active(ctx)
	require.NoError(t, err)

	titles := make([]string, 0, len(active.OpenTasks))
	for _, task := range active.OpenTasks {
		titles = append(titles, task.Title)
	}
	assert.Equal(t, []string{"old", "new"}, titles)
	require.Len(t, active.ActiveProjects, 1)
	assert.Equal(t, "garden", active.ActiveProjects[0].Name)
	assert.Equal(t, []store.DayCount{{Day: domain.MustParseDate("2026-03-02"), Entries: 2}}, active.OpenDays)
}

func TestCloseDay(t *testing.T) {
	svc, co, st := setup(t)
	ctx := context.Background()
	day := domain.MustParseDate("2026-03-02")
	record(t, co, "2026-03-02", "TODO: a", "gasté $3 en pan", "FACT: b")

	closed, err := svc.CloseDay(ctx, day, domain.Ptr("good day"))
	require.NoError(t, err)
	assert.True(t, closed.Log.IsClosed)
	assert.Equal(t, 3, closed.Log.TotalEntries)
	assert.Equal(t, 1, closed.Log.TotalTasks)
	assert.Equal(t, 1, closed.Log.TotalTransactions)
	assert.Equal(t, 1, closed.Log.TotalFacts)
	assert.Equal(t, "good day", *closed.Log.Summary)
	require.NotNil(t, closed.Log.ClosedAt)

	assert.Equal(t, domain.SnapshotDaily, closed.Snapshot.Type)
	assert.Equal(t, day, closed.Snapshot.Date)
	assert.Contains(t, closed.Snapshot.Summary, "3 entries captured.")

	today, err := svc.Today(ctx, day)
	require.NoError(t, err)
	assert.True(t, today.IsClosed)

	_, err = svc.CloseDay(ctx, day, nil)
	require.Error(t, err)
	assert.True(t, store.IsConflict(err))

	var logs int
	require.NoError(t, st.DB().QueryRow(`SELECT COUNT(*) FROM daily_logs`).Scan(&logs))
	assert.Equal(t, 1, logs)
}

func TestCloseDay_EmptySummaryIsNull(t *testing.T) {
	svc, _, _ := setup(t)

	closed, err := svc.CloseDay(context.Background(), domain.MustParseDate("2026-03-02"), domain.Ptr(""))
	require.NoError(t, err)
	assert.Nil(t, closed.Log.Summary)
	assert.Equal(t, "quiet", closed.Snapshot.EmotionalState)
}
