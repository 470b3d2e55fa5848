package narrative

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dios/internal/domain"
	"github.com/roach88/dios/internal/ingest"
	"github.com/roach88/dios/internal/store"
	"github.com/roach88/dios/internal/testutil"
)

func setup(t *testing.T) (*store.Store, *testutil.FixedClock, *ingest.Coordinator) {
	t.Helper()
	clk := testutil.ClockAt("2026-03-02")
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), store.WithClock(clk))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st, clk, ingest.New(st, clk)
}

func ingestAll(t *testing.T, c *ingest.Coordinator, raws ...string) {
	t.Helper()
	for _, raw := range raws {
		_, err := c.IngestOne(context.Background(), ingest.Item{Raw: raw})
		require.NoError(t, err, raw)
	}
}

func TestCompileDay_FromStore(t *testing.T) {
	st, _, co := setup(t)
	ctx := context.Background()
	day := domain.MustParseDate("2026-03-02")

	ingestAll(t, co,
		"TODO: call bank",
		"gasté $40 en comida",
		"cobré 100 de freelance",
		"FACT: learned to batch errands",
	)
	require.NoError(t, st.WithTx(ctx, func(tx *store.Tx) error {
		tasks, err := tx.ListTasksByDay(ctx, day)
		if err != nil {
			return err
		}
		_, err = tx.SetTaskStatus(ctx, tasks[0].ID, domain.TaskDone)
		return err
	}))

	snap, err := New(st).CompileDay(ctx, day)
	require.NoError(t, err)

	assert.Equal(t, domain.SnapshotDaily, snap.Type)
	assert.Equal(t, "Day 2026-03-02: 4 entries captured. Tasks: 1/1 completed. Net cashflow: +60.00 USD.", snap.Summary)
	assert.Equal(t, "productive+financially_positive", snap.EmotionalState)
	assert.Equal(t, []string{"FACT: learned to batch errands"}, snap.Lessons)
	assert.Equal(t, []string{
		"Task completed: call bank",
		"Transaction (income): USD 100.00 - cobré 100 de freelance",
		"Transaction (expense): USD 40.00 - gasté $40 en comida",
	}, snap.KeyEvents)
}

func TestCompileDay_UpsertKeepsIdentity(t *testing.T) {
	st, clk, co := setup(t)
	ctx := context.Background()
	day := domain.MustParseDate("2026-03-02")
	c := New(st)

	first, err := c.CompileDay(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, "quiet", first.EmotionalState)

	ingestAll(t, co, "TODO: write report")
	clk.Advance(time.Hour)

	second, err := c.CompileDay(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
	assert.Contains(t, second.Summary, "1 entries captured.")

	var count int
	require.NoError(t, st.DB().QueryRow(`SELECT COUNT(*) FROM narrative_memory`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestCompileDay_Recompile_IsStable(t *testing.T) {
	st, _, co := setup(t)
	ctx := context.Background()
	day := domain.MustParseDate("2026-03-02")
	c := New(st)

	ingestAll(t, co, "PROJECT: garden", "METRIC: sleep=7.5 h", "decided to rest")
	first, err := c.CompileDay(ctx, day)
	require.NoError(t, err)
	second, err := c.CompileDay(ctx, day)
	require.NoError(t, err)

	ignore := func(s *domain.NarrativeSnapshot) domain.NarrativeSnapshot {
		cp := *s
		cp.UpdatedAt = cp.CreatedAt
		return cp
	}
	if diff := cmp.Diff(ignore(first), ignore(second)); diff != "" {
		t.Errorf("recompile changed snapshot (-first +second):\n%s", diff)
	}
}

func TestCompileWeek_CompilesMissingDays(t *testing.T) {
	st, clk, co := setup(t)
	ctx := context.Background()
	start := domain.MustParseDate("2026-03-02")

	ingestAll(t, co, "TODO: one")
	clk.Set(start.AddDays(2).Time().Add(12 * time.Hour))
	ingestAll(t, co, "FACT: two")

	week, err := New(st).CompileWeek(ctx, start)
	require.NoError(t, err)
	assert.Equal(t, domain.SnapshotWeekly, week.Type)
	assert.Equal(t, start, week.Date)
	assert.Contains(t, week.Summary, "Week 2026-03-02 to 2026-03-08: 2/7 active days.")
	assert.Equal(t, "quiet+backlogged", week.EmotionalState)

	require.NoError(t, st.WithTx(ctx, func(tx *store.Tx) error {
		for _, d := range domain.Window(start.AddDays(6), 7) {
			ok, err := tx.HasNarrative(ctx, d, domain.SnapshotDaily)
			if err != nil {
				return err
			}
			assert.True(t, ok, "daily snapshot for %s", d)
		}
		return nil
	}))

	again, err := New(st).CompileWeek(ctx, start)
	require.NoError(t, err)
	assert.Equal(t, week.ID, again.ID)
}
