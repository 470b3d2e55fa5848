package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dios/internal/behavior"
	"github.com/roach88/dios/internal/domain"
	"github.com/roach88/dios/internal/ingest"
	"github.com/roach88/dios/internal/store"
	"github.com/roach88/dios/internal/testutil"
)

func newTestService(t *testing.T, opts ...Option) (*Service, *testutil.FixedClock) {
	t.Helper()
	clk := testutil.ClockAt("2026-03-07")
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), store.WithClock(clk))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	opts = append([]Option{WithIDGenerator(testutil.NewSequenceGenerator("batch"))}, opts...)
	return New(st, clk, opts...), clk
}

func completeDay(t *testing.T, svc *Service, day domain.Date) {
	t.Helper()
	ctx := context.Background()
	for _, raw := range []string{"gasté $5 en café", "FACT: slept well", "note to self"} {
		_, err := svc.Ingest(ctx, ingest.Item{Raw: raw, Day: &day})
		require.NoError(t, err)
	}
	_, err := svc.CompileDay(ctx, day)
	require.NoError(t, err)
}

func TestNorthStar_PerfectWeek(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	ref := svc.Today()
	for _, day := range domain.Window(ref, 7) {
		completeDay(t, svc, day)
	}

	report, err := svc.NorthStar(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "1.0000", report.Clarity.Score.StringFixed(4))
	assert.Equal(t, []domain.EventType{domain.EventPerfectWeek}, report.Reaction.EventsCreated)

	snap, err := svc.GetClaritySnapshot(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, 7, snap.CompleteDays)

	again, err := svc.NorthStar(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, again.Reaction.EventsCreated)
	assert.Equal(t, []domain.EventType{domain.EventPerfectWeek}, again.Reaction.EventsSkipped)

	page, err := svc.ListEvents(ctx, nil, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestNorthStar_ResetDay(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	ref := svc.Today()
	for _, day := range domain.Window(ref, 7)[:4] {
		completeDay(t, svc, day)
	}

	report, err := svc.NorthStar(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "0.5714", report.Clarity.Score.StringFixed(4))
	assert.Equal(t, []domain.EventType{domain.EventResetDayProtocol}, report.Reaction.EventsCreated)
	require.True(t, report.Reaction.TaskCreated)

	active, err := svc.StateActive(ctx)
	require.NoError(t, err)
	require.Len(t, active.OpenTasks, 1)
	assert.Equal(t, behavior.ResetTaskTitle, active.OpenTasks[0].Title)
}

func TestIngestBatch_Limits(t *testing.T) {
	svc, _ := newTestService(t, WithBatchMaxItems(2))
	ctx := context.Background()

	_, err := svc.IngestBatch(ctx, nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = svc.IngestBatch(ctx, []ingest.Item{{Raw: "a"}, {Raw: "b"}, {Raw: "c"}})
	assert.ErrorIs(t, err, ErrBatchTooLarge)

	_, err = svc.IngestBatch(ctx, []ingest.Item{{Raw: "a"}, {Raw: "  "}})
	require.ErrorIs(t, err, ErrEmptyRaw)
	assert.Contains(t, err.Error(), "items[1]")

	res, err := svc.IngestBatch(ctx, []ingest.Item{{Raw: "a"}, {Raw: "METRIC: x=1"}})
	require.NoError(t, err)
	assert.Equal(t, "batch-1", res.BatchID)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 0, res.Failed)
}

func TestIngest_BlankRawRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, ingest.Item{Raw: " \t\n"})
	require.ErrorIs(t, err, ErrEmptyRaw)

	var n int
	require.NoError(t, svc.Store().DB().QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestImportRules(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	imported, err := svc.ImportRules(ctx, "../ruleset/testdata/rules.yaml")
	require.NoError(t, err)
	require.Len(t, imported, 3)
	for _, r := range imported {
		assert.NotZero(t, r.ID, r.Name)
	}

	rules, err := svc.ListRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 10)
	assert.Equal(t, "groceries", rules[0].Name)

	res, err := svc.Ingest(ctx, ingest.Item{Raw: "super 30"})
	require.NoError(t, err)
	assert.Equal(t, "groceries", *res.Entry.RuleMatched)
	assert.Equal(t, domain.TargetTransactions, res.Entry.RoutedTo)

	_, err = svc.ImportRules(ctx, "../ruleset/testdata/rules.yaml")
	require.NoError(t, err)
	rules, err = svc.ListRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 10, "reimport upserts by name")
}

func TestSetTaskStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Ingest(ctx, ingest.Item{Raw: "TODO: water plants"})
	require.NoError(t, err)
	task := res.Record.(*domain.Task)

	updated, err := svc.SetTaskStatus(ctx, task.ID, domain.TaskDone)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskDone, updated.Status)

	_, err = svc.SetTaskStatus(ctx, 999, domain.TaskDone)
	assert.True(t, store.IsNotFound(err))
}

func TestSnapshots(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	ref := svc.Today()

	week, err := svc.CompileWeek(ctx, ref.AddDays(-6))
	require.NoError(t, err)

	weekly := domain.SnapshotWeekly
	page, err := svc.ListSnapshots(ctx, &weekly, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	all, err := svc.ListSnapshots(ctx, nil, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, 8, all.Total)
	assert.Len(t, all.Items, 3)

	got, err := svc.GetSnapshot(ctx, week.ID)
	require.NoError(t, err)
	assert.Equal(t, week.Summary, got.Summary)

	_, err = svc.GetSnapshot(ctx, 4242)
	assert.True(t, store.IsNotFound(err))
}
