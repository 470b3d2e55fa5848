package behavior

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/roach88/dios/internal/clarity"
	"github.com/roach88/dios/internal/domain"
	"github.com/roach88/dios/internal/store"
	"github.com/roach88/dios/internal/testutil"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), store.WithClock(testutil.ClockAt("2026-03-07")))
	require.NoError(t, err)
	return st
}

func createTestStore(t *testing.T) *store.Store {
	t.Helper()
	st := openStore(t)
	t.Cleanup(func() { st.Close() })
	return st
}

// weekly builds a clarity result ending at ref from per-day completeness,
// oldest first.
func weekly(ref string, complete ...bool) clarity.WeeklyClarity {
	end := domain.MustParseDate(ref)
	wc := clarity.WeeklyClarity{ReferenceDate: end, TotalDays: clarity.WindowDays}
	for i, day := range domain.Window(end, clarity.WindowDays) {
		wc.Days = append(wc.Days, clarity.DailyClarity{Day: day, IsComplete: complete[i]})
		if complete[i] {
			wc.CompleteDays++
		}
	}
	wc.Score = clarity.Score(wc.CompleteDays, wc.TotalDays)
	return wc
}

func listEvents(t *testing.T, st *store.Store) []domain.BehaviorEvent {
	t.Helper()
	var events []domain.BehaviorEvent
	require.NoError(t, st.WithTx(context.Background(), func(tx *store.Tx) error {
		var err error
		_, events, err = tx.ListEvents(context.Background(), nil, 100, 0)
		return err
	}))
	return events
}

func countTasks(t *testing.T, st *store.Store, title string) int {
	t.Helper()
	var n int
	require.NoError(t, st.DB().QueryRow(`SELECT COUNT(*) FROM tasks WHERE title = ?`, title).Scan(&n))
	return n
}

func TestReact_WarningAndResetDay(t *testing.T) {
	st := createTestStore(t)
	ctx := context.Background()
	wc := weekly("2026-03-07", true, true, false, false, false, false, false)

	got, err := New(st).React(ctx, wc)
	require.NoError(t, err)
	assert.Equal(t, []domain.EventType{domain.EventClarityWarning, domain.EventResetDayProtocol}, got.EventsCreated)
	assert.Empty(t, got.EventsSkipped)
	assert.True(t, got.TaskCreated)
	require.NotNil(t, got.TaskID)

	var task *domain.Task
	require.NoError(t, st.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		task, err = tx.GetTask(ctx, *got.TaskID)
		return err
	}))
	assert.Equal(t, ResetTaskTitle, task.Title)
	assert.Equal(t, domain.TaskPending, task.Status)
	assert.Equal(t, "2026-03-07", task.Day.String())
	assert.Equal(t, "Auto-generated by behavioral engine: 3 consecutive incomplete days detected.", *task.Description)

	events := listEvents(t, st)
	require.Len(t, events, 2)
	byType := map[domain.EventType]domain.BehaviorEvent{}
	for _, ev := range events {
		byType[ev.Type] = ev
	}

	warning := byType[domain.EventClarityWarning]
	assert.Equal(t, "0.2857", warning.Metadata["score"])
	assert.Equal(t, "0.4", warning.Metadata["threshold"])
	assert.Equal(t, json.Number("2"), warning.Metadata["complete_days"])
	assert.Equal(t, json.Number("7"), warning.Metadata["total_days"])

	reset := byType[domain.EventResetDayProtocol]
	require.NotNil(t, reset.TaskID)
	assert.Equal(t, *got.TaskID, *reset.TaskID)
	assert.Equal(t, []any{"2026-03-05", "2026-03-06", "2026-03-07"}, reset.Metadata["incomplete_days"])
	assert.Equal(t, json.Number("3"), reset.Metadata["consecutive_incomplete_days"])
}

func TestReact_Idempotent(t *testing.T) {
	st := createTestStore(t)
	ctx := context.Background()
	r := New(st)
	wc := weekly("2026-03-07", false, false, false, false, false, false, false)

	first, err := r.React(ctx, wc)
	require.NoError(t, err)
	assert.Len(t, first.EventsCreated, 2)

	second, err := r.React(ctx, wc)
	require.NoError(t, err)
	assert.Empty(t, second.EventsCreated)
	assert.Equal(t, []domain.EventType{domain.EventClarityWarning, domain.EventResetDayProtocol}, second.EventsSkipped)
	assert.False(t, second.TaskCreated)
	assert.Nil(t, second.TaskID)

	assert.Len(t, listEvents(t, st), 2)
	assert.Equal(t, 1, countTasks(t, st, ResetTaskTitle))
}

func TestReact_ThresholdIsExclusive(t *testing.T) {
	st := createTestStore(t)
	wc := weekly("2026-03-07", true, true, true, true, true, true, true)
	wc.Score = WarningThreshold

	got, err := New(st).React(context.Background(), wc)
	require.NoError(t, err)
	assert.Empty(t, got.EventsCreated)
	assert.Empty(t, got.EventsSkipped)
	assert.Empty(t, listEvents(t, st))
}

func TestReact_ResetNeedsThreeTrailingDays(t *testing.T) {
	st := createTestStore(t)
	wc := weekly("2026-03-07", false, false, false, false, true, false, false)

	got, err := New(st).React(context.Background(), wc)
	require.NoError(t, err)
	assert.Equal(t, []domain.EventType{domain.EventClarityWarning}, got.EventsCreated)
	assert.False(t, got.TaskCreated)
	assert.Equal(t, 0, countTasks(t, st, ResetTaskTitle))
}

func TestReact_PerfectWeek(t *testing.T) {
	st := createTestStore(t)
	ctx := context.Background()
	wc := weekly("2026-03-07", true, true, true, true, true, true, true)
	r := New(st)

	got, err := r.React(ctx, wc)
	require.NoError(t, err)
	assert.Equal(t, []domain.EventType{domain.EventPerfectWeek}, got.EventsCreated)

	events := listEvents(t, st)
	require.Len(t, events, 1)
	assert.Equal(t, "1.0000", events[0].Metadata["score"])
	assert.Nil(t, events[0].TaskID)

	again, err := r.React(ctx, wc)
	require.NoError(t, err)
	assert.Equal(t, []domain.EventType{domain.EventPerfectWeek}, again.EventsSkipped)
}

func TestReact_SixOfSevenIsQuiet(t *testing.T) {
	st := createTestStore(t)
	wc := weekly("2026-03-07", false, true, true, true, true, true, true)

	got, err := New(st).React(context.Background(), wc)
	require.NoError(t, err)
	assert.Empty(t, got.EventsCreated)
	assert.Empty(t, got.EventsSkipped)
}

func TestReact_DistinctReferenceDates(t *testing.T) {
	st := createTestStore(t)
	ctx := context.Background()
	r := New(st)

	_, err := r.React(ctx, weekly("2026-03-07", false, false, false, false, false, false, false))
	require.NoError(t, err)
	got, err := r.React(ctx, weekly("2026-03-08", false, false, false, false, false, false, false))
	require.NoError(t, err)

	assert.Len(t, got.EventsCreated, 2)
	assert.Equal(t, 2, countTasks(t, st, ResetTaskTitle))
}

func TestReact_ConcurrentCallsCreateOnce(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	st := openStore(t)
	defer st.Close()

	ctx := context.Background()
	r := New(st)
	wc := weekly("2026-03-07", false, false, false, false, false, false, false)

	const workers = 8
	results := make([]Reaction, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = r.React(ctx, wc)
		}()
	}
	wg.Wait()

	created, skipped, tasks := 0, 0, 0
	for i := range workers {
		require.NoError(t, errs[i])
		created += len(results[i].EventsCreated)
		skipped += len(results[i].EventsSkipped)
		if results[i].TaskCreated {
			tasks++
		}
	}
	assert.Equal(t, 2, created)
	assert.Equal(t, 2*(workers-1), skipped)
	assert.Equal(t, 1, tasks)
	assert.Len(t, listEvents(t, st), 2)
	assert.Equal(t, 1, countTasks(t, st, ResetTaskTitle))
}

// insertFirst makes every guarded insert lose to an event written between
// the existence check and the insert.
func insertFirst(t *testing.T) {
	t.Helper()
	prev := beforeInsert
	t.Cleanup(func() { beforeInsert = prev })
	beforeInsert = func(ctx context.Context, tx *store.Tx, typ domain.EventType, ref domain.Date) error {
		_, _, err := tx.InsertEvent(ctx, domain.BehaviorEvent{
			Type:          typ,
			ReferenceDate: ref,
			Metadata:      map[string]any{"writer": "other"},
		})
		return err
	}
}

func TestReact_LostInsertSkipsWithoutOrphanTask(t *testing.T) {
	st := createTestStore(t)
	insertFirst(t)

	got, err := New(st).React(context.Background(), weekly("2026-03-07", false, false, false, false, false, false, false))
	require.NoError(t, err)
	assert.Empty(t, got.EventsCreated)
	assert.Equal(t, []domain.EventType{domain.EventClarityWarning, domain.EventResetDayProtocol}, got.EventsSkipped)
	assert.False(t, got.TaskCreated)
	assert.Nil(t, got.TaskID)

	assert.Equal(t, 0, countTasks(t, st, ResetTaskTitle))
	events := listEvents(t, st)
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.Equal(t, "other", ev.Metadata["writer"])
		assert.Nil(t, ev.TaskID)
	}
}

func TestReact_LostPerfectWeekInsertSkips(t *testing.T) {
	st := createTestStore(t)
	insertFirst(t)

	got, err := New(st).React(context.Background(), weekly("2026-03-07", true, true, true, true, true, true, true))
	require.NoError(t, err)
	assert.Empty(t, got.EventsCreated)
	assert.Equal(t, []domain.EventType{domain.EventPerfectWeek}, got.EventsSkipped)

	events := listEvents(t, st)
	require.Len(t, events, 1)
	assert.Equal(t, "other", events[0].Metadata["writer"])
}
