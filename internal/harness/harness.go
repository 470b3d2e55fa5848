package harness

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/dios/internal/app"
	"github.com/roach88/dios/internal/domain"
	"github.com/roach88/dios/internal/ingest"
	"github.com/roach88/dios/internal/store"
	"github.com/roach88/dios/internal/testutil"
)

// scenarioSource is recorded as the source of every ingested entry.
const scenarioSource = "scenario"

// Harness is the test execution engine.
// It runs scenarios with a pinned clock and numbered batch ids.
type Harness struct {
	svc   *app.Service
	clock *testutil.FixedClock
	start domain.Date
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database (default rules seeded)
// 2. Ingest every day's entries as one batch per day
// 3. Execute flow steps
// 4. Evaluate assertions and return result with pass/fail, trace, and errors
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	clk := testutil.NewFixedClock(noon(scenario.Start))
	st, err := store.Open(":memory:", store.WithClock(clk))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		svc: app.New(st, clk,
			app.WithIDGenerator(testutil.NewSequenceGenerator("batch")),
			app.WithDefaultSource(scenarioSource),
		),
		clock: clk,
		start: scenario.Start,
	}

	result := NewResult()
	if err := h.ingestDays(ctx, scenario.Days, result); err != nil {
		return nil, fmt.Errorf("failed to ingest days: %w", err)
	}
	h.executeFlow(ctx, scenario.Flow, result)

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
		Start: scenario.Start,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// ingestDays submits each day as one batch. Item failures are traced;
// only a failure of the batch itself aborts the run.
func (h *Harness) ingestDays(ctx context.Context, days []DayLog, result *Result) error {
	for i, d := range days {
		day := h.at(d.Day)
		items := make([]ingest.Item, len(d.Entries))
		for j, raw := range d.Entries {
			items[j] = ingest.Item{Raw: raw, Day: &day}
		}

		batch, err := h.svc.IngestBatch(ctx, items)
		if err != nil {
			return fmt.Errorf("days[%d]: %w", i, err)
		}
		for _, item := range batch.Items {
			if !item.OK {
				result.AddTrace(ActionIngest, day, fmt.Sprintf("error: %s %q", item.Error, d.Entries[item.Index]))
				continue
			}
			e := item.Result.Entry
			result.AddTrace(ActionIngest, day, fmt.Sprintf("%s -> %s %q", e.EntryType, e.RoutedTo, e.Raw))
		}
	}
	return nil
}

// executeFlow runs every step. A failing step is traced as an error and
// the flow continues, so expected failures show up in golden traces.
func (h *Harness) executeFlow(ctx context.Context, flow []Step, result *Result) {
	for _, step := range flow {
		day := h.at(step.Day)
		detail, err := h.execute(ctx, step, day)
		if err != nil {
			detail = "error: " + err.Error()
		}
		result.AddTrace(step.Action, day, detail)
	}
}

func (h *Harness) execute(ctx context.Context, step Step, day domain.Date) (string, error) {
	switch step.Action {
	case ActionCompileDay:
		snap, err := h.svc.CompileDay(ctx, day)
		if err != nil {
			return "", err
		}
		return snap.EmotionalState, nil

	case ActionCompileWeek:
		snap, err := h.svc.CompileWeek(ctx, day)
		if err != nil {
			return "", err
		}
		return snap.EmotionalState, nil

	case ActionNorthStar:
		report, err := h.svc.NorthStar(ctx, day)
		if err != nil {
			return "", err
		}
		return describeNorthStar(report), nil

	case ActionTaskDone:
		task, err := h.svc.SetTaskStatus(ctx, step.Task, domain.TaskDone)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("task %d %q -> %s", task.ID, task.Title, task.Status), nil

	case ActionCloseDay:
		var summary *string
		if step.Summary != "" {
			summary = &step.Summary
		}
		closed, err := h.svc.CloseDay(ctx, day, summary)
		if err != nil {
			return "", err
		}
		l := closed.Log
		return fmt.Sprintf("entries=%d tasks=%d transactions=%d facts=%d state=%s",
			l.TotalEntries, l.TotalTasks, l.TotalTransactions, l.TotalFacts,
			closed.Snapshot.EmotionalState), nil
	}
	return "", fmt.Errorf("unknown action %q", step.Action)
}

// at pins the clock to noon of the given offset and returns its date.
func (h *Harness) at(offset int) domain.Date {
	day := h.start.AddDays(offset)
	h.clock.Set(noon(day))
	return day
}

func noon(d domain.Date) time.Time {
	return d.Time().Add(12 * time.Hour)
}

func describeNorthStar(r *app.NorthStarReport) string {
	task := "-"
	if r.Reaction.TaskID != nil {
		task = fmt.Sprintf("%d", *r.Reaction.TaskID)
	}
	return fmt.Sprintf("score=%s complete=%d/%d created=%s skipped=%s task=%s",
		r.Clarity.Score.StringFixed(4),
		r.Clarity.CompleteDays, r.Clarity.TotalDays,
		joinEvents(r.Reaction.EventsCreated),
		joinEvents(r.Reaction.EventsSkipped),
		task,
	)
}

func joinEvents(events []domain.EventType) string {
	if len(events) == 0 {
		return "-"
	}
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = string(e)
	}
	return strings.Join(names, ",")
}
