// Package narrative compiles daily and weekly snapshots from recorded
// entries. Everything derived is a pure function of the stored records.
package narrative

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/dios/internal/domain"
	"github.com/roach88/dios/internal/store"
)

// Compiler turns a day's records into narrative snapshots. Compiling the
// same key again replaces the previous content in place.
type Compiler struct {
	store *store.Store
}

func New(st *store.Store) *Compiler {
	return &Compiler{store: st}
}

// CompileDay builds and upserts the daily snapshot for day.
func (c *Compiler) CompileDay(ctx context.Context, day domain.Date) (*domain.NarrativeSnapshot, error) {
	var snap *domain.NarrativeSnapshot
	err := c.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		snap, err = CompileDayTx(ctx, tx, day)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// CompileWeek builds the weekly snapshot for the seven days starting at
// weekStart. Missing daily snapshots are compiled first, in the same
// transaction.
func (c *Compiler) CompileWeek(ctx context.Context, weekStart domain.Date) (*domain.NarrativeSnapshot, error) {
	var snap *domain.NarrativeSnapshot
	err := c.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		snap, err = CompileWeekTx(ctx, tx, weekStart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// CompileDayTx is CompileDay inside a caller-owned transaction.
func CompileDayTx(ctx context.Context, tx *store.Tx, day domain.Date) (*domain.NarrativeSnapshot, error) {
	in, err := loadDay(ctx, tx, day)
	if err != nil {
		return nil, fmt.Errorf("compile day %s: %w", day, err)
	}

	f := BuildDay(in)
	snap, err := tx.UpsertNarrative(ctx, snapshot(day, domain.SnapshotDaily, f))
	if err != nil {
		return nil, err
	}

	slog.Debug("daily narrative compiled", "day", day, "state", snap.EmotionalState, "entries", len(in.Entries))
	return snap, nil
}

// CompileWeekTx is CompileWeek inside a caller-owned transaction.
func CompileWeekTx(ctx context.Context, tx *store.Tx, weekStart domain.Date) (*domain.NarrativeSnapshot, error) {
	days := make([]domain.NarrativeSnapshot, 0, 7)
	for i := range 7 {
		day := weekStart.AddDays(i)
		snap, err := tx.GetNarrative(ctx, day, domain.SnapshotDaily)
		if store.IsNotFound(err) {
			snap, err = CompileDayTx(ctx, tx, day)
		}
		if err != nil {
			return nil, fmt.Errorf("compile week %s: %w", weekStart, err)
		}
		days = append(days, *snap)
	}

	f := BuildWeek(weekStart, days)
	snap, err := tx.UpsertNarrative(ctx, snapshot(weekStart, domain.SnapshotWeekly, f))
	if err != nil {
		return nil, err
	}

	slog.Debug("weekly narrative compiled", "week_start", weekStart, "state", snap.EmotionalState)
	return snap, nil
}

func loadDay(ctx context.Context, tx *store.Tx, day domain.Date) (DayInput, error) {
	in := DayInput{Day: day}
	var err error
	if in.Entries, err = tx.ListEntriesByDay(ctx, day); err != nil {
		return in, err
	}
	if in.Tasks, err = tx.ListTasksByDay(ctx, day); err != nil {
		return in, err
	}
	if in.Transactions, err = tx.ListTransactionsByDay(ctx, day); err != nil {
		return in, err
	}
	if in.Facts, err = tx.ListFactsByDay(ctx, day); err != nil {
		return in, err
	}
	if in.Metrics, err = tx.ListMetricsByDay(ctx, day); err != nil {
		return in, err
	}
	return in, nil
}

func snapshot(date domain.Date, typ domain.SnapshotType, f Fields) domain.NarrativeSnapshot {
	return domain.NarrativeSnapshot{
		Date:           date,
		Type:           typ,
		Summary:        f.Summary,
		KeyEvents:      f.KeyEvents,
		Decisions:      f.Decisions,
		Lessons:        f.Lessons,
		EmotionalState: f.EmotionalState,
		Tags:           f.Tags,
	}
}
