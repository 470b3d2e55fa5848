// Package behavior reacts to weekly clarity scores by emitting at most one
// event per (type, reference date).
package behavior

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/roach88/dios/internal/clarity"
	"github.com/roach88/dios/internal/domain"
	"github.com/roach88/dios/internal/store"
)

const (
	// ConsecutiveIncomplete is how many trailing incomplete days trigger a
	// reset day.
	ConsecutiveIncomplete = 3

	ResetTaskTitle = "Reset Day Protocol"

	scorePlaces = 4
)

// WarningThreshold is the exclusive upper bound of a warning score.
var WarningThreshold = decimal.RequireFromString("0.4")

var errLostRace = errors.New("event already recorded")

// beforeInsert runs between the existence check and the insert. Tests swap
// it to simulate a concurrent writer.
var beforeInsert = func(ctx context.Context, tx *store.Tx, typ domain.EventType, ref domain.Date) error {
	return nil
}

// Reaction reports what one React call did, per rule.
type Reaction struct {
	ReferenceDate domain.Date        `json:"reference_date"`
	EventsCreated []domain.EventType `json:"events_created"`
	EventsSkipped []domain.EventType `json:"events_skipped"`
	TaskCreated   bool               `json:"task_created"`
	TaskID        *int64             `json:"task_id,omitempty"`
}

type Reactor struct {
	store *store.Store
}

func New(st *store.Store) *Reactor {
	return &Reactor{store: st}
}

// React evaluates every rule against wc in one transaction. Calling it again
// for the same reference date creates nothing new.
func (r *Reactor) React(ctx context.Context, wc clarity.WeeklyClarity) (Reaction, error) {
	var out Reaction
	err := r.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		out, err = ReactTx(ctx, tx, wc)
		return err
	})
	if err != nil {
		return Reaction{}, err
	}
	return out, nil
}

// ReactTx is React inside a caller-owned transaction.
func ReactTx(ctx context.Context, tx *store.Tx, wc clarity.WeeklyClarity) (Reaction, error) {
	out := Reaction{
		ReferenceDate: wc.ReferenceDate,
		EventsCreated: []domain.EventType{},
		EventsSkipped: []domain.EventType{},
	}

	if wc.Score.LessThan(WarningThreshold) {
		err := emit(ctx, tx, &out, domain.BehaviorEvent{
			Type:          domain.EventClarityWarning,
			ReferenceDate: wc.ReferenceDate,
			Metadata: map[string]any{
				"score":         wc.Score.StringFixed(scorePlaces),
				"complete_days": wc.CompleteDays,
				"total_days":    wc.TotalDays,
				"threshold":     WarningThreshold.String(),
			},
		})
		if err != nil {
			return Reaction{}, err
		}
	}

	if tail := wc.IncompleteTail(ConsecutiveIncomplete); tail != nil {
		if err := resetDay(ctx, tx, &out, wc.ReferenceDate, tail); err != nil {
			return Reaction{}, err
		}
	}

	if wc.Score.Equal(decimal.NewFromInt(1)) {
		err := emit(ctx, tx, &out, domain.BehaviorEvent{
			Type:          domain.EventPerfectWeek,
			ReferenceDate: wc.ReferenceDate,
			Metadata: map[string]any{
				"score":         wc.Score.StringFixed(scorePlaces),
				"complete_days": wc.CompleteDays,
				"total_days":    wc.TotalDays,
			},
		})
		if err != nil {
			return Reaction{}, err
		}
	}

	return out, nil
}

// emit records ev unless an event with the same key already exists.
func emit(ctx context.Context, tx *store.Tx, out *Reaction, ev domain.BehaviorEvent) error {
	exists, err := tx.HasEvent(ctx, ev.Type, ev.ReferenceDate)
	if err != nil {
		return err
	}
	if exists {
		out.skip(ev.Type, ev.ReferenceDate)
		return nil
	}
	if err := beforeInsert(ctx, tx, ev.Type, ev.ReferenceDate); err != nil {
		return err
	}

	created, inserted, err := tx.InsertEvent(ctx, ev)
	if err != nil {
		return err
	}
	if !inserted {
		out.skip(ev.Type, ev.ReferenceDate)
		return nil
	}

	out.EventsCreated = append(out.EventsCreated, ev.Type)
	slog.Info("behavior event emitted", "type", ev.Type, "reference_date", ev.ReferenceDate, "id", created.ID)
	return nil
}

// resetDay creates the reset task and its event together. If the event
// loses a race the savepoint discards the task as well.
func resetDay(ctx context.Context, tx *store.Tx, out *Reaction, ref domain.Date, tail []domain.Date) error {
	exists, err := tx.HasEvent(ctx, domain.EventResetDayProtocol, ref)
	if err != nil {
		return err
	}
	if exists {
		out.skip(domain.EventResetDayProtocol, ref)
		return nil
	}
	if err := beforeInsert(ctx, tx, domain.EventResetDayProtocol, ref); err != nil {
		return err
	}

	var taskID int64
	err = tx.Savepoint(ctx, func(sp *store.Tx) error {
		task, err := sp.InsertTask(ctx, domain.Task{
			Title: ResetTaskTitle,
			Description: domain.Ptr(fmt.Sprintf(
				"Auto-generated by behavioral engine: %d consecutive incomplete days detected.",
				ConsecutiveIncomplete)),
			Status: domain.TaskPending,
			Day:    ref,
		})
		if err != nil {
			return err
		}

		days := make([]string, len(tail))
		for i, d := range tail {
			days[i] = d.String()
		}
		_, inserted, err := sp.InsertEvent(ctx, domain.BehaviorEvent{
			Type:          domain.EventResetDayProtocol,
			ReferenceDate: ref,
			TaskID:        &task.ID,
			Metadata: map[string]any{
				"consecutive_incomplete_days": ConsecutiveIncomplete,
				"incomplete_days":             days,
				"task_id":                     task.ID,
			},
		})
		if err != nil {
			return err
		}
		if !inserted {
			return errLostRace
		}
		taskID = task.ID
		return nil
	})
	if errors.Is(err, errLostRace) {
		out.skip(domain.EventResetDayProtocol, ref)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reset day: %w", err)
	}

	out.EventsCreated = append(out.EventsCreated, domain.EventResetDayProtocol)
	out.TaskCreated = true
	out.TaskID = &taskID
	slog.Info("behavior event emitted", "type", domain.EventResetDayProtocol, "reference_date", ref, "task_id", taskID)
	return nil
}

func (r *Reaction) skip(typ domain.EventType, ref domain.Date) {
	r.EventsSkipped = append(r.EventsSkipped, typ)
	slog.Debug("behavior event already recorded, skipping", "type", typ, "reference_date", ref)
}
