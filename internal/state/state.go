// Package state answers "what happened today" and "what is still open",
// and closes days.
package state

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/dios/internal/domain"
	"github.com/roach88/dios/internal/narrative"
	"github.com/roach88/dios/internal/store"
)

// OpenDaysLimit caps how many unclosed days Active reports.
const OpenDaysLimit = 30

type Totals struct {
	Entries      int `json:"entries"`
	Tasks        int `json:"tasks"`
	Transactions int `json:"transactions"`
	Facts        int `json:"facts"`
	Metrics      int `json:"metrics"`
}

// Day is the full record of one day.
type Day struct {
	Day          domain.Date          `json:"day"`
	IsClosed     bool                 `json:"is_closed"`
	Totals       Totals               `json:"totals"`
	Entries      []domain.Entry       `json:"entries"`
	Tasks        []domain.Task        `json:"tasks"`
	Transactions []domain.Transaction `json:"transactions"`
	Facts        []domain.Fact        `json:"facts"`
	Metrics      []domain.Metric      `json:"metrics"`
}

type Active struct {
	OpenTasks      []domain.Task    `json:"open_tasks"`
	ActiveProjects []domain.Project `json:"active_projects"`
	OpenDays       []store.DayCount `json:"open_days"`
}

// Closed is the result of closing a day.
type Closed struct {
	Log      *domain.DailyLog          `json:"daily_log"`
	Snapshot *domain.NarrativeSnapshot `json:"snapshot"`
}

type Service struct {
	store *store.Store
}

func New(st *store.Store) *Service {
	return &Service{store: st}
}

func (s *Service) Today(ctx context.Context, day domain.Date) (*Day, error) {
	out := &Day{Day: day}
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		if out.Entries, err = tx.ListEntriesByDay(ctx, day); err != nil {
			return err
		}
		if out.Tasks, err = tx.ListTasksByDay(ctx, day); err != nil {
			return err
		}
		if out.Transactions, err = tx.ListTransactionsByDay(ctx, day); err != nil {
			return err
		}
		if out.Facts, err = tx.ListFactsByDay(ctx, day); err != nil {
			return err
		}
		if out.Metrics, err = tx.ListMetricsByDay(ctx, day); err != nil {
			return err
		}

		log, err := tx.GetDailyLog(ctx, day)
		switch {
		case store.IsNotFound(err):
		case err != nil:
			return err
		default:
			out.IsClosed = log.IsClosed
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("state of %s: %w", day, err)
	}

	out.Totals = Totals{
		Entries:      len(out.Entries),
		Tasks:        len(out.Tasks),
		Transactions: len(out.Transactions),
		Facts:        len(out.Facts),
		Metrics:      len(out.Metrics),
	}
	return out, nil
}

// Active lists open tasks, active projects and the most recent days that
// have entries but were never closed.
func (s *Service) Active(ctx context.Context) (*Active, error) {
	out := &Active{}
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		if out.OpenTasks, err = tx.ListOpenTasks(ctx); err != nil {
			return err
		}
		if out.ActiveProjects, err = tx.ListActiveProjects(ctx); err != nil {
			return err
		}
		out.OpenDays, err = tx.OpenDays(ctx, OpenDaysLimit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("active state: %w", err)
	}
	return out, nil
}

// CloseDay records the day's totals and compiles its daily narrative in the
// same transaction. Closing a closed day fails with store.ErrConflict.
func (s *Service) CloseDay(ctx context.Context, day domain.Date, summary *string) (*Closed, error) {
	out := &Closed{}
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		existing, err := tx.GetDailyLog(ctx, day)
		switch {
		case store.IsNotFound(err):
		case err != nil:
			return err
		case existing.IsClosed:
			return fmt.Errorf("day %s already closed: %w", day, store.ErrConflict)
		}

		counts, err := tx.CountDay(ctx, day)
		if err != nil {
			return err
		}
		if summary != nil && *summary == "" {
			summary = nil
		}

		out.Log, err = tx.CloseDailyLog(ctx, domain.DailyLog{
			Day:               day,
			TotalEntries:      counts.Entries,
			TotalTasks:        counts.Tasks,
			TotalTransactions: counts.Transactions,
			TotalFacts:        counts.Facts,
			Summary:           summary,
		})
		if err != nil {
			return err
		}

		out.Snapshot, err = narrative.CompileDayTx(ctx, tx, day)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("day closed", "day", day, "entries", out.Log.TotalEntries)
	return out, nil
}
