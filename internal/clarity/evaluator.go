// Package clarity scores how completely each day of a week was recorded.
package clarity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/roach88/dios/internal/domain"
	"github.com/roach88/dios/internal/store"
)

const (
	// WindowDays is the length of the scored window, ending at the
	// reference date.
	WindowDays = 7

	minEntries  = 3
	scorePlaces = 4
)

// DailyClarity is the completeness verdict for one day.
type DailyClarity struct {
	Day               domain.Date `json:"day"`
	IsComplete        bool        `json:"is_complete"`
	EventCount        int         `json:"event_count"`
	HasOutcome        bool        `json:"has_outcome"`
	HasMemorySnapshot bool        `json:"has_memory_snapshot"`
}

// WeeklyClarity scores the window of days ending at ReferenceDate. Days is
// ordered oldest first.
type WeeklyClarity struct {
	ReferenceDate domain.Date     `json:"reference_date"`
	Score         decimal.Decimal `json:"clarity_score"`
	CompleteDays  int             `json:"complete_days"`
	TotalDays     int             `json:"total_days"`
	Days          []DailyClarity  `json:"days"`
}

type Evaluator struct {
	store *store.Store
}

func New(st *store.Store) *Evaluator {
	return &Evaluator{store: st}
}

func (e *Evaluator) EvaluateDay(ctx context.Context, day domain.Date) (DailyClarity, error) {
	var dc DailyClarity
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		dc, err = EvaluateDayTx(ctx, tx, day)
		return err
	})
	return dc, err
}

// EvaluateWeek scores the seven days ending at ref and upserts the weekly
// clarity snapshot for ref.
func (e *Evaluator) EvaluateWeek(ctx context.Context, ref domain.Date) (WeeklyClarity, error) {
	var wc WeeklyClarity
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		wc, err = EvaluateWeekTx(ctx, tx, ref)
		return err
	})
	return wc, err
}

// EvaluateDayTx reads the day inside tx. A day is complete when it has at
// least three entries, a completed task or a transaction, and a compiled
// daily narrative.
func EvaluateDayTx(ctx context.Context, tx *store.Tx, day domain.Date) (DailyClarity, error) {
	counts, err := tx.CountDay(ctx, day)
	if err != nil {
		return DailyClarity{}, err
	}
	hasSnapshot, err := tx.HasNarrative(ctx, day, domain.SnapshotDaily)
	if err != nil {
		return DailyClarity{}, err
	}

	dc := DailyClarity{
		Day:               day,
		EventCount:        counts.Entries,
		HasOutcome:        counts.DoneTasks > 0 || counts.Transactions > 0,
		HasMemorySnapshot: hasSnapshot,
	}
	dc.IsComplete = dc.EventCount >= minEntries && dc.HasOutcome && dc.HasMemorySnapshot
	return dc, nil
}

func EvaluateWeekTx(ctx context.Context, tx *store.Tx, ref domain.Date) (WeeklyClarity, error) {
	wc := WeeklyClarity{
		ReferenceDate: ref,
		TotalDays:     WindowDays,
		Days:          make([]DailyClarity, 0, WindowDays),
	}
	for _, day := range domain.Window(ref, WindowDays) {
		dc, err := EvaluateDayTx(ctx, tx, day)
		if err != nil {
			return WeeklyClarity{}, fmt.Errorf("evaluate week %s: %w", ref, err)
		}
		if dc.IsComplete {
			wc.CompleteDays++
		}
		wc.Days = append(wc.Days, dc)
	}
	wc.Score = Score(wc.CompleteDays, wc.TotalDays)

	_, err := tx.UpsertClaritySnapshot(ctx, domain.ClaritySnapshot{
		PeriodType:    domain.PeriodWeekly,
		ReferenceDate: ref,
		Score:         wc.Score,
		CompleteDays:  wc.CompleteDays,
		TotalDays:     wc.TotalDays,
	})
	if err != nil {
		return WeeklyClarity{}, err
	}

	slog.Info("clarity evaluated", "reference_date", ref, "score", wc.Score.StringFixed(scorePlaces), "complete_days", wc.CompleteDays)
	return wc, nil
}

// Score is complete/total rounded half-up to four decimal places.
func Score(complete, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(complete)).DivRound(decimal.NewFromInt(int64(total)), scorePlaces)
}

// IncompleteTail returns the last n days of the window when none of them is
// complete, and nil otherwise.
func (wc WeeklyClarity) IncompleteTail(n int) []domain.Date {
	if n <= 0 || len(wc.Days) < n {
		return nil
	}
	tail := wc.Days[len(wc.Days)-n:]
	days := make([]domain.Date, 0, n)
	for _, d := range tail {
		if d.IsComplete {
			return nil
		}
		days = append(days, d.Day)
	}
	return days
}
