package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/dios/internal/domain"
)

// CloseDailyLog marks a day closed with the given totals. Closing an
// already-closed day refreshes the totals, summary and closed_at.
func (t *Tx) CloseDailyLog(ctx context.Context, log domain.DailyLog) (*domain.DailyLog, error) {
	var created string
	err := t.queryRow(ctx, `
		INSERT INTO daily_logs
		(day, is_closed, total_entries, total_tasks, total_transactions, total_facts, summary, closed_at, created_at)
		VALUES (?, 1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			is_closed = 1,
			total_entries = excluded.total_entries,
			total_tasks = excluded.total_tasks,
			total_transactions = excluded.total_transactions,
			total_facts = excluded.total_facts,
			summary = excluded.summary,
			closed_at = excluded.closed_at
		RETURNING id, created_at
	`,
		log.Day,
		log.TotalEntries,
		log.TotalTasks,
		log.TotalTransactions,
		log.TotalFacts,
		nullString(log.Summary),
		t.stamp(),
		t.stamp(),
	).Scan(&log.ID, &created)
	if err != nil {
		return nil, fmt.Errorf("close daily log %s: %w", log.Day, err)
	}
	if log.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("close daily log: %w", err)
	}
	closedAt := t.now
	log.IsClosed = true
	log.ClosedAt = &closedAt
	return &log, nil
}

// GetDailyLog returns ErrNotFound when the day was never closed.
func (t *Tx) GetDailyLog(ctx context.Context, day domain.Date) (*domain.DailyLog, error) {
	var (
		log               domain.DailyLog
		closed            int
		summary, closedAt sql.NullString
		created           string
	)
	err := t.queryRow(ctx, `
		SELECT id, day, is_closed, total_entries, total_tasks, total_transactions, total_facts,
		       summary, closed_at, created_at
		FROM daily_logs WHERE day = ?
	`, day).Scan(&log.ID, &log.Day, &closed, &log.TotalEntries, &log.TotalTasks,
		&log.TotalTransactions, &log.TotalFacts, &summary, &closedAt, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("daily log %s: %w", day, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get daily log: %w", err)
	}

	log.IsClosed = closed != 0
	log.Summary = stringPtr(summary)
	if closedAt.Valid {
		ts, err := parseTime(closedAt.String)
		if err != nil {
			return nil, fmt.Errorf("get daily log: %w", err)
		}
		log.ClosedAt = &ts
	}
	if log.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("get daily log: %w", err)
	}
	return &log, nil
}
