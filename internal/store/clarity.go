package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/dios/internal/domain"
)

// UpsertClaritySnapshot writes the score for (PeriodType, ReferenceDate).
// Re-evaluating the same period overwrites the score and keeps the id.
func (t *Tx) UpsertClaritySnapshot(ctx context.Context, snap domain.ClaritySnapshot) (*domain.ClaritySnapshot, error) {
	var created string
	err := t.queryRow(ctx, `
		INSERT INTO north_star_snapshots
		(period_type, reference_date, clarity_score, complete_days, total_days, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(period_type, reference_date) DO UPDATE SET
			clarity_score = excluded.clarity_score,
			complete_days = excluded.complete_days,
			total_days = excluded.total_days,
			updated_at = excluded.updated_at
		RETURNING id, created_at
	`,
		snap.PeriodType,
		snap.ReferenceDate,
		snap.Score.StringFixed(4),
		snap.CompleteDays,
		snap.TotalDays,
		t.stamp(),
		t.stamp(),
	).Scan(&snap.ID, &created)
	if err != nil {
		return nil, fmt.Errorf("upsert clarity snapshot: %w", err)
	}
	if snap.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("upsert clarity snapshot: %w", err)
	}
	snap.UpdatedAt = t.now
	return &snap, nil
}

// GetClaritySnapshot returns ErrNotFound when the period was never evaluated.
func (t *Tx) GetClaritySnapshot(ctx context.Context, periodType string, ref domain.Date) (*domain.ClaritySnapshot, error) {
	var (
		snap                    domain.ClaritySnapshot
		score, created, updated string
	)
	err := t.queryRow(ctx, `
		SELECT id, period_type, reference_date, clarity_score, complete_days, total_days, created_at, updated_at
		FROM north_star_snapshots
		WHERE period_type = ? AND reference_date = ?
	`, periodType, ref).Scan(&snap.ID, &snap.PeriodType, &snap.ReferenceDate, &score,
		&snap.CompleteDays, &snap.TotalDays, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s clarity snapshot %s: %w", periodType, ref, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get clarity snapshot: %w", err)
	}
	if snap.Score, err = parseDecimal(score); err != nil {
		return nil, fmt.Errorf("get clarity snapshot: %w", err)
	}
	if snap.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("get clarity snapshot: %w", err)
	}
	if snap.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("get clarity snapshot: %w", err)
	}
	return &snap, nil
}
