package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/dios/internal/domain"
)

const entryColumns = `id, raw, entry_type, source, day, routed_to, rule_matched, batch_id, created_at`

// InsertEntry appends an entry and returns it with ID and CreatedAt set.
func (t *Tx) InsertEntry(ctx context.Context, e domain.Entry) (domain.Entry, error) {
	res, err := t.exec(ctx, `
		INSERT INTO entries (raw, entry_type, source, day, routed_to, rule_matched, batch_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.Raw,
		string(e.EntryType),
		nullString(e.Source),
		e.Day,
		string(e.RoutedTo),
		nullString(e.RuleMatched),
		nullString(e.BatchID),
		t.stamp(),
	)
	if err != nil {
		return e, fmt.Errorf("insert entry: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return e, fmt.Errorf("insert entry: %w", err)
	}
	e.CreatedAt = t.now
	return e, nil
}

// ListEntriesByDay returns a day's entries in insertion order.
func (t *Tx) ListEntriesByDay(ctx context.Context, day domain.Date) ([]domain.Entry, error) {
	return t.listEntries(ctx, `SELECT `+entryColumns+` FROM entries WHERE day = ? ORDER BY id ASC`, day)
}

// ListEntriesByBatch returns the entries committed by one batch.
func (t *Tx) ListEntriesByBatch(ctx context.Context, batchID string) ([]domain.Entry, error) {
	return t.listEntries(ctx, `SELECT `+entryColumns+` FROM entries WHERE batch_id = ? ORDER BY id ASC`, batchID)
}

func (t *Tx) listEntries(ctx context.Context, query string, args ...any) ([]domain.Entry, error) {
	rows, err := t.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

func scanEntry(row scanner) (domain.Entry, error) {
	var (
		e                            domain.Entry
		entryType, routedTo, created string
		source, ruleMatched, batchID sql.NullString
	)
	if err := row.Scan(&e.ID, &e.Raw, &entryType, &source, &e.Day, &routedTo, &ruleMatched, &batchID, &created); err != nil {
		return e, fmt.Errorf("scan entry: %w", err)
	}
	e.EntryType = domain.NormalizeEntryType(entryType)
	e.RoutedTo = domain.NormalizeTarget(routedTo)
	e.Source = stringPtr(source)
	e.RuleMatched = stringPtr(ruleMatched)
	e.BatchID = stringPtr(batchID)

	var err error
	if e.CreatedAt, err = parseTime(created); err != nil {
		return e, fmt.Errorf("scan entry: %w", err)
	}
	return e, nil
}

func (t *Tx) CountEntriesByDay(ctx context.Context, day domain.Date) (int, error) {
	var n int
	if err := t.queryRow(ctx, `SELECT COUNT(*) FROM entries WHERE day = ?`, day).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// DayCount is a day with its number of entries.
type DayCount struct {
	Day     domain.Date `json:"day"`
	Entries int         `json:"entries"`
}

// OpenDays lists days that have entries but no closed daily log, newest
// first.
func (t *Tx) OpenDays(ctx context.Context, limit int) ([]DayCount, error) {
	rows, err := t.query(ctx, `
		SELECT e.day, COUNT(*)
		FROM entries e
		LEFT JOIN daily_logs d ON d.day = e.day
		WHERE COALESCE(d.is_closed, 0) = 0
		GROUP BY e.day
		ORDER BY e.day DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query open days: %w", err)
	}
	defer rows.Close()

	days := []DayCount{}
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Day, &dc.Entries); err != nil {
			return nil, fmt.Errorf("scan open day: %w", err)
		}
		days = append(days, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate open days: %w", err)
	}
	return days, nil
}
