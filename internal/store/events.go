package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/dios/internal/domain"
)

// HasEvent reports whether an event already exists for (typ, ref).
func (t *Tx) HasEvent(ctx context.Context, typ domain.EventType, ref domain.Date) (bool, error) {
	var n int
	err := t.queryRow(ctx, `
		SELECT COUNT(*) FROM behavior_events WHERE event_type = ? AND reference_date = ?
	`, string(typ), ref).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check event: %w", err)
	}
	return n > 0, nil
}

// InsertEvent records an event. Uses ON CONFLICT DO NOTHING so a concurrent
// writer that got there first is reported as inserted=false, not an error.
func (t *Tx) InsertEvent(ctx context.Context, ev domain.BehaviorEvent) (*domain.BehaviorEvent, bool, error) {
	meta, err := marshalMetadata(ev.Metadata)
	if err != nil {
		return nil, false, fmt.Errorf("insert event: %w", err)
	}

	res, err := t.exec(ctx, `
		INSERT INTO behavior_events (event_type, reference_date, metadata, task_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(event_type, reference_date) DO NOTHING
	`, string(ev.Type), ev.ReferenceDate, meta, nullInt64(ev.TaskID), t.stamp())
	if err != nil {
		return nil, false, fmt.Errorf("insert event: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("insert event: %w", err)
	}
	if n == 0 {
		return nil, false, nil
	}

	if ev.ID, err = res.LastInsertId(); err != nil {
		return nil, false, fmt.Errorf("insert event: %w", err)
	}
	ev.CreatedAt = t.now
	return &ev, true, nil
}

// ListEvents pages through events newest first. A nil typ lists every type.
func (t *Tx) ListEvents(ctx context.Context, typ *domain.EventType, limit, offset int) (int, []domain.BehaviorEvent, error) {
	where, args := "", []any{}
	if typ != nil {
		where, args = " WHERE event_type = ?", append(args, string(*typ))
	}

	var total int
	if err := t.queryRow(ctx, `SELECT COUNT(*) FROM behavior_events`+where, args...).Scan(&total); err != nil {
		return 0, nil, fmt.Errorf("count events: %w", err)
	}

	rows, err := t.query(ctx, `
		SELECT id, event_type, reference_date, metadata, task_id, created_at
		FROM behavior_events`+where+`
		ORDER BY id DESC LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return 0, nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []domain.BehaviorEvent{}
	for rows.Next() {
		var (
			ev                    domain.BehaviorEvent
			evType, meta, created string
			taskID                sql.NullInt64
		)
		if err := rows.Scan(&ev.ID, &evType, &ev.ReferenceDate, &meta, &taskID, &created); err != nil {
			return 0, nil, fmt.Errorf("scan event: %w", err)
		}
		if ev.Type, err = domain.ParseEventType(evType); err != nil {
			return 0, nil, fmt.Errorf("scan event %d: %w", ev.ID, err)
		}
		if ev.Metadata, err = unmarshalMetadata(meta); err != nil {
			return 0, nil, fmt.Errorf("scan event %d: %w", ev.ID, err)
		}
		if ev.CreatedAt, err = parseTime(created); err != nil {
			return 0, nil, fmt.Errorf("scan event %d: %w", ev.ID, err)
		}
		ev.TaskID = int64Ptr(taskID)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("iterate events: %w", err)
	}
	return total, events, nil
}
