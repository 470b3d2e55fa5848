package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/dios/internal/domain"
)

const narrativeColumns = `id, date, snapshot_type, summary, key_events, decisions, lessons, emotional_state, tags, created_at, updated_at`

// UpsertNarrative writes the snapshot for (Date, Type), replacing any
// previous compile. The returned snapshot carries the stable row id and the
// original created_at.
func (t *Tx) UpsertNarrative(ctx context.Context, snap domain.NarrativeSnapshot) (*domain.NarrativeSnapshot, error) {
	lists := make([]string, 4)
	for i, l := range [][]string{snap.KeyEvents, snap.Decisions, snap.Lessons, snap.Tags} {
		s, err := marshalList(l)
		if err != nil {
			return nil, fmt.Errorf("upsert narrative: %w", err)
		}
		lists[i] = s
	}

	var created string
	err := t.queryRow(ctx, `
		INSERT INTO narrative_memory
		(date, snapshot_type, summary, key_events, decisions, lessons, emotional_state, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, snapshot_type) DO UPDATE SET
			summary = excluded.summary,
			key_events = excluded.key_events,
			decisions = excluded.decisions,
			lessons = excluded.lessons,
			emotional_state = excluded.emotional_state,
			tags = excluded.tags,
			updated_at = excluded.updated_at
		RETURNING id, created_at
	`,
		snap.Date,
		string(snap.Type),
		snap.Summary,
		lists[0], lists[1], lists[2],
		snap.EmotionalState,
		lists[3],
		t.stamp(),
		t.stamp(),
	).Scan(&snap.ID, &created)
	if err != nil {
		return nil, fmt.Errorf("upsert narrative %s %s: %w", snap.Type, snap.Date, err)
	}
	if snap.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("upsert narrative: %w", err)
	}
	snap.UpdatedAt = t.now
	return &snap, nil
}

// GetNarrative returns ErrNotFound when no snapshot exists for the key.
func (t *Tx) GetNarrative(ctx context.Context, date domain.Date, typ domain.SnapshotType) (*domain.NarrativeSnapshot, error) {
	snap, err := scanNarrative(t.queryRow(ctx, `
		SELECT `+narrativeColumns+` FROM narrative_memory WHERE date = ? AND snapshot_type = ?
	`, date, string(typ)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s snapshot %s: %w", typ, date, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get narrative: %w", err)
	}
	return &snap, nil
}

// GetNarrativeByID returns ErrNotFound when no snapshot has the id.
func (t *Tx) GetNarrativeByID(ctx context.Context, id int64) (*domain.NarrativeSnapshot, error) {
	snap, err := scanNarrative(t.queryRow(ctx, `SELECT `+narrativeColumns+` FROM narrative_memory WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get narrative: %w", err)
	}
	return &snap, nil
}

func (t *Tx) HasNarrative(ctx context.Context, date domain.Date, typ domain.SnapshotType) (bool, error) {
	var n int
	err := t.queryRow(ctx, `
		SELECT COUNT(*) FROM narrative_memory WHERE date = ? AND snapshot_type = ?
	`, date, string(typ)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check narrative: %w", err)
	}
	return n > 0, nil
}

// ListNarratives pages through snapshots newest first. A nil typ lists both
// kinds. The total ignores limit and offset.
func (t *Tx) ListNarratives(ctx context.Context, typ *domain.SnapshotType, limit, offset int) (int, []domain.NarrativeSnapshot, error) {
	where, args := "", []any{}
	if typ != nil {
		where, args = " WHERE snapshot_type = ?", append(args, string(*typ))
	}

	var total int
	if err := t.queryRow(ctx, `SELECT COUNT(*) FROM narrative_memory`+where, args...).Scan(&total); err != nil {
		return 0, nil, fmt.Errorf("count narratives: %w", err)
	}

	rows, err := t.query(ctx, `SELECT `+narrativeColumns+` FROM narrative_memory`+where+`
		ORDER BY date DESC, id DESC LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return 0, nil, fmt.Errorf("query narratives: %w", err)
	}
	defer rows.Close()

	snaps := []domain.NarrativeSnapshot{}
	for rows.Next() {
		snap, err := scanNarrative(rows)
		if err != nil {
			return 0, nil, fmt.Errorf("scan narrative: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("iterate narratives: %w", err)
	}
	return total, snaps, nil
}

func scanNarrative(row scanner) (domain.NarrativeSnapshot, error) {
	var (
		snap                               domain.NarrativeSnapshot
		typ, keyEvents, decisions, lessons string
		tags, created, updated             string
	)
	if err := row.Scan(&snap.ID, &snap.Date, &typ, &snap.Summary, &keyEvents, &decisions, &lessons,
		&snap.EmotionalState, &tags, &created, &updated); err != nil {
		return snap, err
	}

	var err error
	if snap.Type, err = domain.ParseSnapshotType(typ); err != nil {
		return snap, err
	}
	if snap.KeyEvents, err = unmarshalList(keyEvents); err != nil {
		return snap, err
	}
	if snap.Decisions, err = unmarshalList(decisions); err != nil {
		return snap, err
	}
	if snap.Lessons, err = unmarshalList(lessons); err != nil {
		return snap, err
	}
	if snap.Tags, err = unmarshalList(tags); err != nil {
		return snap, err
	}
	if snap.CreatedAt, err = parseTime(created); err != nil {
		return snap, err
	}
	if snap.UpdatedAt, err = parseTime(updated); err != nil {
		return snap, err
	}
	return snap, nil
}
