package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/dios/internal/domain"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// UpsertRule inserts a rule or replaces the rule with the same name,
// returning its stable id.
func (t *Tx) UpsertRule(ctx context.Context, r domain.RoutingRule) (int64, error) {
	var id int64
	err := t.queryRow(ctx, `
		INSERT INTO rules_router
		(rule_name, pattern, target, entry_type, priority, is_active, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(rule_name) DO UPDATE SET
			pattern = excluded.pattern,
			target = excluded.target,
			entry_type = excluded.entry_type,
			priority = excluded.priority,
			is_active = excluded.is_active,
			description = excluded.description,
			updated_at = excluded.updated_at
		RETURNING id
	`,
		r.Name,
		r.Pattern,
		string(domain.NormalizeTarget(string(r.Target))),
		string(domain.NormalizeEntryType(string(r.EntryType))),
		r.Priority,
		boolToInt(r.Active),
		nullString(r.Description),
		t.stamp(),
		t.stamp(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert rule %q: %w", r.Name, err)
	}
	return id, nil
}

// ListRules returns every rule, active or not, by priority descending then
// insertion order. Returns an empty slice (not nil) when there are none.
func (t *Tx) ListRules(ctx context.Context) ([]domain.RoutingRule, error) {
	rows, err := t.query(ctx, `
		SELECT id, rule_name, pattern, target, entry_type, priority, is_active, description
		FROM rules_router
		ORDER BY priority DESC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	rules := []domain.RoutingRule{}
	for rows.Next() {
		var (
			r                 domain.RoutingRule
			target, entryType string
			active            int
			desc              sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Pattern, &target, &entryType, &r.Priority, &active, &desc); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		r.Target = domain.NormalizeTarget(target)
		r.EntryType = domain.NormalizeEntryType(entryType)
		r.Active = active != 0
		r.Description = stringPtr(desc)
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return rules, nil
}

func (t *Tx) CountRules(ctx context.Context) (int, error) {
	var n int
	if err := t.queryRow(ctx, `SELECT COUNT(*) FROM rules_router`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rules: %w", err)
	}
	return n, nil
}
