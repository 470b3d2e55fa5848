package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/dios/internal/domain"
)

func dateArg(d *domain.Date) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return *d
}

func datePtr(d domain.Date) *domain.Date {
	if d.IsZero() {
		return nil
	}
	return &d
}

// InsertTask stores a task. Status defaults to pending.
func (t *Tx) InsertTask(ctx context.Context, task domain.Task) (*domain.Task, error) {
	if task.Status == "" {
		task.Status = domain.TaskPending
	}
	res, err := t.exec(ctx, `
		INSERT INTO tasks (entry_id, project_id, title, description, status, due_date, day, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		nullInt64(task.EntryID),
		nullInt64(task.ProjectID),
		task.Title,
		nullString(task.Description),
		string(task.Status),
		dateArg(task.DueDate),
		task.Day,
		t.stamp(),
		t.stamp(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	if task.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	task.CreatedAt, task.UpdatedAt = t.now, t.now
	return &task, nil
}

func (t *Tx) InsertTransaction(ctx context.Context, txn domain.Transaction) (*domain.Transaction, error) {
	if txn.Currency == "" {
		txn.Currency = "USD"
	}
	txn.Amount = txn.Amount.Round(2)
	res, err := t.exec(ctx, `
		INSERT INTO transactions (entry_id, amount, currency, type, category, description, day, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		nullInt64(txn.EntryID),
		formatAmount(txn.Amount),
		txn.Currency,
		string(txn.Kind),
		nullString(txn.Category),
		nullString(txn.Description),
		txn.Day,
		t.stamp(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	if txn.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	txn.CreatedAt = t.now
	return &txn, nil
}

func (t *Tx) InsertFact(ctx context.Context, f domain.Fact) (*domain.Fact, error) {
	res, err := t.exec(ctx, `
		INSERT INTO facts (entry_id, content, category, day, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, nullInt64(f.EntryID), f.Content, nullString(f.Category), f.Day, t.stamp())
	if err != nil {
		return nil, fmt.Errorf("insert fact: %w", err)
	}
	if f.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("insert fact: %w", err)
	}
	f.CreatedAt = t.now
	return &f, nil
}

// InsertMetric stores a daily metric. A second metric with the same name on
// the same day fails with an error matching ErrConflict.
func (t *Tx) InsertMetric(ctx context.Context, m domain.Metric) (*domain.Metric, error) {
	res, err := t.exec(ctx, `
		INSERT INTO metrics_daily (entry_id, metric_name, value, unit, day, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, nullInt64(m.EntryID), m.Name, m.Value.String(), nullString(m.Unit), m.Day, t.stamp())
	if err != nil {
		return nil, fmt.Errorf("insert metric %q: %w", m.Name, err)
	}
	if m.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("insert metric: %w", err)
	}
	m.CreatedAt = t.now
	return &m, nil
}

func (t *Tx) InsertProject(ctx context.Context, p domain.Project) (*domain.Project, error) {
	if p.Status == "" {
		p.Status = domain.ProjectActive
	}
	res, err := t.exec(ctx, `
		INSERT INTO projects (entry_id, name, description, status, start_date, end_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		nullInt64(p.EntryID),
		p.Name,
		nullString(p.Description),
		string(p.Status),
		dateArg(p.StartDate),
		dateArg(p.EndDate),
		t.stamp(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	p.CreatedAt = t.now
	return &p, nil
}

const taskColumns = `id, entry_id, project_id, title, description, status, due_date, day, created_at, updated_at`

func scanTask(row scanner) (domain.Task, error) {
	var (
		task               domain.Task
		entryID, projectID sql.NullInt64
		desc               sql.NullString
		status             string
		due                domain.Date
		created, updated   string
	)
	if err := row.Scan(&task.ID, &entryID, &projectID, &task.Title, &desc, &status, &due, &task.Day, &created, &updated); err != nil {
		return task, err
	}
	st, err := domain.ParseTaskStatus(status)
	if err != nil {
		return task, fmt.Errorf("scan task %d: %w", task.ID, err)
	}
	task.Status = st
	task.EntryID = int64Ptr(entryID)
	task.ProjectID = int64Ptr(projectID)
	task.Description = stringPtr(desc)
	task.DueDate = datePtr(due)
	if task.CreatedAt, err = parseTime(created); err != nil {
		return task, err
	}
	if task.UpdatedAt, err = parseTime(updated); err != nil {
		return task, err
	}
	return task, nil
}

// GetTask returns ErrNotFound when no task has the id.
func (t *Tx) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	task, err := scanTask(t.queryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &task, nil
}

// SetTaskStatus updates a task's status and returns the updated task.
func (t *Tx) SetTaskStatus(ctx context.Context, id int64, status domain.TaskStatus) (*domain.Task, error) {
	res, err := t.exec(ctx, `UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`, string(status), t.stamp(), id)
	if err != nil {
		return nil, fmt.Errorf("set task status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("set task status: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return t.GetTask(ctx, id)
}

func (t *Tx) ListTasksByDay(ctx context.Context, day domain.Date) ([]domain.Task, error) {
	return t.listTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE day = ? ORDER BY id ASC`, day)
}

// ListOpenTasks returns pending and in-progress tasks, oldest first.
func (t *Tx) ListOpenTasks(ctx context.Context) ([]domain.Task, error) {
	return t.listTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE status IN ('pending', 'in_progress')
		ORDER BY day ASC, id ASC
	`)
}

func (t *Tx) listTasks(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	rows, err := t.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

func (t *Tx) ListTransactionsByDay(ctx context.Context, day domain.Date) ([]domain.Transaction, error) {
	rows, err := t.query(ctx, `
		SELECT id, entry_id, amount, currency, type, category, description, day, created_at
		FROM transactions WHERE day = ? ORDER BY id ASC
	`, day)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	txns := []domain.Transaction{}
	for rows.Next() {
		var (
			txn                   domain.Transaction
			entryID               sql.NullInt64
			amount, kind, created string
			category, desc        sql.NullString
		)
		if err := rows.Scan(&txn.ID, &entryID, &amount, &txn.Currency, &kind, &category, &desc, &txn.Day, &created); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if txn.Amount, err = parseDecimal(amount); err != nil {
			return nil, fmt.Errorf("scan transaction %d: %w", txn.ID, err)
		}
		if txn.Kind, err = domain.ParseTransactionKind(kind); err != nil {
			return nil, fmt.Errorf("scan transaction %d: %w", txn.ID, err)
		}
		if txn.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("scan transaction %d: %w", txn.ID, err)
		}
		txn.EntryID = int64Ptr(entryID)
		txn.Category = stringPtr(category)
		txn.Description = stringPtr(desc)
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txns, nil
}

func (t *Tx) ListFactsByDay(ctx context.Context, day domain.Date) ([]domain.Fact, error) {
	rows, err := t.query(ctx, `
		SELECT id, entry_id, content, category, day, created_at
		FROM facts WHERE day = ? ORDER BY id ASC
	`, day)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	facts := []domain.Fact{}
	for rows.Next() {
		var (
			f        domain.Fact
			entryID  sql.NullInt64
			category sql.NullString
			created  string
		)
		if err := rows.Scan(&f.ID, &entryID, &f.Content, &category, &f.Day, &created); err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		if f.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("scan fact %d: %w", f.ID, err)
		}
		f.EntryID = int64Ptr(entryID)
		f.Category = stringPtr(category)
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facts: %w", err)
	}
	return facts, nil
}

func (t *Tx) ListMetricsByDay(ctx context.Context, day domain.Date) ([]domain.Metric, error) {
	rows, err := t.query(ctx, `
		SELECT id, entry_id, metric_name, value, unit, day, created_at
		FROM metrics_daily WHERE day = ? ORDER BY id ASC
	`, day)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()

	metrics := []domain.Metric{}
	for rows.Next() {
		var (
			m              domain.Metric
			entryID        sql.NullInt64
			value, created string
			unit           sql.NullString
		)
		if err := rows.Scan(&m.ID, &entryID, &m.Name, &value, &unit, &m.Day, &created); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		if m.Value, err = parseDecimal(value); err != nil {
			return nil, fmt.Errorf("scan metric %d: %w", m.ID, err)
		}
		if m.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("scan metric %d: %w", m.ID, err)
		}
		m.EntryID = int64Ptr(entryID)
		m.Unit = stringPtr(unit)
		metrics = append(metrics, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metrics: %w", err)
	}
	return metrics, nil
}

const projectColumns = `id, entry_id, name, description, status, start_date, end_date, created_at`

// ListProjectsStartedOn returns projects whose start date is day.
func (t *Tx) ListProjectsStartedOn(ctx context.Context, day domain.Date) ([]domain.Project, error) {
	return t.listProjects(ctx, `SELECT `+projectColumns+` FROM projects WHERE start_date = ? ORDER BY id ASC`, day)
}

func (t *Tx) ListActiveProjects(ctx context.Context) ([]domain.Project, error) {
	return t.listProjects(ctx, `SELECT `+projectColumns+` FROM projects WHERE status = 'active' ORDER BY id ASC`)
}

func (t *Tx) listProjects(ctx context.Context, query string, args ...any) ([]domain.Project, error) {
	rows, err := t.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	projects := []domain.Project{}
	for rows.Next() {
		var (
			p               domain.Project
			entryID         sql.NullInt64
			desc            sql.NullString
			status, created string
			start, end      domain.Date
		)
		if err := rows.Scan(&p.ID, &entryID, &p.Name, &desc, &status, &start, &end, &created); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		if p.Status, err = domain.ParseProjectStatus(status); err != nil {
			return nil, fmt.Errorf("scan project %d: %w", p.ID, err)
		}
		if p.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("scan project %d: %w", p.ID, err)
		}
		p.EntryID = int64Ptr(entryID)
		p.Description = stringPtr(desc)
		p.StartDate = datePtr(start)
		p.EndDate = datePtr(end)
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

// DayCounts are per-table record counts for one day.
type DayCounts struct {
	Entries      int `json:"entries"`
	Tasks        int `json:"tasks"`
	DoneTasks    int `json:"done_tasks"`
	Transactions int `json:"transactions"`
	Facts        int `json:"facts"`
}

// CountDay counts a day's entries and records in one query.
func (t *Tx) CountDay(ctx context.Context, day domain.Date) (DayCounts, error) {
	var c DayCounts
	err := t.queryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM entries WHERE day = ?1),
			(SELECT COUNT(*) FROM tasks WHERE day = ?1),
			(SELECT COUNT(*) FROM tasks WHERE day = ?1 AND status = 'done'),
			(SELECT COUNT(*) FROM transactions WHERE day = ?1),
			(SELECT COUNT(*) FROM facts WHERE day = ?1)
	`, day).Scan(&c.Entries, &c.Tasks, &c.DoneTasks, &c.Transactions, &c.Facts)
	if err != nil {
		return c, fmt.Errorf("count day %s: %w", day, err)
	}
	return c, nil
}
