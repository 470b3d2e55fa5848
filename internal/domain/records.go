package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoutingRule maps a regex pattern to a target table and entry type.
type RoutingRule struct {
	ID          int64     `json:"id,omitempty"`
	Name        string    `json:"name"`
	Pattern     string    `json:"pattern"`
	Target      Target    `json:"target"`
	EntryType   EntryType `json:"entry_type"`
	Priority    int       `json:"priority"`
	Active      bool      `json:"is_active"`
	Description *string   `json:"description,omitempty"`
}

// Entry is an immutable raw log line plus its routing outcome.
type Entry struct {
	ID          int64     `json:"id"`
	Raw         string    `json:"raw"`
	EntryType   EntryType `json:"entry_type"`
	Source      *string   `json:"source,omitempty"`
	Day         Date      `json:"day"`
	RoutedTo    Target    `json:"routed_to"`
	RuleMatched *string   `json:"rule_matched,omitempty"`
	BatchID     *string   `json:"batch_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Record is the closed set of domain records derived from an entry.
type Record interface {
	RecordTarget() Target
	RecordID() int64
	isRecord()
}

type Task struct {
	ID          int64      `json:"id"`
	EntryID     *int64     `json:"entry_id,omitempty"`
	ProjectID   *int64     `json:"project_id,omitempty"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	DueDate     *Date      `json:"due_date,omitempty"`
	Day         Date       `json:"day"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Transaction struct {
	ID          int64           `json:"id"`
	EntryID     *int64          `json:"entry_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Kind        TransactionKind `json:"type"`
	Category    *string         `json:"category,omitempty"`
	Description *string         `json:"description,omitempty"`
	Day         Date            `json:"day"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Fact struct {
	ID        int64     `json:"id"`
	EntryID   *int64    `json:"entry_id,omitempty"`
	Content   string    `json:"content"`
	Category  *string   `json:"category,omitempty"`
	Day       Date      `json:"day"`
	CreatedAt time.Time `json:"created_at"`
}

type Metric struct {
	ID        int64           `json:"id"`
	EntryID   *int64          `json:"entry_id,omitempty"`
	Name      string          `json:"metric_name"`
	Value     decimal.Decimal `json:"value"`
	Unit      *string         `json:"unit,omitempty"`
	Day       Date            `json:"day"`
	CreatedAt time.Time       `json:"created_at"`
}

type Project struct {
	ID          int64         `json:"id"`
	EntryID     *int64        `json:"entry_id,omitempty"`
	Name        string        `json:"name"`
	Description *string       `json:"description,omitempty"`
	Status      ProjectStatus `json:"status"`
	StartDate   *Date         `json:"start_date,omitempty"`
	EndDate     *Date         `json:"end_date,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

func (t *Task) RecordTarget() Target        { return TargetTasks }
func (t *Transaction) RecordTarget() Target { return TargetTransactions }
func (f *Fact) RecordTarget() Target        { return TargetFacts }
func (m *Metric) RecordTarget() Target      { return TargetMetrics }
func (p *Project) RecordTarget() Target     { return TargetProjects }

func (t *Task) RecordID() int64        { return t.ID }
func (t *Transaction) RecordID() int64 { return t.ID }
func (f *Fact) RecordID() int64        { return f.ID }
func (m *Metric) RecordID() int64      { return m.ID }
func (p *Project) RecordID() int64     { return p.ID }

func (*Task) isRecord()        {}
func (*Transaction) isRecord() {}
func (*Fact) isRecord()        {}
func (*Metric) isRecord()      {}
func (*Project) isRecord()     {}

// NarrativeSnapshot is a compiled daily or weekly summary.
type NarrativeSnapshot struct {
	ID             int64        `json:"id"`
	Date           Date         `json:"date"`
	Type           SnapshotType `json:"snapshot_type"`
	Summary        string       `json:"summary"`
	KeyEvents      []string     `json:"key_events"`
	Decisions      []string     `json:"decisions"`
	Lessons        []string     `json:"lessons"`
	EmotionalState string       `json:"emotional_state"`
	Tags           []string     `json:"tags"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// ClaritySnapshot is the persisted weekly clarity score.
type ClaritySnapshot struct {
	ID            int64           `json:"id"`
	PeriodType    string          `json:"period_type"`
	ReferenceDate Date            `json:"reference_date"`
	Score         decimal.Decimal `json:"clarity_score"`
	CompleteDays  int             `json:"complete_days"`
	TotalDays     int             `json:"total_days"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// BehaviorEvent records a reaction. At most one exists per (Type, ReferenceDate).
type BehaviorEvent struct {
	ID            int64          `json:"id"`
	Type          EventType      `json:"event_type"`
	ReferenceDate Date           `json:"reference_date"`
	Metadata      map[string]any `json:"metadata"`
	TaskID        *int64         `json:"task_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// DailyLog holds the totals captured when a day is closed.
type DailyLog struct {
	ID                int64      `json:"id"`
	Day               Date       `json:"day"`
	IsClosed          bool       `json:"is_closed"`
	TotalEntries      int        `json:"total_entries"`
	TotalTasks        int        `json:"total_tasks"`
	TotalTransactions int        `json:"total_transactions"`
	TotalFacts        int        `json:"total_facts"`
	Summary           *string    `json:"summary,omitempty"`
	ClosedAt          *time.Time `json:"closed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
