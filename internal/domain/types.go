package domain

import (
	"fmt"
	"strings"
)

// EntryType classifies a raw log line.
type EntryType string

const (
	EntryTypeNote        EntryType = "note"
	EntryTypeTask        EntryType = "task"
	EntryTypeTransaction EntryType = "transaction"
	EntryTypeFact        EntryType = "fact"
	EntryTypeEvent       EntryType = "event"
	EntryTypeMetric      EntryType = "metric"
	EntryTypeProject     EntryType = "project"
	EntryTypeUnknown     EntryType = "unknown"
)

var entryTypes = map[EntryType]bool{
	EntryTypeNote: true, EntryTypeTask: true, EntryTypeTransaction: true,
	EntryTypeFact: true, EntryTypeEvent: true, EntryTypeMetric: true,
	EntryTypeProject: true, EntryTypeUnknown: true,
}

// NormalizeEntryType maps free text to the closed EntryType set.
// Anything unrecognized becomes EntryTypeUnknown.
func NormalizeEntryType(s string) EntryType {
	t := EntryType(strings.ToLower(strings.TrimSpace(s)))
	if entryTypes[t] {
		return t
	}
	return EntryTypeUnknown
}

// Target names the table an entry is routed to.
type Target string

const (
	TargetTasks        Target = "tasks"
	TargetTransactions Target = "transactions"
	TargetFacts        Target = "facts"
	TargetMetrics      Target = "metrics_daily"
	TargetProjects     Target = "projects"
)

// NormalizeTarget lowercases a routing target and resolves the "metrics"
// alias. Unknown targets are kept verbatim; they produce no record.
func NormalizeTarget(s string) Target {
	t := strings.ToLower(strings.TrimSpace(s))
	if t == "metrics" {
		return TargetMetrics
	}
	return Target(t)
}

// HasRecord reports whether entries routed to t produce a domain record.
func (t Target) HasRecord() bool {
	switch t {
	case TargetTasks, TargetTransactions, TargetFacts, TargetMetrics, TargetProjects:
		return true
	}
	return false
}

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskCancelled  TaskStatus = "cancelled"
)

// ParseTaskStatus accepts any casing plus "-" or " " separators.
func ParseTaskStatus(s string) (TaskStatus, error) {
	norm := strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch st := TaskStatus(norm); st {
	case TaskPending, TaskInProgress, TaskDone, TaskCancelled:
		return st, nil
	case "canceled":
		return TaskCancelled, nil
	}
	return "", fmt.Errorf("invalid task status %q", s)
}

type TransactionKind string

const (
	TransactionIncome   TransactionKind = "income"
	TransactionExpense  TransactionKind = "expense"
	TransactionTransfer TransactionKind = "transfer"
)

func ParseTransactionKind(s string) (TransactionKind, error) {
	switch k := TransactionKind(strings.ToLower(strings.TrimSpace(s))); k {
	case TransactionIncome, TransactionExpense, TransactionTransfer:
		return k, nil
	}
	return "", fmt.Errorf("invalid transaction kind %q", s)
}

type ProjectStatus string

const (
	ProjectActive   ProjectStatus = "active"
	ProjectPaused   ProjectStatus = "paused"
	ProjectDone     ProjectStatus = "done"
	ProjectArchived ProjectStatus = "archived"
)

func ParseProjectStatus(s string) (ProjectStatus, error) {
	switch st := ProjectStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case ProjectActive, ProjectPaused, ProjectDone, ProjectArchived:
		return st, nil
	}
	return "", fmt.Errorf("invalid project status %q", s)
}

type SnapshotType string

const (
	SnapshotDaily  SnapshotType = "daily"
	SnapshotWeekly SnapshotType = "weekly"
)

func ParseSnapshotType(s string) (SnapshotType, error) {
	switch st := SnapshotType(strings.ToLower(strings.TrimSpace(s))); st {
	case SnapshotDaily, SnapshotWeekly:
		return st, nil
	}
	return "", fmt.Errorf("invalid snapshot type %q", s)
}

// PeriodWeekly is the only clarity period currently evaluated.
const PeriodWeekly = "weekly"

type EventType string

const (
	EventClarityWarning   EventType = "clarity_warning"
	EventResetDayProtocol EventType = "reset_day_protocol"
	EventPerfectWeek      EventType = "perfect_week"
)

func ParseEventType(s string) (EventType, error) {
	switch et := EventType(strings.ToLower(strings.TrimSpace(s))); et {
	case EventClarityWarning, EventResetDayProtocol, EventPerfectWeek:
		return et, nil
	}
	return "", fmt.Errorf("invalid event type %q", s)
}
