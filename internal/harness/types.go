package harness

import (
	"fmt"

	"github.com/roach88/dios/internal/domain"
)

// TraceEvent is one observable outcome of a scenario: an ingested entry or
// a flow action.
type TraceEvent struct {
	Seq    int64       `json:"seq"`
	Action string      `json:"action"`
	Day    domain.Date `json:"day"`
	Detail string      `json:"detail"`
}

func (e TraceEvent) String() string {
	return fmt.Sprintf("%03d %s %s %s", e.Seq, e.Action, e.Day, e.Detail)
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace contains all ingests and actions in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an event, numbering it after the last one.
func (r *Result) AddTrace(action string, day domain.Date, detail string) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:    int64(len(r.Trace) + 1),
		Action: action,
		Day:    day,
		Detail: detail,
	})
}
