package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dios/internal/domain"
)

// Scenario is a sequence of logged days followed by a flow of actions.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Start is the date of day offset 0.
	Start domain.Date `yaml:"start"`

	// Days are ingested in order before the flow runs.
	Days []DayLog `yaml:"days"`

	// Flow contains the actions to run after ingestion.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final trace and state.
	// Supported types: trace_contains, trace_order, trace_count, final_state
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// DayLog is the raw lines logged on one day.
type DayLog struct {
	// Day is an offset from Scenario.Start.
	Day     int      `yaml:"day"`
	Entries []string `yaml:"entries"`
}

// Step is one action of the flow.
type Step struct {
	Action string `yaml:"action"`

	// Day is an offset from Scenario.Start. The clock is pinned to noon of
	// that day while the step runs.
	Day int `yaml:"day"`

	// Task is the task id for task_done.
	Task int64 `yaml:"task,omitempty"`

	// Summary is the optional closing note for close_day.
	Summary string `yaml:"summary,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Action is used by trace_contains and trace_count.
	Action string `yaml:"action,omitempty"`

	// Day restricts trace_contains to one day offset.
	Day *int `yaml:"day,omitempty"`

	// Contains is a substring the traced detail must include (trace_contains).
	Contains string `yaml:"contains,omitempty"`

	// Table is the table name (used by final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (used by final_state).
	// All fields must match exactly.
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected column values (used by final_state).
	// Subset match - only specified columns are validated.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number of occurrences (used by trace_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected action order (used by trace_order).
	Actions []string `yaml:"actions,omitempty"`
}

// Flow actions.
const (
	ActionIngest      = "ingest"
	ActionCompileDay  = "compile_day"
	ActionCompileWeek = "compile_week"
	ActionNorthStar   = "north_star"
	ActionTaskDone    = "task_done"
	ActionCloseDay    = "close_day"
)

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML, rejecting unknown fields.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Start.IsZero() {
		return fmt.Errorf("start is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, d := range s.Days {
		if d.Day < 0 {
			return fmt.Errorf("days[%d]: day offset must be non-negative", i)
		}
		if len(d.Entries) == 0 {
			return fmt.Errorf("days[%d]: entries list is required and must be non-empty", i)
		}
	}

	for i, step := range s.Flow {
		if step.Day < 0 {
			return fmt.Errorf("flow[%d]: day offset must be non-negative", i)
		}
		switch step.Action {
		case ActionCompileDay, ActionCompileWeek, ActionNorthStar, ActionCloseDay:
		case ActionTaskDone:
			if step.Task <= 0 {
				return fmt.Errorf("flow[%d]: task is required for task_done", i)
			}
		case "":
			return fmt.Errorf("flow[%d]: action is required", i)
		default:
			return fmt.Errorf("flow[%d]: unknown action %q", i, step.Action)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
