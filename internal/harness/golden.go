package harness

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/dios/internal/domain"
)

// TraceSnapshot captures the complete trace for a scenario execution.
type TraceSnapshot struct {
	ScenarioName string
	Start        domain.Date
	Trace        []TraceEvent
}

// Render writes the snapshot as text, one event per line.
func (s *TraceSnapshot) Render() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "scenario: %s\n", s.ScenarioName)
	fmt.Fprintf(&buf, "start: %s\n", s.Start)
	for _, event := range s.Trace {
		fmt.Fprintf(&buf, "%s\n", event)
	}
	return buf.Bytes()
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario, result)
	return result, nil
}

// AssertGolden compares an already computed result against the scenario's
// golden file.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenario.Name,
		Start:        scenario.Start,
		Trace:        result.Trace,
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, snapshot.Render())
}
