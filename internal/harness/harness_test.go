package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestScenarios(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	for _, name := range []string{"perfect_week", "reset_day"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "assertion errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "reset_day.yaml"))
	require.NoError(t, err)

	first, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	second, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
}

func TestRun_FailedStepIsTraced(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: close_twice
description: "Closing a day twice conflicts"
start: "2026-03-02"
days:
  - day: 0
    entries: ["TODO ship", "note: shipped"]
flow:
  - action: close_day
    summary: "done for today"
  - action: close_day
  - action: task_done
    task: 42
`))
	require.NoError(t, err)

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	require.Len(t, result.Trace, 5)

	assert.Equal(t, "entries=2 tasks=1 transactions=0 facts=1 state=backlogged", result.Trace[2].Detail)
	assert.Contains(t, result.Trace[3].Detail, "error: ")
	assert.Contains(t, result.Trace[3].Detail, "already closed")
	assert.Contains(t, result.Trace[4].Detail, "task 42")
	assert.True(t, result.Pass)
}

func TestRun_FailingAssertion(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: no_events
description: "An empty week only warns"
start: "2026-03-02"
flow:
  - action: north_star
    day: 6
assertions:
  - type: trace_contains
    action: north_star
    contains: "created=perfect_week"
  - type: final_state
    table: behavior_events
    where: { event_type: clarity_warning }
    expect: { reference_date: "2026-03-08" }
`))
	require.NoError(t, err)

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	require.Len(t, result.Trace, 1)
	assert.Equal(t, "score=0.0000 complete=0/7 created=clarity_warning,reset_day_protocol skipped=- task=1",
		result.Trace[0].Detail)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "created=perfect_week")
}

func TestTraceSnapshot_Render(t *testing.T) {
	snap := TraceSnapshot{
		ScenarioName: "sample",
		Start:        sampleTrace()[0].Day,
		Trace:        sampleTrace()[:2],
	}
	want := "scenario: sample\n" +
		"start: 2026-03-02\n" +
		"001 ingest 2026-03-02 task -> tasks \"TODO ship\"\n" +
		"002 compile_day 2026-03-02 backlogged\n"
	assert.Equal(t, want, string(snap.Render()))
}
