package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dios/internal/domain"
)

const minimalScenario = `
name: minimal
description: "One day, one compile"
start: "2026-03-02"
days:
  - day: 0
    entries: ["note: hello"]
flow:
  - action: compile_day
    day: 0
assertions:
  - type: trace_count
    action: compile_day
    count: 1
`

func TestLoadScenario_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "minimal", scenario.Name)
	assert.Equal(t, domain.MustParseDate("2026-03-02"), scenario.Start)
	require.Len(t, scenario.Days, 1)
	assert.Equal(t, []string{"note: hello"}, scenario.Days[0].Entries)
	require.Len(t, scenario.Flow, 1)
	assert.Equal(t, ActionCompileDay, scenario.Flow[0].Action)
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, 1, scenario.Assertions[0].Count)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Fixtures(t *testing.T) {
	for _, name := range []string{"perfect_week", "reset_day"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)
			assert.Equal(t, name, scenario.Name)
		})
	}
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(minimalScenario + "assertion: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "missing name",
			yaml: `
description: "x"
start: "2026-03-02"
flow: [{action: compile_day}]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			yaml: `
name: x
start: "2026-03-02"
flow: [{action: compile_day}]
`,
			wantErr: "description is required",
		},
		{
			name: "missing start",
			yaml: `
name: x
description: "x"
flow: [{action: compile_day}]
`,
			wantErr: "start is required",
		},
		{
			name: "empty flow",
			yaml: `
name: x
description: "x"
start: "2026-03-02"
`,
			wantErr: "flow list is required",
		},
		{
			name: "unknown action",
			yaml: `
name: x
description: "x"
start: "2026-03-02"
flow: [{action: dance}]
`,
			wantErr: `unknown action "dance"`,
		},
		{
			name: "task_done without task",
			yaml: `
name: x
description: "x"
start: "2026-03-02"
flow: [{action: task_done}]
`,
			wantErr: "task is required for task_done",
		},
		{
			name: "negative day",
			yaml: `
name: x
description: "x"
start: "2026-03-02"
flow: [{action: compile_day, day: -1}]
`,
			wantErr: "day offset must be non-negative",
		},
		{
			name: "day without entries",
			yaml: `
name: x
description: "x"
start: "2026-03-02"
days: [{day: 0}]
flow: [{action: compile_day}]
`,
			wantErr: "days[0]: entries list is required",
		},
		{
			name: "final_state without expect",
			yaml: `
name: x
description: "x"
start: "2026-03-02"
flow: [{action: compile_day}]
assertions: [{type: final_state, table: tasks}]
`,
			wantErr: "expect is required for final_state",
		},
		{
			name: "unknown assertion",
			yaml: `
name: x
description: "x"
start: "2026-03-02"
flow: [{action: compile_day}]
assertions: [{type: vibes}]
`,
			wantErr: `unknown assertion type "vibes"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
