// Package harness runs dios scenarios end to end against a fresh store.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	start: "2026-03-02"
//	days:
//	  - day: 0
//	    entries:
//	      - "TODO renew passport"
//	      - "paid 12.50 for lunch"
//	flow:
//	  - action: task_done
//	    day: 0
//	    task: 1
//	  - action: compile_day
//	    day: 0
//	  - action: north_star
//	    day: 6
//	assertions:
//	  - type: trace_contains
//	    action: north_star
//	    contains: "created=perfect_week"
//	  - type: final_state
//	    table: tasks
//	    where: { id: 1 }
//	    expect: { status: done }
//
// Days are offsets from start. Every day's entries are ingested, in order,
// before the flow runs.
//
// # Actions
//
//   - compile_day: compiles the daily narrative of the step's day
//   - compile_week: compiles the weekly narrative of the week starting on the step's day
//   - north_star: evaluates the week ending on the step's day and reacts to it
//   - task_done: marks a task done
//   - close_day: closes the step's day
//
// # Assertion Types
//
//   - trace_contains: an action (optionally on a day) appears with a detail containing a substring
//   - trace_order: actions appear in the given order
//   - trace_count: an action appears exactly N times
//   - final_state: exactly one row of a table matches where and carries the expected values
//
// # Deterministic Testing
//
// The harness pins the clock to noon of each step's day and numbers batch
// ids with a testutil.SequenceGenerator, so a scenario always produces the
// same trace. RunWithGolden compares that trace with
// testdata/golden/<name>.golden.
package harness
