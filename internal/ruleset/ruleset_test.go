package ruleset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dios/internal/domain"
)

func expectedFixtureRules() []domain.RoutingRule {
	desc := "Grocery spending"
	return []domain.RoutingRule{
		{Name: "groceries", Pattern: "^(super|groceries)", Target: domain.TargetTransactions,
			EntryType: domain.EntryTypeTransaction, Priority: 120, Active: true, Description: &desc},
		{Name: "sleep_kpi", Pattern: "^SLEEP:", Target: domain.TargetMetrics,
			EntryType: domain.EntryTypeMetric, Priority: 65, Active: true},
		{Name: "parked", Pattern: "^someday", Target: domain.TargetTasks,
			EntryType: domain.EntryTypeTask, Priority: 10, Active: false},
	}
}

func TestDefaults(t *testing.T) {
	rules := Defaults()
	require.Len(t, rules, 7)
	require.NoError(t, Validate(rules))

	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
		assert.True(t, r.Active)
	}
	assert.Equal(t, []string{
		"task_prefix", "income_keyword", "expense_keyword", "fact_keyword",
		"metric_keyword", "project_keyword", "default_note",
	}, names)
	assert.Equal(t, 0, rules[6].Priority)
}

func TestLoad_YAML(t *testing.T) {
	rules, err := Load(filepath.Join("testdata", "rules.yaml"))
	require.NoError(t, err)
	if diff := cmp.Diff(expectedFixtureRules(), rules); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_CUE(t *testing.T) {
	rules, err := Load(filepath.Join("testdata", "rules.cue"))
	require.NoError(t, err)
	if diff := cmp.Diff(expectedFixtureRules(), rules); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "unsupported")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParseYAML_UnknownFieldRejected(t *testing.T) {
	src := `
rules:
  - name: x
    pattern: x
    target: facts
    entry_type: fact
    weight: 3
`
	_, err := ParseYAML(strings.NewReader(src))
	assert.ErrorContains(t, err, "weight")
}

func TestParseYAML_Empty(t *testing.T) {
	_, err := ParseYAML(strings.NewReader(""))
	assert.Error(t, err)
}

func TestParseYAML_InvalidPattern(t *testing.T) {
	src := `
rules:
  - name: broken
    pattern: "(["
    target: facts
    entry_type: fact
`
	_, err := ParseYAML(strings.NewReader(src))
	var ruleErr *RuleError
	require.True(t, errors.As(err, &ruleErr))
	assert.Equal(t, "broken", ruleErr.Rule)
	assert.Equal(t, "pattern", ruleErr.Field)
}

func TestParseYAML_DuplicateName(t *testing.T) {
	src := `
rules:
  - {name: a, pattern: a, target: facts, entry_type: fact}
  - {name: a, pattern: b, target: facts, entry_type: fact}
`
	_, err := ParseYAML(strings.NewReader(src))
	assert.ErrorContains(t, err, "duplicate")
}

func TestParseCUE_MissingPattern(t *testing.T) {
	src := `rules: broken: {target: "facts", entry_type: "fact"}`
	_, err := ParseCUE([]byte(src), "broken.cue")
	assert.Error(t, err)
}

func TestParseCUE_TypeMismatch(t *testing.T) {
	src := `rules: bad: {pattern: "x", target: "facts", entry_type: "fact", priority: "high"}`
	_, err := ParseCUE([]byte(src), "bad.cue")
	assert.Error(t, err)
}

func TestParseCUE_NoRules(t *testing.T) {
	_, err := ParseCUE([]byte(`other: 1`), "empty.cue")
	assert.Error(t, err)
}

func TestRuleError_Format(t *testing.T) {
	err := &RuleError{Rule: "r", Field: "pattern", Message: "bad"}
	assert.Equal(t, "r.pattern: bad", err.Error())
}
