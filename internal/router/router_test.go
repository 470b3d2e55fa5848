package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dios/internal/domain"
	"github.com/roach88/dios/internal/ruleset"
)

func rule(name, pattern string, target domain.Target, et domain.EntryType, prio int) domain.RoutingRule {
	return domain.RoutingRule{Name: name, Pattern: pattern, Target: target, EntryType: et, Priority: prio, Active: true}
}

func TestRoute_DefaultRules(t *testing.T) {
	rules := ruleset.Defaults()

	tests := []struct {
		raw       string
		rule      string
		target    domain.Target
		entryType domain.EntryType
	}{
		{"TODO: call bank", "task_prefix", domain.TargetTasks, domain.EntryTypeTask},
		{"tarea revisar correo", "task_prefix", domain.TargetTasks, domain.EntryTypeTask},
		{"cobré 1200 del cliente", "income_keyword", domain.TargetTransactions, domain.EntryTypeTransaction},
		{"gasté $40 en comida", "expense_keyword", domain.TargetTransactions, domain.EntryTypeTransaction},
		{"FACT: water boils at 100C", "fact_keyword", domain.TargetFacts, domain.EntryTypeFact},
		{"METRIC: weight=70 kg", "metric_keyword", domain.TargetMetrics, domain.EntryTypeMetric},
		{"PROJECT: garden", "project_keyword", domain.TargetProjects, domain.EntryTypeProject},
		{"walked the dog", "default_note", domain.TargetFacts, domain.EntryTypeNote},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			res := Route(tt.raw, rules)
			require.True(t, res.Matched())
			assert.Equal(t, tt.rule, *res.RuleName)
			assert.Equal(t, tt.target, res.Target)
			assert.Equal(t, tt.entryType, res.EntryType)
		})
	}
}

func TestRoute_CaseInsensitive(t *testing.T) {
	rules := []domain.RoutingRule{rule("t", "^todo", domain.TargetTasks, domain.EntryTypeTask, 1)}
	res := Route("ToDo buy milk", rules)
	require.True(t, res.Matched())
	assert.Equal(t, domain.TargetTasks, res.Target)
}

func TestRoute_PriorityTieKeepsInputOrder(t *testing.T) {
	rules := []domain.RoutingRule{
		rule("low", "milk", domain.TargetFacts, domain.EntryTypeFact, 1),
		rule("first", "milk", domain.TargetTasks, domain.EntryTypeTask, 5),
		rule("second", "milk", domain.TargetTransactions, domain.EntryTypeTransaction, 5),
	}
	res := Route("buy milk", rules)
	require.True(t, res.Matched())
	assert.Equal(t, "first", *res.RuleName)
}

func TestRoute_HigherPriorityWins(t *testing.T) {
	rules := []domain.RoutingRule{
		rule("generic", ".*", domain.TargetFacts, domain.EntryTypeNote, 0),
		rule("specific", "milk", domain.TargetTasks, domain.EntryTypeTask, 10),
	}
	assert.Equal(t, "specific", *Route("buy milk", rules).RuleName)
}

func TestRoute_InactiveRulesIgnored(t *testing.T) {
	r := rule("off", ".*", domain.TargetTasks, domain.EntryTypeTask, 100)
	r.Active = false
	assert.Equal(t, Fallback, Route("anything", []domain.RoutingRule{r}))
}

func TestRoute_FallbackOnEmptyRules(t *testing.T) {
	res := Route("hello", nil)
	assert.False(t, res.Matched())
	assert.Equal(t, domain.EntryTypeNote, res.EntryType)
	assert.Equal(t, domain.TargetFacts, res.Target)
}

func TestRoute_InvalidPatternSkipped(t *testing.T) {
	rules := []domain.RoutingRule{
		rule("broken", "([", domain.TargetTasks, domain.EntryTypeTask, 100),
		rule("ok", "milk", domain.TargetFacts, domain.EntryTypeFact, 1),
	}
	r := New()
	for i := 0; i < 2; i++ {
		res := r.Route("milk", rules)
		require.True(t, res.Matched())
		assert.Equal(t, "ok", *res.RuleName)
	}
}

func TestRoute_NormalizesRuleOutput(t *testing.T) {
	rules := []domain.RoutingRule{rule("m", "^kpi", "metrics", "Metric", 1)}
	res := Route("KPI sleep", rules)
	assert.Equal(t, domain.TargetMetrics, res.Target)
	assert.Equal(t, domain.EntryTypeMetric, res.EntryType)

	rules = []domain.RoutingRule{rule("x", "^x", domain.TargetFacts, "mystery", 1)}
	assert.Equal(t, domain.EntryTypeUnknown, Route("x marks", rules).EntryType)
}

func TestRoute_Deterministic(t *testing.T) {
	rules := ruleset.Defaults()
	first := Route("pagué la renta", rules)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Route("pagué la renta", rules))
	}
}

func TestOrdered_DoesNotMutateInput(t *testing.T) {
	rules := []domain.RoutingRule{
		rule("a", "a", domain.TargetFacts, domain.EntryTypeFact, 1),
		rule("b", "b", domain.TargetFacts, domain.EntryTypeFact, 2),
	}
	got := Ordered(rules)
	assert.Equal(t, "b", got[0].Name)
	assert.Equal(t, "a", rules[0].Name)
}
