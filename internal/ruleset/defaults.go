// Package ruleset provides the built-in routing rules and loads rule files
// written in YAML or CUE.
package ruleset

import "github.com/roach88/dios/internal/domain"

// Defaults returns the rules seeded into an empty store, highest priority
// first. The last rule matches everything so routing never falls through
// to the router's implicit fallback on a fresh database.
func Defaults() []domain.RoutingRule {
	return []domain.RoutingRule{
		seed("task_prefix", `^(TODO|TASK|tarea|hacer)`, domain.TargetTasks, domain.EntryTypeTask, 100,
			"Lines starting with a task marker"),
		seed("income_keyword", `(ingreso|income|cobré|cobr)`, domain.TargetTransactions, domain.EntryTypeTransaction, 90,
			"Money received"),
		seed("expense_keyword", `(gast|pagué|pague|compré|compre|expense|paid)`, domain.TargetTransactions, domain.EntryTypeTransaction, 80,
			"Money spent"),
		seed("fact_keyword", `^(FACT|DATO|nota|note):`, domain.TargetFacts, domain.EntryTypeFact, 70,
			"Explicit facts and notes"),
		seed("metric_keyword", `^(METRIC|METRICA|KPI):`, domain.TargetMetrics, domain.EntryTypeMetric, 60,
			"Daily metrics as name=value unit"),
		seed("project_keyword", `^(PROJECT|PROYECTO):`, domain.TargetProjects, domain.EntryTypeProject, 50,
			"New projects"),
		seed("default_note", `.*`, domain.TargetFacts, domain.EntryTypeNote, 0,
			"Catch-all"),
	}
}

func seed(name, pattern string, target domain.Target, et domain.EntryType, prio int, desc string) domain.RoutingRule {
	return domain.RoutingRule{
		Name:        name,
		Pattern:     pattern,
		Target:      target,
		EntryType:   et,
		Priority:    prio,
		Active:      true,
		Description: &desc,
	}
}
