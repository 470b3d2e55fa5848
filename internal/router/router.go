// Package router classifies raw log lines against priority-ordered rules.
//
// Routing is total: every input resolves to a Result, falling back to a
// plain note stored as a fact when nothing matches.
package router

import (
	"cmp"
	"log/slog"
	"regexp"
	"slices"
	"sync"

	"github.com/roach88/dios/internal/domain"
)

// Result is the routing decision for one raw line.
type Result struct {
	EntryType domain.EntryType
	Target    domain.Target
	RuleName  *string
}

// Fallback is returned when no active rule matches.
var Fallback = Result{EntryType: domain.EntryTypeNote, Target: domain.TargetFacts}

// Matched reports whether a rule (rather than the fallback) produced r.
func (r Result) Matched() bool { return r.RuleName != nil }

// Router evaluates rules, caching compiled patterns by source text.
//
// Thread-safety: Router is safe for concurrent use.
type Router struct {
	mu    sync.Mutex
	cache map[string]*regexp.Regexp
}

func New() *Router {
	return &Router{cache: make(map[string]*regexp.Regexp)}
}

// Route classifies raw against rules with a throwaway Router.
func Route(raw string, rules []domain.RoutingRule) Result {
	return New().Route(raw, rules)
}

// Route returns the first active rule, by priority descending, whose pattern
// matches raw case-insensitively. Rules with equal priority keep their input
// order. Patterns that do not compile are logged and skipped.
func (r *Router) Route(raw string, rules []domain.RoutingRule) Result {
	for _, rule := range Ordered(rules) {
		re := r.compile(rule)
		if re == nil {
			continue
		}
		if re.MatchString(raw) {
			name := rule.Name
			return Result{
				EntryType: domain.NormalizeEntryType(string(rule.EntryType)),
				Target:    domain.NormalizeTarget(string(rule.Target)),
				RuleName:  &name,
			}
		}
	}
	return Fallback
}

// Ordered returns the active rules stable-sorted by priority descending.
func Ordered(rules []domain.RoutingRule) []domain.RoutingRule {
	active := make([]domain.RoutingRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Active {
			active = append(active, rule)
		}
	}
	slices.SortStableFunc(active, func(a, b domain.RoutingRule) int {
		return cmp.Compare(b.Priority, a.Priority)
	})
	return active
}

func (r *Router) compile(rule domain.RoutingRule) *regexp.Regexp {
	r.mu.Lock()
	defer r.mu.Unlock()

	if re, ok := r.cache[rule.Pattern]; ok {
		return re
	}
	re, err := Compile(rule.Pattern)
	if err != nil {
		slog.Warn("skipping routing rule with invalid pattern",
			"rule", rule.Name,
			"pattern", rule.Pattern,
			"error", err,
		)
	}
	// A nil entry remembers the failure so the warning is not repeated.
	r.cache[rule.Pattern] = re
	return re
}

// Compile compiles a rule pattern with case-insensitive matching.
func Compile(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}
