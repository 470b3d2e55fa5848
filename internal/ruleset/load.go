package ruleset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/dios/internal/domain"
)

// RuleError reports a problem with one rule in a rule file.
type RuleError struct {
	Rule    string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *RuleError) Error() string {
	where := e.Field
	if e.Rule != "" {
		where = e.Rule + "." + e.Field
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), where, e.Message)
	}
	return fmt.Sprintf("%s: %s", where, e.Message)
}

// Load reads a rule file, choosing the format by extension
// (.yaml/.yml or .cue).
func Load(path string) ([]domain.RoutingRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(bytes.NewReader(data))
	case ".cue":
		return ParseCUE(data, filepath.Base(path))
	default:
		return nil, fmt.Errorf("unsupported rules file extension %q", filepath.Ext(path))
	}
}

type yamlFile struct {
	Rules []yamlRule `yaml:"rules"`
}

type yamlRule struct {
	Name        string  `yaml:"name"`
	Pattern     string  `yaml:"pattern"`
	Target      string  `yaml:"target"`
	EntryType   string  `yaml:"entry_type"`
	Priority    int     `yaml:"priority"`
	Active      *bool   `yaml:"active"`
	Description *string `yaml:"description"`
}

// ParseYAML decodes a YAML rule file. Unknown fields are rejected.
func ParseYAML(r io.Reader) ([]domain.RoutingRule, error) {
	var f yamlFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse rules: empty file")
		}
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	rules := make([]domain.RoutingRule, 0, len(f.Rules))
	for _, yr := range f.Rules {
		active := true
		if yr.Active != nil {
			active = *yr.Active
		}
		rules = append(rules, domain.RoutingRule{
			Name:        yr.Name,
			Pattern:     yr.Pattern,
			Target:      domain.NormalizeTarget(yr.Target),
			EntryType:   domain.NormalizeEntryType(yr.EntryType),
			Priority:    yr.Priority,
			Active:      active,
			Description: yr.Description,
		})
	}
	if err := Validate(rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// cueSchema constrains every entry under the top-level "rules" struct.
const cueSchema = `
rules: [string]: {
	pattern:      string & !=""
	target:       string & !=""
	entry_type:   string & !=""
	priority:     int | *0
	active:       bool | *true
	description?: string
}
`

// ParseCUE evaluates a CUE rule file against the rule schema. Rules are
// keyed by name under "rules" and returned in declaration order.
func ParseCUE(data []byte, filename string) ([]domain.RoutingRule, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(cueSchema, cue.Filename("rules_schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile rule schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v = schema.Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	rulesVal := v.LookupPath(cue.ParsePath("rules"))
	if !rulesVal.Exists() {
		return nil, &RuleError{Field: "rules", Message: "rules is required", Pos: v.Pos()}
	}

	iter, err := rulesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var rules []domain.RoutingRule
	for iter.Next() {
		rule, err := parseCUERule(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := Validate(rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func parseCUERule(name string, v cue.Value) (domain.RoutingRule, error) {
	rule := domain.RoutingRule{Name: name}

	str := func(field string) (string, error) {
		s, err := v.LookupPath(cue.ParsePath(field)).String()
		if err != nil {
			return "", formatCUEError(err)
		}
		return s, nil
	}

	var err error
	if rule.Pattern, err = str("pattern"); err != nil {
		return rule, err
	}
	target, err := str("target")
	if err != nil {
		return rule, err
	}
	rule.Target = domain.NormalizeTarget(target)

	entryType, err := str("entry_type")
	if err != nil {
		return rule, err
	}
	rule.EntryType = domain.NormalizeEntryType(entryType)

	prioVal, _ := v.LookupPath(cue.ParsePath("priority")).Default()
	prio, err := prioVal.Int64()
	if err != nil {
		return rule, formatCUEError(err)
	}
	rule.Priority = int(prio)

	activeVal, _ := v.LookupPath(cue.ParsePath("active")).Default()
	if rule.Active, err = activeVal.Bool(); err != nil {
		return rule, formatCUEError(err)
	}

	if descVal := v.LookupPath(cue.ParsePath("description")); descVal.Exists() {
		desc, err := descVal.String()
		if err != nil {
			return rule, formatCUEError(err)
		}
		rule.Description = &desc
	}
	return rule, nil
}

// Validate checks names are present and unique, patterns compile, and
// targets are set.
func Validate(rules []domain.RoutingRule) error {
	if len(rules) == 0 {
		return &RuleError{Field: "rules", Message: "at least one rule is required"}
	}
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if r.Name == "" {
			return &RuleError{Field: "name", Message: "name is required"}
		}
		if seen[r.Name] {
			return &RuleError{Rule: r.Name, Field: "name", Message: "duplicate rule name"}
		}
		seen[r.Name] = true

		if r.Pattern == "" {
			return &RuleError{Rule: r.Name, Field: "pattern", Message: "pattern is required"}
		}
		if _, err := regexp.Compile("(?i)" + r.Pattern); err != nil {
			return &RuleError{Rule: r.Name, Field: "pattern", Message: err.Error()}
		}
		if r.Target == "" {
			return &RuleError{Rule: r.Name, Field: "target", Message: "target is required"}
		}
	}
	return nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &RuleError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
