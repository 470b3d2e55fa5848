package narrative

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/dios/internal/domain"
)

const (
	maxDailyKeyEvents  = 10
	maxWeeklyKeyEvents = 15
	maxDecisions       = 10
	maxLessons         = 10

	decisionRunes = 200
	lessonRunes   = 300

	noEntriesSentence = "No entries recorded."
)

var (
	decisionRe      = regexp.MustCompile(`(?i)(decid[íi]|decided|chose|elegí|eleg[íi]|opt[oó]|opted|resolv)`)
	lessonRe        = regexp.MustCompile(`(?i)^(FACT|DATO|aprendí|learned|lesson|aprendizaje|nota|note)\s*:`)
	projectPrefixRe = regexp.MustCompile(`(?i)^(PROJECT|PROYECTO)\s*[:\-]?\s*`)
)

// DayInput is everything recorded on one day.
type DayInput struct {
	Day          domain.Date
	Entries      []domain.Entry
	Tasks        []domain.Task
	Transactions []domain.Transaction
	Facts        []domain.Fact
	Metrics      []domain.Metric
}

// Fields are the derived parts of a narrative snapshot.
type Fields struct {
	Summary        string
	KeyEvents      []string
	Decisions      []string
	Lessons        []string
	Tags           []string
	EmotionalState string
}

// BuildDay derives a day's narrative. It is a pure function of its input.
func BuildDay(in DayInput) Fields {
	done := 0
	for _, t := range in.Tasks {
		if t.Status == domain.TaskDone {
			done++
		}
	}

	income, expense := decimal.Zero, decimal.Zero
	for _, tx := range in.Transactions {
		switch tx.Kind {
		case domain.TransactionIncome:
			income = income.Add(tx.Amount)
		case domain.TransactionExpense:
			expense = expense.Add(tx.Amount)
		}
	}
	net := income.Sub(expense)

	var projectEntries []domain.Entry
	entryTypes := map[string]bool{}
	for _, e := range in.Entries {
		if e.RoutedTo == domain.TargetProjects {
			projectEntries = append(projectEntries, e)
		}
		entryTypes[string(e.EntryType)] = true
	}

	// Summary
	parts := []string{fmt.Sprintf("Day %s:", in.Day)}
	if len(in.Entries) == 0 {
		parts = append(parts, noEntriesSentence)
	} else {
		parts = append(parts, fmt.Sprintf("%d entries captured.", len(in.Entries)))
	}
	if len(in.Tasks) > 0 {
		parts = append(parts, fmt.Sprintf("Tasks: %d/%d completed.", done, len(in.Tasks)))
	}
	if len(in.Transactions) > 0 {
		sign := ""
		if !net.IsNegative() {
			sign = "+"
		}
		parts = append(parts, fmt.Sprintf("Net cashflow: %s%s USD.", sign, net.StringFixed(2)))
	}
	if len(in.Metrics) > 0 {
		parts = append(parts, fmt.Sprintf("%d metric(s) tracked.", len(in.Metrics)))
	}
	if len(projectEntries) > 0 {
		names := make([]string, 0, 3)
		for _, e := range projectEntries[:min(3, len(projectEntries))] {
			names = append(names, projectName(e.Raw))
		}
		parts = append(parts, fmt.Sprintf("Projects: %s.", strings.Join(names, ", ")))
	}

	tags := entryTypes
	if income.IsPositive() {
		tags["income"] = true
	}
	if expense.IsPositive() {
		tags["expense"] = true
	}
	if len(projectEntries) > 0 {
		tags["projects"] = true
	}
	if len(in.Metrics) > 0 {
		tags["metrics"] = true
	}

	return Fields{
		Summary:        strings.Join(parts, " "),
		KeyEvents:      keyEvents(in.Tasks, projectEntries, in.Transactions, in.Metrics),
		Decisions:      decisions(in.Entries, in.Tasks),
		Lessons:        lessons(in.Facts, in.Entries),
		Tags:           sortedKeys(tags),
		EmotionalState: EmotionalState(done, len(in.Tasks), net, len(in.Entries), len(in.Facts)),
	}
}

// EmotionalState labels a day. Labels are joined with "+" in a fixed order;
// a day without entries is exactly "quiet" and a day with no label is
// "neutral".
func EmotionalState(tasksDone, tasksTotal int, net decimal.Decimal, entries, facts int) string {
	if entries == 0 {
		return "quiet"
	}

	var labels []string
	if tasksTotal > 0 {
		// Integer comparison keeps the 0.7 and 0.3 thresholds exact.
		switch {
		case tasksDone*10 >= tasksTotal*7:
			labels = append(labels, "productive")
		case tasksDone*10 >= tasksTotal*3:
			labels = append(labels, "progressing")
		default:
			labels = append(labels, "backlogged")
		}
	}
	switch {
	case net.IsPositive():
		labels = append(labels, "financially_positive")
	case net.IsNegative():
		labels = append(labels, "financially_cautious")
	}
	if facts >= 3 {
		labels = append(labels, "knowledge_rich")
	}
	if entries >= 15 {
		labels = append(labels, "data_rich")
	}

	if len(labels) == 0 {
		return "neutral"
	}
	return strings.Join(labels, "+")
}

func keyEvents(tasks []domain.Task, projectEntries []domain.Entry, txns []domain.Transaction, metrics []domain.Metric) []string {
	events := []string{}

	completed := 0
	for _, t := range tasks {
		if t.Status != domain.TaskDone {
			continue
		}
		if completed == 3 {
			break
		}
		events = append(events, "Task completed: "+t.Title)
		completed++
	}

	for _, e := range projectEntries[:min(2, len(projectEntries))] {
		events = append(events, "Project created: "+projectName(e.Raw))
	}

	ranked := slices.Clone(txns)
	slices.SortStableFunc(ranked, func(a, b domain.Transaction) int {
		return b.Amount.Abs().Cmp(a.Amount.Abs())
	})
	for _, tx := range ranked[:min(3, len(ranked))] {
		desc := "-"
		if tx.Description != nil && *tx.Description != "" {
			desc = *tx.Description
		}
		events = append(events, fmt.Sprintf("Transaction (%s): %s %s - %s",
			tx.Kind, tx.Currency, tx.Amount.StringFixed(2), desc))
	}

	for _, m := range metrics[:min(2, len(metrics))] {
		unit := ""
		if m.Unit != nil && *m.Unit != "" {
			unit = " " + *m.Unit
		}
		events = append(events, fmt.Sprintf("Metric: %s = %s%s", m.Name, m.Value.String(), unit))
	}

	return capList(events, maxDailyKeyEvents)
}

func decisions(entries []domain.Entry, tasks []domain.Task) []string {
	var found []string
	for _, e := range entries {
		if decisionRe.MatchString(e.Raw) {
			found = append(found, truncateRunes(e.Raw, decisionRunes))
		}
	}
	for _, t := range tasks {
		if decisionRe.MatchString(t.Title) {
			found = append(found, "Task: "+truncateRunes(t.Title, decisionRunes))
		}
	}
	return capList(dedupe(found), maxDecisions)
}

// lessons collects lesson-marked facts, then fact-typed entries, deduped by
// their normalized prefix.
func lessons(facts []domain.Fact, entries []domain.Entry) []string {
	seen := map[string]bool{}
	out := []string{}
	add := func(text string) {
		if !lessonRe.MatchString(text) {
			return
		}
		key := norm.NFC.String(truncateRunes(text, lessonRunes))
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, key)
	}

	for _, f := range facts {
		add(f.Content)
	}
	for _, e := range entries {
		if e.EntryType == domain.EntryTypeFact {
			add(e.Raw)
		}
	}
	return capList(out, maxLessons)
}

// BuildWeek aggregates seven daily snapshots, oldest first.
func BuildWeek(start domain.Date, days []domain.NarrativeSnapshot) Fields {
	var events, decs, less []string
	tags := map[string]bool{}
	var labels []string
	active := 0

	for _, d := range days {
		events = append(events, d.KeyEvents...)
		decs = append(decs, d.Decisions...)
		less = append(less, d.Lessons...)
		for _, tag := range d.Tags {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags[tag] = true
			}
		}
		if d.EmotionalState != "" {
			labels = append(labels, strings.Split(d.EmotionalState, "+")...)
		}
		if !strings.Contains(d.Summary, noEntriesSentence) {
			active++
		}
	}

	events = capList(dedupe(events), maxWeeklyKeyEvents)
	decs = capList(dedupe(decs), maxDecisions)
	less = capList(dedupe(less), maxLessons)
	state := DominantState(labels)

	parts := []string{
		fmt.Sprintf("Week %s to %s:", start, start.AddDays(6)),
		fmt.Sprintf("%d/7 active days.", active),
	}
	if len(events) > 0 {
		parts = append(parts, fmt.Sprintf("%d notable event(s) across the week.", len(events)))
	}
	if len(decs) > 0 {
		parts = append(parts, fmt.Sprintf("%d decision(s) recorded.", len(decs)))
	}
	if len(less) > 0 {
		parts = append(parts, fmt.Sprintf("%d lesson(s) captured.", len(less)))
	}
	parts = append(parts, fmt.Sprintf("Dominant state: %s.", state))

	return Fields{
		Summary:        strings.Join(parts, " "),
		KeyEvents:      events,
		Decisions:      decs,
		Lessons:        less,
		Tags:           sortedKeys(tags),
		EmotionalState: state,
	}
}

// DominantState joins the two most frequent labels with "+". Ties keep
// first-seen order.
func DominantState(labels []string) string {
	counts := map[string]int{}
	var order []string
	for _, l := range labels {
		if counts[l] == 0 {
			order = append(order, l)
		}
		counts[l]++
	}
	if len(order) == 0 {
		return "neutral"
	}
	slices.SortStableFunc(order, func(a, b string) int {
		return cmp.Compare(counts[b], counts[a])
	})
	return strings.Join(order[:min(2, len(order))], "+")
}

func projectName(raw string) string {
	if name := strings.TrimSpace(projectPrefixRe.ReplaceAllString(raw, "")); name != "" {
		return name
	}
	return raw
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func dedupe(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := []string{}
	for _, s := range list {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func capList(list []string, n int) []string {
	if list == nil {
		return []string{}
	}
	if len(list) > n {
		return list[:n]
	}
	return list
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
