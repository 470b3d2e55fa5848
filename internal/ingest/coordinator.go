// Package ingest turns raw log lines into entries and their derived records.
//
// Each line is routed, stored as an Entry, and projected into at most one
// domain record inside a single transaction. Batches share one transaction
// with a savepoint per item, so one bad line never takes the others down.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/dios/internal/clock"
	"github.com/roach88/dios/internal/domain"
	"github.com/roach88/dios/internal/router"
	"github.com/roach88/dios/internal/store"
)


// Item is one line to ingest. Nil Source and Day take the coordinator's
// defaults.
type Item struct {
	Raw    string       `json:"raw" yaml:"raw"`
	Source *string      `json:"source,omitempty" yaml:"source,omitempty"`
	Day    *domain.Date `json:"day,omitempty" yaml:"day,omitempty"`
}

// Result is a stored entry and the record derived from it, if any.
type Result struct {
	Entry  domain.Entry  `json:"entry"`
	Record domain.Record `json:"record,omitempty"`
}

// ItemResult reports one batch item, in input order.
type ItemResult struct {
	Index  int     `json:"index"`
	OK     bool    `json:"ok"`
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

type BatchResult struct {
	BatchID   string       `json:"batch_id"`
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Items     []ItemResult `json:"items"`
}

// Coordinator ingests items against the rules currently in the store.
type Coordinator struct {
	store         *store.Store
	clock         clock.Clock
	router        *router.Router
	ids           IDGenerator
	defaultSource *string
}

type Option func(*Coordinator)

// WithIDGenerator replaces the UUIDv7 batch id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Coordinator) { c.ids = g }
}

// WithDefaultSource sets the source recorded when an item has none.
func WithDefaultSource(source string) Option {
	return func(c *Coordinator) {
		if source != "" {
			c.defaultSource = &source
		}
	}
}

func New(st *store.Store, clk clock.Clock, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:  st,
		clock:  clk,
		router: router.New(),
		ids:    UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IngestOne routes and stores a single item in its own transaction.
func (c *Coordinator) IngestOne(ctx context.Context, item Item) (*Result, error) {
	var res *Result
	err := c.store.WithTx(ctx, func(tx *store.Tx) error {
		rules, err := tx.ListRules(ctx)
		if err != nil {
			return err
		}
		res, err = c.ingest(ctx, tx, rules, item, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// IngestBatch stores items in one transaction, isolating each in a
// savepoint. Failed items are reported, not returned as an error; the
// returned error is reserved for failures of the batch as a whole.
func (c *Coordinator) IngestBatch(ctx context.Context, items []Item) (*BatchResult, error) {
	batchID := c.ids.Generate()
	out := &BatchResult{
		BatchID: batchID,
		Total:   len(items),
		Items:   make([]ItemResult, 0, len(items)),
	}

	err := c.store.WithTx(ctx, func(tx *store.Tx) error {
		rules, err := tx.ListRules(ctx)
		if err != nil {
			return err
		}

		for i, item := range items {
			var res *Result
			err := tx.Savepoint(ctx, func(tx *store.Tx) error {
				var err error
				res, err = c.ingest(ctx, tx, rules, item, &batchID)
				return err
			})
			if err != nil {
				slog.Debug("batch item failed", "batch_id", batchID, "index", i, "error", err)
				out.Items = append(out.Items, ItemResult{Index: i, Error: err.Error()})
				out.Failed++
				continue
			}
			out.Items = append(out.Items, ItemResult{Index: i, OK: true, Result: res})
			out.Succeeded++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ingest batch: %w", err)
	}

	slog.Info("batch ingested",
		"batch_id", batchID,
		"total", out.Total,
		"succeeded", out.Succeeded,
		"failed", out.Failed,
	)
	return out, nil
}

func (c *Coordinator) ingest(ctx context.Context, tx *store.Tx, rules []domain.RoutingRule, item Item, batchID *string) (*Result, error) {
	raw := norm.NFC.String(item.Raw)

	day := clock.Today(c.clock)
	if item.Day != nil && !item.Day.IsZero() {
		day = *item.Day
	}
	source := item.Source
	if source == nil {
		source = c.defaultSource
	}

	route := c.router.Route(raw, rules)
	entry, err := tx.InsertEntry(ctx, domain.Entry{
		Raw:         raw,
		EntryType:   route.EntryType,
		Source:      source,
		Day:         day,
		RoutedTo:    route.Target,
		RuleMatched: route.RuleName,
		BatchID:     batchID,
	})
	if err != nil {
		return nil, err
	}

	record, err := c.project(ctx, tx, entry)
	if err != nil {
		return nil, err
	}

	slog.Debug("entry ingested",
		"entry_id", entry.ID,
		"day", day.String(),
		"routed_to", string(entry.RoutedTo),
		"rule", ptrString(entry.RuleMatched),
	)
	return &Result{Entry: entry, Record: record}, nil
}

// project builds and stores the record for the entry's target. Targets
// without a record type yield nil.
func (c *Coordinator) project(ctx context.Context, tx *store.Tx, e domain.Entry) (domain.Record, error) {
	entryID := e.ID

	switch e.RoutedTo {
	case domain.TargetTasks:
		return tx.InsertTask(ctx, domain.Task{
			EntryID: &entryID,
			Title:   taskTitle(e.Raw),
			Status:  domain.TaskPending,
			Day:     e.Day,
		})

	case domain.TargetTransactions:
		desc := e.Raw
		return tx.InsertTransaction(ctx, domain.Transaction{
			EntryID:     &entryID,
			Amount:      parseAmount(e.Raw),
			Currency:    "USD",
			Kind:        transactionKind(e.Raw),
			Description: &desc,
			Day:         e.Day,
		})

	case domain.TargetFacts:
		category := string(e.EntryType)
		return tx.InsertFact(ctx, domain.Fact{
			EntryID:  &entryID,
			Content:  e.Raw,
			Category: &category,
			Day:      e.Day,
		})

	case domain.TargetMetrics:
		m := parseMetric(e.Raw)
		return tx.InsertMetric(ctx, domain.Metric{
			EntryID: &entryID,
			Name:    m.name,
			Value:   m.value,
			Unit:    m.unit,
			Day:     e.Day,
		})

	case domain.TargetProjects:
		start := e.Day
		return tx.InsertProject(ctx, domain.Project{
			EntryID:   &entryID,
			Name:      projectName(e.Raw),
			Status:    domain.ProjectActive,
			StartDate: &start,
		})
	}
	return nil, nil
}

func ptrString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
