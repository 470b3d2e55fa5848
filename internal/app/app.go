// Package app wires the store, clock and domain services together. The CLI
// and the scenario harness both drive dios through a Service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/dios/internal/behavior"
	"github.com/roach88/dios/internal/clarity"
	"github.com/roach88/dios/internal/clock"
	"github.com/roach88/dios/internal/domain"
	"github.com/roach88/dios/internal/ingest"
	"github.com/roach88/dios/internal/narrative"
	"github.com/roach88/dios/internal/ruleset"
	"github.com/roach88/dios/internal/state"
	"github.com/roach88/dios/internal/store"
)

// DefaultBatchMaxItems bounds IngestBatch unless overridden.
const DefaultBatchMaxItems = 100

var (
	ErrEmptyBatch    = errors.New("batch has no items")
	ErrBatchTooLarge = errors.New("batch exceeds the item limit")
	ErrEmptyRaw      = errors.New("raw text is required")
)

type Service struct {
	store *store.Store
	clock clock.Clock

	ingest    *ingest.Coordinator
	narrative *narrative.Compiler
	clarity   *clarity.Evaluator
	behavior  *behavior.Reactor
	state     *state.Service

	batchMax int
}

type options struct {
	batchMax      int
	defaultSource string
	ids           ingest.IDGenerator
}

type Option func(*options)

func WithBatchMaxItems(n int) Option {
	return func(o *options) { o.batchMax = n }
}

func WithDefaultSource(source string) Option {
	return func(o *options) { o.defaultSource = source }
}

func WithIDGenerator(g ingest.IDGenerator) Option {
	return func(o *options) { o.ids = g }
}

// New builds a Service over an open store. The store's lifetime stays with
// the caller.
func New(st *store.Store, clk clock.Clock, opts ...Option) *Service {
	o := options{batchMax: DefaultBatchMaxItems}
	for _, opt := range opts {
		opt(&o)
	}

	var ingestOpts []ingest.Option
	if o.ids != nil {
		ingestOpts = append(ingestOpts, ingest.WithIDGenerator(o.ids))
	}
	if o.defaultSource != "" {
		ingestOpts = append(ingestOpts, ingest.WithDefaultSource(o.defaultSource))
	}

	return &Service{
		store:     st,
		clock:     clk,
		ingest:    ingest.New(st, clk, ingestOpts...),
		narrative: narrative.New(st),
		clarity:   clarity.New(st),
		behavior:  behavior.New(st),
		state:     state.New(st),
		batchMax:  o.batchMax,
	}
}

func (s *Service) Store() *store.Store { return s.store }

// Today is the current date according to the injected clock.
func (s *Service) Today() domain.Date { return clock.Today(s.clock) }

// Ingest rejects blank text before touching the store.
func (s *Service) Ingest(ctx context.Context, item ingest.Item) (*ingest.Result, error) {
	if strings.TrimSpace(item.Raw) == "" {
		return nil, ErrEmptyRaw
	}
	return s.ingest.IngestOne(ctx, item)
}

// IngestBatch rejects empty and oversized batches, and batches holding a
// blank item, before touching the store.
func (s *Service) IngestBatch(ctx context.Context, items []ingest.Item) (*ingest.BatchResult, error) {
	if len(items) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(items) > s.batchMax {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(items), s.batchMax)
	}
	for i, item := range items {
		if strings.TrimSpace(item.Raw) == "" {
			return nil, fmt.Errorf("%w: items[%d]", ErrEmptyRaw, i)
		}
	}
	return s.ingest.IngestBatch(ctx, items)
}

func (s *Service) CompileDay(ctx context.Context, day domain.Date) (*domain.NarrativeSnapshot, error) {
	return s.narrative.CompileDay(ctx, day)
}

func (s *Service) CompileWeek(ctx context.Context, weekStart domain.Date) (*domain.NarrativeSnapshot, error) {
	return s.narrative.CompileWeek(ctx, weekStart)
}

func (s *Service) EvaluateDay(ctx context.Context, day domain.Date) (clarity.DailyClarity, error) {
	return s.clarity.EvaluateDay(ctx, day)
}

func (s *Service) EvaluateWeek(ctx context.Context, ref domain.Date) (clarity.WeeklyClarity, error) {
	return s.clarity.EvaluateWeek(ctx, ref)
}

// NorthStarReport is a weekly evaluation and the reaction it triggered.
type NorthStarReport struct {
	Clarity  clarity.WeeklyClarity `json:"clarity"`
	Reaction behavior.Reaction     `json:"reaction"`
}

// NorthStar evaluates the week ending at ref, persisting its score, then
// runs the behavioral rules against it.
func (s *Service) NorthStar(ctx context.Context, ref domain.Date) (*NorthStarReport, error) {
	wc, err := s.clarity.EvaluateWeek(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("north star: %w", err)
	}
	reaction, err := s.behavior.React(ctx, wc)
	if err != nil {
		return nil, fmt.Errorf("north star: %w", err)
	}
	return &NorthStarReport{Clarity: wc, Reaction: reaction}, nil
}

// Page is one page of a newest-first listing.
type Page[T any] struct {
	Total int `json:"total"`
	Items []T `json:"items"`
}

func (s *Service) ListSnapshots(ctx context.Context, typ *domain.SnapshotType, limit, offset int) (*Page[domain.NarrativeSnapshot], error) {
	page := &Page[domain.NarrativeSnapshot]{}
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		page.Total, page.Items, err = tx.ListNarratives(ctx, typ, limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (s *Service) GetSnapshot(ctx context.Context, id int64) (*domain.NarrativeSnapshot, error) {
	var snap *domain.NarrativeSnapshot
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		snap, err = tx.GetNarrativeByID(ctx, id)
		return err
	})
	return snap, err
}

func (s *Service) ListEvents(ctx context.Context, typ *domain.EventType, limit, offset int) (*Page[domain.BehaviorEvent], error) {
	page := &Page[domain.BehaviorEvent]{}
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		page.Total, page.Items, err = tx.ListEvents(ctx, typ, limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (s *Service) GetClaritySnapshot(ctx context.Context, ref domain.Date) (*domain.ClaritySnapshot, error) {
	var snap *domain.ClaritySnapshot
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		snap, err = tx.GetClaritySnapshot(ctx, domain.PeriodWeekly, ref)
		return err
	})
	return snap, err
}

func (s *Service) ListRules(ctx context.Context) ([]domain.RoutingRule, error) {
	var rules []domain.RoutingRule
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		rules, err = tx.ListRules(ctx)
		return err
	})
	return rules, err
}

// ImportRules loads a YAML or CUE rule file and upserts every rule by name.
func (s *Service) ImportRules(ctx context.Context, path string) ([]domain.RoutingRule, error) {
	rules, err := ruleset.Load(path)
	if err != nil {
		return nil, err
	}
	err = s.store.WithTx(ctx, func(tx *store.Tx) error {
		for i := range rules {
			id, err := tx.UpsertRule(ctx, rules[i])
			if err != nil {
				return err
			}
			rules[i].ID = id
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import rules: %w", err)
	}
	slog.Info("rules imported", "path", path, "count", len(rules))
	return rules, nil
}

// SetTaskStatus fails with store.ErrNotFound for an unknown id.
func (s *Service) SetTaskStatus(ctx context.Context, id int64, status domain.TaskStatus) (*domain.Task, error) {
	var task *domain.Task
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		task, err = tx.SetTaskStatus(ctx, id, status)
		return err
	})
	return task, err
}

func (s *Service) StateToday(ctx context.Context, day domain.Date) (*state.Day, error) {
	return s.state.Today(ctx, day)
}

func (s *Service) StateActive(ctx context.Context) (*state.Active, error) {
	return s.state.Active(ctx)
}

func (s *Service) CloseDay(ctx context.Context, day domain.Date, summary *string) (*state.Closed, error) {
	return s.state.CloseDay(ctx, day, summary)
}
