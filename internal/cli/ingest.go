package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dios/internal/app"
	"github.com/roach88/dios/internal/domain"
	"github.com/roach88/dios/internal/ingest"
)

// IngestOptions holds flags shared by ingest and batch.
type IngestOptions struct {
	*RootOptions
	Source string
	Day    string
}

func (o *IngestOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Source, "source", "", "source tag stored with each entry (default from config)")
	cmd.Flags().StringVar(&o.Day, "day", "", "day to file entries under (default today)")
}

// item builds an ingest item, resolving --day against the clock.
func (o *IngestOptions) item(raw string) (ingest.Item, error) {
	item := ingest.Item{Raw: raw}
	if o.Source != "" {
		item.Source = domain.Ptr(o.Source)
	}
	if o.Day != "" {
		day, err := resolveDate(o.Day, o.Clock)
		if err != nil {
			return item, err
		}
		item.Day = &day
	}
	return item, nil
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest <text>...",
		Short: "Route and store one log line",
		Long: `Route one free-text line through the active rules and store the entry
together with the record its target produces.

Examples:
  dios ingest "TODO: call the bank"
  dios ingest --day yesterday "gasté $40 en comida"
  dios ingest "METRIC: sleep=7.5 h" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.Join(args, " ")
			return execute(opts.RootOptions, cmd, func(ctx context.Context, svc *app.Service) (*ingest.Result, error) {
				item, err := opts.item(raw)
				if err != nil {
					return nil, err
				}
				return svc.Ingest(ctx, item)
			}, writeIngestResult)
		},
	}
	opts.addFlags(cmd)

	return cmd
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "Ingest many lines in one transaction",
		Long: `Ingest one entry per non-blank line of a file (or stdin). All entries
share a batch id. A failing line is reported and skipped; the others are
still stored.

Examples:
  dios batch today.log
  cat today.log | dios batch --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts.RootOptions, cmd, func(ctx context.Context, svc *app.Service) (*ingest.BatchResult, error) {
				lines, err := readLines(cmd, args)
				if err != nil {
					return nil, err
				}
				items := make([]ingest.Item, 0, len(lines))
				for _, line := range lines {
					item, err := opts.item(line)
					if err != nil {
						return nil, err
					}
					items = append(items, item)
				}
				return svc.IngestBatch(ctx, items)
			}, writeBatchResult)
		},
	}
	opts.addFlags(cmd)

	return cmd
}

func readLines(cmd *cobra.Command, args []string) ([]string, error) {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidArgument, err)
		}
		defer f.Close()
		r = f
	}

	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading batch: %w", err)
	}
	return lines, nil
}

func writeIngestResult(w io.Writer, res *ingest.Result) {
	e := res.Entry
	rule := mutedStyle.Render("fallback")
	if e.RuleMatched != nil {
		rule = *e.RuleMatched
	}
	fmt.Fprintf(w, "%s Entry #%d %s → %s (%s, rule %s)\n",
		passStyle.Render(iconPass), e.ID, e.Day, e.RoutedTo, e.EntryType, rule)
	if res.Record != nil {
		fmt.Fprintf(w, "  %s #%d\n", recordLabel(res.Record), res.Record.RecordID())
	}
}

func writeBatchResult(w io.Writer, res *ingest.BatchResult) {
	fmt.Fprintf(w, "%s Batch %s: %d/%d stored, %d failed\n",
		passStyle.Render(iconPass), res.BatchID, res.Succeeded, res.Total, res.Failed)
	for _, item := range res.Items {
		if item.OK {
			fmt.Fprintf(w, "  %s [%d] entry #%d → %s\n",
				passStyle.Render(iconPass), item.Index, item.Result.Entry.ID, item.Result.Entry.RoutedTo)
			continue
		}
		fmt.Fprintf(w, "  %s [%d] %s\n", failStyle.Render(iconFail), item.Index, item.Error)
	}
}

func recordLabel(r domain.Record) string {
	switch r.(type) {
	case *domain.Task:
		return "task"
	case *domain.Transaction:
		return "transaction"
	case *domain.Fact:
		return "fact"
	case *domain.Metric:
		return "metric"
	case *domain.Project:
		return "project"
	}
	return string(r.RecordTarget())
}
