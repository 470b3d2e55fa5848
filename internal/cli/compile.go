package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/dios/internal/app"
	"github.com/roach88/dios/internal/clock"
	"github.com/roach88/dios/internal/domain"
)

// NewCompileCommand creates the compile command and its day/week
// subcommands.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile narrative snapshots",
		Long: `Compile the narrative snapshot for a day or a week. Compiling again
replaces the snapshot in place.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "day [date]",
		Short: "Compile the daily snapshot (default today)",
		Example: `  dios compile day
  dios compile day 2026-03-01
  dios compile day yesterday`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(rootOpts, cmd, func(ctx context.Context, svc *app.Service) (*domain.NarrativeSnapshot, error) {
				day, err := optionalDate(args, rootOpts.Clock)
				if err != nil {
					return nil, err
				}
				return svc.CompileDay(ctx, day)
			}, writeSnapshot)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "week [start]",
		Short: "Compile the weekly snapshot for seven days from start (default six days ago)",
		Example: `  dios compile week
  dios compile week 2026-03-02`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(rootOpts, cmd, func(ctx context.Context, svc *app.Service) (*domain.NarrativeSnapshot, error) {
				start := clock.Today(rootOpts.Clock).AddDays(-6)
				if len(args) == 1 {
					var err error
					if start, err = resolveDate(args[0], rootOpts.Clock); err != nil {
						return nil, err
					}
				}
				return svc.CompileWeek(ctx, start)
			}, writeSnapshot)
		},
	})

	return cmd
}

func writeSnapshot(w io.Writer, s *domain.NarrativeSnapshot) {
	fmt.Fprintf(w, "%s #%d\n", headerStyle.Render(fmt.Sprintf("%s snapshot %s", s.Type, s.Date)), s.ID)
	fmt.Fprintln(w, s.Summary)
	fmt.Fprintf(w, "State: %s\n", s.EmotionalState)
	if len(s.Tags) > 0 {
		fmt.Fprintf(w, "Tags: %s\n", mutedStyle.Render(fmt.Sprint(s.Tags)))
	}
	writeList(w, "Key events", s.KeyEvents)
	writeList(w, "Decisions", s.Decisions)
	writeList(w, "Lessons", s.Lessons)
}

func writeList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}
