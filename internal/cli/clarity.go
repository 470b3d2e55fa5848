package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/dios/internal/app"
	"github.com/roach88/dios/internal/behavior"
	"github.com/roach88/dios/internal/clarity"
)

// NewClarityCommand creates the clarity command.
func NewClarityCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clarity",
		Short: "Evaluate day completeness and weekly clarity",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "day [date]",
		Short: "Show whether a day is complete",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(rootOpts, cmd, func(ctx context.Context, svc *app.Service) (clarity.DailyClarity, error) {
				day, err := optionalDate(args, rootOpts.Clock)
				if err != nil {
					return clarity.DailyClarity{}, err
				}
				return svc.EvaluateDay(ctx, day)
			}, writeDay)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "week [date]",
		Short: "Score the seven days ending at date and store the score",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(rootOpts, cmd, func(ctx context.Context, svc *app.Service) (clarity.WeeklyClarity, error) {
				ref, err := optionalDate(args, rootOpts.Clock)
				if err != nil {
					return clarity.WeeklyClarity{}, err
				}
				return svc.EvaluateWeek(ctx, ref)
			}, writeWeek)
		},
	})

	return cmd
}

// NewNorthStarCommand creates the north-star command.
func NewNorthStarCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "north-star [date]",
		Short: "Score the week ending at date and run the behavioral rules",
		Long: `Evaluate weekly clarity for the seven days ending at date, store the
score, then emit behavior events:

  clarity_warning     score below 0.4
  reset_day_protocol  last three days incomplete (also creates a task)
  perfect_week        all seven days complete

Each event is emitted at most once per reference date.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(rootOpts, cmd, func(ctx context.Context, svc *app.Service) (*app.NorthStarReport, error) {
				ref, err := optionalDate(args, rootOpts.Clock)
				if err != nil {
					return nil, err
				}
				return svc.NorthStar(ctx, ref)
			}, func(w io.Writer, r *app.NorthStarReport) {
				writeWeek(w, r.Clarity)
				writeReaction(w, r.Reaction)
			})
		},
	}
}

func writeDay(w io.Writer, dc clarity.DailyClarity) {
	icon := failStyle.Render(iconFail)
	if dc.IsComplete {
		icon = passStyle.Render(iconPass)
	}
	fmt.Fprintf(w, "%s %s  entries=%d outcome=%t snapshot=%t\n",
		icon, dc.Day, dc.EventCount, dc.HasOutcome, dc.HasMemorySnapshot)
}

func writeWeek(w io.Writer, wc clarity.WeeklyClarity) {
	score := wc.Score.StringFixed(4)
	switch {
	case wc.Score.LessThan(behavior.WarningThreshold):
		score = failStyle.Render(score)
	case wc.CompleteDays == wc.TotalDays:
		score = passStyle.Render(score)
	default:
		score = warnStyle.Render(score)
	}
	fmt.Fprintf(w, "%s %s: %s (%d/%d complete)\n",
		headerStyle.Render("Clarity"), wc.ReferenceDate, score, wc.CompleteDays, wc.TotalDays)
	for _, dc := range wc.Days {
		fmt.Fprint(w, "  ")
		writeDay(w, dc)
	}
}

func writeReaction(w io.Writer, r behavior.Reaction) {
	if len(r.EventsCreated) == 0 && len(r.EventsSkipped) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No behavior rules triggered."))
		return
	}
	for _, typ := range r.EventsCreated {
		fmt.Fprintf(w, "%s %s emitted\n", warnStyle.Render(iconWarn), typ)
	}
	for _, typ := range r.EventsSkipped {
		fmt.Fprintf(w, "%s %s already recorded\n", mutedStyle.Render(iconSkip), typ)
	}
	if r.TaskID != nil {
		fmt.Fprintf(w, "  task #%d %q created\n", *r.TaskID, behavior.ResetTaskTitle)
	}
}
