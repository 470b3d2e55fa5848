package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/dios/internal/app"
	"github.com/roach88/dios/internal/state"
)

// NewStateCommand creates the state command.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect and close days",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "today [date]",
		Short: "Show everything recorded on a day",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(rootOpts, cmd, func(ctx context.Context, svc *app.Service) (*state.Day, error) {
				day, err := optionalDate(args, rootOpts.Clock)
				if err != nil {
					return nil, err
				}
				return svc.StateToday(ctx, day)
			}, writeDayState)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "active",
		Short: "Show open tasks, active projects and unclosed days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(rootOpts, cmd, func(ctx context.Context, svc *app.Service) (*state.Active, error) {
				return svc.StateActive(ctx)
			}, writeActive)
		},
	})

	var summary string
	closeCmd := &cobra.Command{
		Use:   "close [date]",
		Short: "Close a day and compile its narrative",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(rootOpts, cmd, func(ctx context.Context, svc *app.Service) (*state.Closed, error) {
				day, err := optionalDate(args, rootOpts.Clock)
				if err != nil {
					return nil, err
				}
				return svc.CloseDay(ctx, day, &summary)
			}, writeClosed)
		},
	}
	closeCmd.Flags().StringVar(&summary, "summary", "", "free-text summary stored with the day")
	cmd.AddCommand(closeCmd)

	return cmd
}

func writeDayState(w io.Writer, d *state.Day) {
	status := passStyle.Render("open")
	if d.IsClosed {
		status = mutedStyle.Render("closed")
	}
	fmt.Fprintf(w, "%s (%s)\n", headerStyle.Render("Day "+d.Day.String()), status)
	fmt.Fprintf(w, "  entries=%d tasks=%d transactions=%d facts=%d metrics=%d\n",
		d.Totals.Entries, d.Totals.Tasks, d.Totals.Transactions, d.Totals.Facts, d.Totals.Metrics)
	for _, e := range d.Entries {
		fmt.Fprintf(w, "  #%d %-12s %s\n", e.ID, e.RoutedTo, e.Raw)
	}
}

func writeActive(w io.Writer, a *state.Active) {
	fmt.Fprintln(w, headerStyle.Render("Open tasks"))
	for _, t := range a.OpenTasks {
		fmt.Fprintf(w, "  #%d %s %-11s %s\n", t.ID, t.Day, t.Status, t.Title)
	}
	fmt.Fprintln(w, headerStyle.Render("Active projects"))
	for _, p := range a.ActiveProjects {
		fmt.Fprintf(w, "  #%d %s\n", p.ID, p.Name)
	}
	fmt.Fprintln(w, headerStyle.Render("Open days"))
	for _, d := range a.OpenDays {
		fmt.Fprintf(w, "  %s %d entries\n", d.Day, d.Entries)
	}
}

func writeClosed(w io.Writer, c *state.Closed) {
	fmt.Fprintf(w, "%s Day %s closed: entries=%d tasks=%d transactions=%d facts=%d\n",
		passStyle.Render(iconPass), c.Log.Day, c.Log.TotalEntries, c.Log.TotalTasks,
		c.Log.TotalTransactions, c.Log.TotalFacts)
	writeSnapshot(w, c.Snapshot)
}
