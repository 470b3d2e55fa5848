package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/dios/internal/app"
	"github.com/roach88/dios/internal/domain"
)

// PageOptions holds paging flags for list commands.
type PageOptions struct {
	*RootOptions
	Type   string
	Limit  int
	Offset int
}

func (o *PageOptions) addFlags(cmd *cobra.Command, typeHelp string) {
	cmd.Flags().StringVar(&o.Type, "type", "", typeHelp)
	cmd.Flags().IntVar(&o.Limit, "limit", defaultPageSize, "maximum items to return")
	cmd.Flags().IntVar(&o.Offset, "offset", 0, "items to skip")
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PageOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect behavior events",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List behavior events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts.RootOptions, cmd, func(ctx context.Context, svc *app.Service) (*app.Page[domain.BehaviorEvent], error) {
				if err := checkPage(opts.Limit, opts.Offset); err != nil {
					return nil, err
				}
				var typ *domain.EventType
				if opts.Type != "" {
					t, err := domain.ParseEventType(opts.Type)
					if err != nil {
						return nil, fmt.Errorf("%w: %v", errInvalidArgument, err)
					}
					typ = &t
				}
				return svc.ListEvents(ctx, typ, opts.Limit, opts.Offset)
			}, writeEvents)
		},
	}
	opts.addFlags(list, "filter by event type (clarity_warning|reset_day_protocol|perfect_week)")
	cmd.AddCommand(list)

	return cmd
}

// NewSnapshotsCommand creates the snapshots command.
func NewSnapshotsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PageOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Inspect narrative snapshots",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List narrative snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts.RootOptions, cmd, func(ctx context.Context, svc *app.Service) (*app.Page[domain.NarrativeSnapshot], error) {
				if err := checkPage(opts.Limit, opts.Offset); err != nil {
					return nil, err
				}
				var typ *domain.SnapshotType
				if opts.Type != "" {
					t, err := domain.ParseSnapshotType(opts.Type)
					if err != nil {
						return nil, fmt.Errorf("%w: %v", errInvalidArgument, err)
					}
					typ = &t
				}
				return svc.ListSnapshots(ctx, typ, opts.Limit, opts.Offset)
			}, writeSnapshots)
		},
	}
	opts.addFlags(list, "filter by snapshot type (daily|weekly)")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show one snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(rootOpts, cmd, func(ctx context.Context, svc *app.Service) (*domain.NarrativeSnapshot, error) {
				id, err := parseID(args[0])
				if err != nil {
					return nil, err
				}
				return svc.GetSnapshot(ctx, id)
			}, writeSnapshot)
		},
	})

	return cmd
}

func writeEvents(w io.Writer, page *app.Page[domain.BehaviorEvent]) {
	fmt.Fprintf(w, "%s (%d shown of %d)\n", headerStyle.Render("Behavior events"), len(page.Items), page.Total)
	for _, ev := range page.Items {
		meta, _ := json.Marshal(ev.Metadata)
		fmt.Fprintf(w, "  #%d %s %s %s\n", ev.ID, ev.ReferenceDate, ev.Type, mutedStyle.Render(string(meta)))
	}
}

func writeSnapshots(w io.Writer, page *app.Page[domain.NarrativeSnapshot]) {
	fmt.Fprintf(w, "%s (%d shown of %d)\n", headerStyle.Render("Snapshots"), len(page.Items), page.Total)
	for _, s := range page.Items {
		fmt.Fprintf(w, "  #%d %s %-6s %s\n", s.ID, s.Date, s.Type, s.EmotionalState)
	}
}
