package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/dios/internal/app"
	"github.com/roach88/dios/internal/domain"
)

// NewTaskCommand creates the task command.
func NewTaskCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Change task status",
	}

	setStatus := func(cmd *cobra.Command, rawID string, status func() (domain.TaskStatus, error)) error {
		return execute(rootOpts, cmd, func(ctx context.Context, svc *app.Service) (*domain.Task, error) {
			id, err := parseID(rawID)
			if err != nil {
				return nil, err
			}
			st, err := status()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", errInvalidArgument, err)
			}
			return svc.SetTaskStatus(ctx, id, st)
		}, writeTask)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setStatus(cmd, args[0], func() (domain.TaskStatus, error) { return domain.TaskDone, nil })
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status <id> <status>",
		Short: "Set a task's status (pending|in_progress|done|cancelled)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setStatus(cmd, args[0], func() (domain.TaskStatus, error) { return domain.ParseTaskStatus(args[1]) })
		},
	})

	return cmd
}

func writeTask(w io.Writer, t *domain.Task) {
	fmt.Fprintf(w, "%s Task #%d %q is %s\n", passStyle.Render(iconPass), t.ID, t.Title, t.Status)
}
