package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/dios/internal/app"
	"github.com/roach88/dios/internal/domain"
)

// NewRulesCommand creates the rules command.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage routing rules",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List routing rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(rootOpts, cmd, func(ctx context.Context, svc *app.Service) ([]domain.RoutingRule, error) {
				return svc.ListRules(ctx)
			}, writeRules)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Upsert rules from a YAML or CUE file",
		Long: `Upsert rules by name from a .yaml/.yml or .cue file. Rules not named in
the file are left untouched.

YAML:
  rules:
    - name: groceries
      pattern: '^(super|groceries)'
      target: transactions
      entry_type: transaction
      priority: 120

CUE:
  rules: groceries: {
      pattern:    "^(super|groceries)"
      target:     "transactions"
      entry_type: "transaction"
      priority:   120
  }`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(rootOpts, cmd, func(ctx context.Context, svc *app.Service) ([]domain.RoutingRule, error) {
				rules, err := svc.ImportRules(ctx, args[0])
				if err != nil {
					return nil, fmt.Errorf("%w: %w", errInvalidArgument, err)
				}
				return rules, nil
			}, writeRules)
		},
	})

	return cmd
}

func writeRules(w io.Writer, rules []domain.RoutingRule) {
	fmt.Fprintf(w, "%s (%d)\n", headerStyle.Render("Routing rules"), len(rules))
	for _, r := range rules {
		name := r.Name
		if !r.Active {
			name = mutedStyle.Render(name + " (inactive)")
		}
		fmt.Fprintf(w, "  %4d  %-20s %-14s %-12s %s\n", r.Priority, name, r.Target, r.EntryType, r.Pattern)
	}
}
