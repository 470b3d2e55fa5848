package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/dios/internal/app"
	"github.com/roach88/dios/internal/clock"
	"github.com/roach88/dios/internal/config"
	"github.com/roach88/dios/internal/ingest"
	"github.com/roach88/dios/internal/store"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string

	// Clock overrides the system clock (for testing).
	Clock clock.Clock
	// IDs overrides the batch id generator (for testing).
	IDs ingest.IDGenerator

	config *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the dios CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dios",
		Short: "dios - deterministic log routing and narrative memory",
		Long: `Route free-text log lines into typed records, compile daily and weekly
narratives, score weekly clarity and react to it. Every step is rule based
and reproducible.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "", "output format (json|text), overrides config")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "dios.toml", "path to TOML config file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database, overrides config")

	// Add subcommands
	cmd.AddCommand(NewIngestCommand(opts))
	cmd.AddCommand(NewBatchCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewClarityCommand(opts))
	cmd.AddCommand(NewNorthStarCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))
	cmd.AddCommand(NewSnapshotsCommand(opts))
	cmd.AddCommand(NewRulesCommand(opts))
	cmd.AddCommand(NewTaskCommand(opts))
	cmd.AddCommand(NewStateCommand(opts))

	return cmd
}

// setup loads the config file, applies flag overrides and configures
// logging.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Database != "" {
		cfg.Database.Path = o.Database
	}
	if o.Format != "" {
		cfg.Output.Format = o.Format
	}
	if !isValidFormat(cfg.Output.Format) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("invalid format %q: must be one of %v", cfg.Output.Format, ValidFormats))
	}
	o.Format = cfg.Output.Format
	o.config = cfg

	if o.Clock == nil {
		o.Clock = clock.System{}
	}

	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if o.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
	return nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// openService opens the configured database and seeds the configured rule
// file, if any. The returned func closes the store.
func (o *RootOptions) openService(ctx context.Context) (*app.Service, func(), error) {
	st, err := store.Open(o.config.Database.Path, store.WithClock(o.Clock))
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	closeStore := func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}

	appOpts := []app.Option{
		app.WithBatchMaxItems(o.config.Ingest.BatchMaxItems),
		app.WithDefaultSource(o.config.Ingest.DefaultSource),
	}
	if o.IDs != nil {
		appOpts = append(appOpts, app.WithIDGenerator(o.IDs))
	}
	svc := app.New(st, o.Clock, appOpts...)

	if path := o.config.Rules.File; path != "" {
		if _, err := svc.ImportRules(ctx, path); err != nil {
			closeStore()
			return nil, nil, WrapExitError(ExitCommandError, "failed to load rules file", err)
		}
	}
	return svc, closeStore, nil
}

// execute runs fn against a fresh service and renders its result. Domain
// errors are reported through the formatter with a response code.
func execute[T any](opts *RootOptions, cmd *cobra.Command, fn func(context.Context, *app.Service) (T, error), text func(io.Writer, T)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	svc, closeStore, err := opts.openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	f := opts.formatter(cmd)
	result, err := fn(ctx, svc)
	if err != nil {
		return f.Fail(err)
	}
	if f.Format == "json" {
		return f.Success(result)
	}
	text(f.Writer, result)
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
