package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/sunshine/internal/config"
	"github.com/roach88/sunshine/internal/logger"
	"github.com/roach88/sunshine/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	EnvFile string

	// Config is resolved from the environment and flags before any command runs.
	Config config.Config

	// Logger is built from Config. Commands fall back to a stderr logger when unset.
	Logger *slog.Logger
}

// NewRootCommand creates the root command for the sunshine CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sunshine",
		Short: "Normalize salary disclosure records and benchmark index latency",
		Long: `sunshine loads flat salary disclosure records into a normalized SQLite
schema (employers, individuals, salaries) and measures how secondary
indexes change the latency of join and filter queries.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "load SUNSHINE_* settings from this file")

	// Add subcommands
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewBenchCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))

	return cmd
}

// resolve loads the configuration and applies flags that were set explicitly.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(o.EnvFile)
	if err != nil {
		return NewExitError(ExitCommandError, err.Error())
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Format = o.Format
	}
	if flags.Changed("verbose") {
		cfg.Verbose = o.Verbose
	}
	if err := cfg.Validate(); err != nil {
		return NewExitError(ExitCommandError, err.Error())
	}

	o.Config = cfg
	o.Format = cfg.Format
	o.Verbose = cfg.Verbose
	o.Logger = logger.New(cmd.ErrOrStderr(), cfg.Verbose)
	return nil
}

// logger returns the resolved logger, or a new one writing to w.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logger.New(w, o.Verbose)
}

// storeOptions returns store options for the resolved configuration.
// Unset fields fall back to the store defaults.
func (o *RootOptions) storeOptions(log *slog.Logger) store.Options {
	return store.OptionsFromConfig(o.Config, log)
}

// formatter returns an OutputFormatter writing to the command's streams.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}
