// Package cmd provides the CLI commands for amanvoice.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	amanerrors "github.com/Aman-CERP/amanvoice/internal/errors"
	"github.com/Aman-CERP/amanvoice/internal/logging"
	"github.com/Aman-CERP/amanvoice/internal/ui"
	"github.com/Aman-CERP/amanvoice/pkg/version"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	dir     string
	debug   bool
	noColor bool
	plain   bool

	loggingCleanup func()
}

// NewRootCmd creates the root command for the amanvoice CLI.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "amanvoice",
		Short: "Hybrid search over transcribed voice notes",
		Long: `amanvoice indexes a directory of transcribed voice notes and answers
queries with hybrid search: semantic similarity over embeddings combined
with BM25 keyword ranking through Reciprocal Rank Fusion.

Run 'amanvoice index' in your notes directory, then 'amanvoice search'
or 'amanvoice serve' to expose the index to MCP clients.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("amanvoice version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&opts.dir, "dir", "C", ".", "Records directory")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging to ~/.amanvoice/logs/")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.PersistentFlags().BoolVar(&opts.plain, "plain", false, "Plain progress output (no TUI)")

	cmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		return opts.startLogging()
	}
	cmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		opts.stopLogging()
		return nil
	}

	cmd.AddCommand(newIndexCmd(opts))
	cmd.AddCommand(newReindexCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newStatsCmd(opts))
	cmd.AddCommand(newWatchCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newLogsCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging keeps CLI output clean unless --debug is set. serve replaces
// this with its own file logger.
func (o *globalOptions) startLogging() error {
	if !o.debug {
		logging.InstallQuiet()
		return nil
	}
	cleanup, err := logging.Install(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	o.loggingCleanup = cleanup
	slog.Info("debug_logging_enabled",
		slog.String("log_file", logging.DefaultLogPath()),
		slog.String("version", version.Version))
	return nil
}

func (o *globalOptions) stopLogging() {
	if o.loggingCleanup != nil {
		slog.Info("debug_logging_stopped")
		o.loggingCleanup()
		o.loggingCleanup = nil
	}
}

func (o *globalOptions) noColorEnabled() bool {
	return o.noColor || ui.DetectNoColor()
}

// Execute runs the root command and prints any error.
func Execute() error {
	cmd := NewRootCmd()
	err := cmd.Execute()
	if err != nil {
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), amanerrors.FormatForCLI(err))
	}
	return err
}
