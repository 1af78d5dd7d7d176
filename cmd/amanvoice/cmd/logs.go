package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanvoice/internal/logging"
)

type logsOptions struct {
	lines   int
	follow  bool
	level   string
	pattern string
	file    string
}

func newLogsCmd(opts *globalOptions) *cobra.Command {
	var lopts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View amanvoice logs",
		Long: `Print recent entries from the amanvoice log file.

Examples:
  amanvoice logs
  amanvoice logs -n 100 --level warn
  amanvoice logs -f --grep search`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, opts, lopts)
		},
	}

	cmd.Flags().IntVarP(&lopts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&lopts.follow, "follow", "f", false, "Keep printing new entries")
	cmd.Flags().StringVar(&lopts.level, "level", "", "Minimum level: debug, info, warn, error")
	cmd.Flags().StringVar(&lopts.pattern, "grep", "", "Only entries matching this regular expression")
	cmd.Flags().StringVar(&lopts.file, "file", "", "Log file (default ~/.amanvoice/logs/amanvoice.log)")
	return cmd
}

func runLogs(cmd *cobra.Command, opts *globalOptions, lopts logsOptions) error {
	path, err := logging.FindLogFile(lopts.file)
	if err != nil {
		return err
	}

	vcfg := logging.ViewerConfig{Level: lopts.level, NoColor: opts.noColorEnabled()}
	if lopts.pattern != "" {
		vcfg.Pattern, err = regexp.Compile(lopts.pattern)
		if err != nil {
			return fmt.Errorf("invalid --grep pattern: %w", err)
		}
	}

	viewer := logging.NewViewer(vcfg, cmd.OutOrStdout())
	entries, err := viewer.Tail(path, lopts.lines)
	if err != nil {
		return err
	}
	viewer.Print(entries)

	if !lopts.follow {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ch := make(chan logging.Entry, 64)
	done := make(chan error, 1)
	go func() {
		done <- viewer.Follow(ctx, path, ch)
		close(ch)
	}()
	for e := range ch {
		viewer.Print([]logging.Entry{e})
	}
	return <-done
}
