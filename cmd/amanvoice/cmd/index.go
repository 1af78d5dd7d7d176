package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanvoice/internal/index"
	"github.com/Aman-CERP/amanvoice/internal/ui"
)

func newIndexCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Bring the index up to date with the notes on disk",
		Long: `Detect new, modified and deleted voice notes and update the vector
store and keyword index. Unchanged notes are not re-embedded.

Examples:
  amanvoice index
  amanvoice index --dir ~/voice-notes --plain`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd, opts, false)
		},
	}
}

func newReindexCmd(opts *globalOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Clear the vector store and re-embed every note",
		Long: `Discard every stored embedding and index all notes from scratch.

Use this after changing the embedding model or chunking settings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				return fmt.Errorf("reindex discards every stored embedding; pass --force to confirm")
			}
			return runIndex(cmd, opts, true)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Confirm the full rebuild")
	return cmd
}

func runIndex(cmd *cobra.Command, opts *globalOptions, force bool) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, opts.dir, appOptions{allowDimensionChange: force})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	lock := index.NewDataDirLock(a.cfg.Paths.DataDir)
	if err := lock.TryLock(); err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(opts.plain),
		ui.WithNoColor(opts.noColor),
		ui.WithRecordsDir(a.cfg.Paths.RecordsDir),
	))
	if err := renderer.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = renderer.Stop() }()

	unsubscribe := a.orch.Subscribe(ui.Observe(renderer))
	defer unsubscribe()

	slog.Info("index_started",
		slog.String("records_dir", a.cfg.Paths.RecordsDir),
		slog.Bool("force", force))

	var res *index.SyncResult
	if force {
		res, err = a.orch.ForceFullReindex(ctx)
	} else {
		res, err = a.orch.SyncIndexes(ctx)
	}

	ui.ReportFailures(renderer, res)
	if err != nil {
		return err
	}
	renderer.Complete(ui.CompletionFromSync(res, a.embedderInfo()))
	return nil
}
