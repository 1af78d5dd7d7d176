package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanvoice/internal/index"
	"github.com/Aman-CERP/amanvoice/internal/output"
	"github.com/Aman-CERP/amanvoice/internal/record"
	"github.com/Aman-CERP/amanvoice/internal/watcher"
)

func newWatchCmd(opts *globalOptions) *cobra.Command {
	var polling bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the index current while notes change",
		Long: `Sync once, then watch the records directory and re-index notes as
they are added, edited or removed. Stops on Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, opts, polling)
		},
	}

	cmd.Flags().BoolVar(&polling, "poll", false, "Poll for changes instead of using filesystem events")
	return cmd
}

func runWatch(cmd *cobra.Command, opts *globalOptions, polling bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, opts.dir, appOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	lock := index.NewDataDirLock(a.cfg.Paths.DataDir)
	if err := lock.TryLock(); err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	out := output.New(cmd.OutOrStdout(), opts.noColorEnabled())
	res, err := a.orch.SyncIndexes(ctx)
	if err != nil {
		return err
	}
	out.Successf("Synced: %d indexed, %d unchanged, %d deleted", res.Indexed, res.Unchanged, res.Deleted)
	if res.Failed > 0 {
		out.Warningf("%d notes failed to index; see 'amanvoice logs'", res.Failed)
	}

	w, err := startWatcher(ctx, a, polling)
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	out.Statusf(">", "Watching %s (%s)", a.cfg.Paths.RecordsDir, w.Mode())
	out.Hint("Press Ctrl+C to stop")

	go logWatchErrors(ctx, w)

	err = index.NewLiveUpdater(a.orch, a.records).Run(ctx, w.Events())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// startWatcher watches the records directory for record files in the
// background. A watcher that fails to start closes its event channel.
func startWatcher(ctx context.Context, a *app, polling bool) (*watcher.Watcher, error) {
	w, err := watcher.New(watcher.Options{
		DebounceWindow: a.cfg.WatchDebounce(),
		PollInterval:   a.cfg.WatchPollInterval(),
		Filter: func(relPath string) bool {
			return record.IsRecordFile(filepath.Base(relPath))
		},
		ForcePolling: polling,
	})
	if err != nil {
		return nil, err
	}

	root := a.cfg.Paths.RecordsDir
	go func() {
		if err := w.Start(ctx, root); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("watcher_stopped", slog.String("error", err.Error()))
			_ = w.Stop()
		}
	}()
	return w, nil
}

func logWatchErrors(ctx context.Context, w *watcher.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			slog.Warn("watcher_error", slog.String("error", err.Error()))
		}
	}
}
