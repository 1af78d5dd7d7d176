package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanvoice/internal/config"
	amanerrors "github.com/Aman-CERP/amanvoice/internal/errors"
	"github.com/Aman-CERP/amanvoice/internal/index"
	"github.com/Aman-CERP/amanvoice/internal/logging"
	"github.com/Aman-CERP/amanvoice/internal/mcp"
	"github.com/Aman-CERP/amanvoice/pkg/version"
)

type serveOptions struct {
	transport string
	noWatch   bool
}

func newServeCmd(opts *globalOptions) *cobra.Command {
	var sopts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol server over stdio.

The server syncs the index in the background, watches the records
directory for changes, and exposes the search, index_status and
sync_index tools plus record:// resources.

stdout carries only JSON-RPC; logs go to ~/.amanvoice/logs/amanvoice.log.`,
		Args: cobra.NoArgs,
		// serve owns logging: nothing may reach stdout or stderr.
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts, sopts)
		},
	}

	cmd.Flags().StringVar(&sopts.transport, "transport", "", "Transport protocol (stdio)")
	cmd.Flags().BoolVar(&sopts.noWatch, "no-watch", false, "Do not watch the records directory")
	return cmd
}

func runServe(cmd *cobra.Command, opts *globalOptions, sopts serveOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(opts.dir)
	if err != nil {
		return err
	}

	transport := sopts.transport
	if transport == "" {
		transport = cfg.Server.Transport
	}

	if transport != "stdio" {
		return amanerrors.ConfigError(fmt.Sprintf("unsupported transport: %s (supported: stdio)", transport), nil)
	}

	level := cfg.Server.LogLevel
	if opts.debug {
		level = "debug"
	}
	cleanup, err := logging.Install(logging.ServeConfig(level))
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer cleanup()

	slog.Info("serve_starting",
		slog.String("version", version.Version),
		slog.String("records_dir", cfg.Paths.RecordsDir),
		slog.String("transport", transport))

	a, err := openAppWithConfig(ctx, cfg, appOptions{})
	if err != nil {
		slog.Error("serve_open_failed", slog.String("error", err.Error()))
		return err
	}
	defer func() { _ = a.Close() }()

	lock := index.NewDataDirLock(cfg.Paths.DataDir)
	if err := lock.TryLock(); err != nil {
		slog.Error("serve_lock_failed", slog.String("error", err.Error()))
		return err
	}
	defer func() { _ = lock.Unlock() }()

	server, err := mcp.NewServer(mcp.Deps{
		Engine:   a.engine,
		Indexer:  a.orch,
		Records:  a.records,
		Embedder: mcp.EmbeddingInfo{Model: a.embedder.ModelName(), Dimensions: a.embedder.Dimensions()},
	})
	if err != nil {
		return err
	}

	go backgroundSync(ctx, a, !sopts.noWatch)

	return server.Serve(ctx, transport)
}

// backgroundSync brings the index up to date, then optionally follows file
// changes until ctx is done. Failures are logged; the server keeps serving
// whatever is indexed.
func backgroundSync(ctx context.Context, a *app, watch bool) {
	res, err := a.orch.SyncIndexes(ctx)
	if err != nil {
		slog.Error("initial_sync_failed", slog.String("error", err.Error()))
	} else {
		slog.Info("initial_sync_complete",
			slog.Int("indexed", res.Indexed),
			slog.Int("unchanged", res.Unchanged),
			slog.Int("deleted", res.Deleted),
			slog.Int("failed", res.Failed))
	}

	if !watch || ctx.Err() != nil {
		return
	}

	w, err := startWatcher(ctx, a, false)
	if err != nil {
		slog.Error("watcher_start_failed", slog.String("error", err.Error()))
		return
	}
	defer func() { _ = w.Stop() }()

	go logWatchErrors(ctx, w)

	err = index.NewLiveUpdater(a.orch, a.records).Run(ctx, w.Events())
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("live_updates_stopped", slog.String("error", err.Error()))
	}
}
