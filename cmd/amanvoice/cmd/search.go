package cmd

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	amanerrors "github.com/Aman-CERP/amanvoice/internal/errors"
	"github.com/Aman-CERP/amanvoice/internal/index"
	"github.com/Aman-CERP/amanvoice/internal/ui"
)

type searchOptions struct {
	limit  int
	json   bool
	noSync bool
}

func newSearchCmd(opts *globalOptions) *cobra.Command {
	var sopts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the voice notes",
		Long: `Search the indexed voice notes with hybrid search.

Semantic (embedding) and BM25 (keyword) rankings are merged with
Reciprocal Rank Fusion. The index is brought up to date first unless
--no-sync is set.

Examples:
  amanvoice search "call the plumber"
  amanvoice search budget meeting --limit 5
  amanvoice search "dentist" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, opts, strings.Join(args, " "), sopts)
		},
	}

	cmd.Flags().IntVarP(&sopts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().BoolVar(&sopts.json, "json", false, "Output results as JSON")
	cmd.Flags().BoolVar(&sopts.noSync, "no-sync", false, "Search the index as it is, without syncing first")

	return cmd
}

func runSearch(cmd *cobra.Command, opts *globalOptions, query string, sopts searchOptions) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, opts.dir, appOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if !sopts.noSync {
		if err := syncIfUnlocked(ctx, a); err != nil {
			return err
		}
	}

	results, err := a.engine.Search(ctx, query, sopts.limit)
	if err != nil {
		return err
	}

	r := ui.NewResultRenderer(cmd.OutOrStdout(), opts.noColorEnabled())
	if sopts.json {
		return r.RenderJSON(results)
	}
	return r.Render(query, results)
}

// syncIfUnlocked syncs before a query unless a watch or serve process owns
// the data directory, in which case that process keeps the index current.
func syncIfUnlocked(ctx context.Context, a *app) error {
	lock := index.NewDataDirLock(a.cfg.Paths.DataDir)
	if err := lock.TryLock(); err != nil {
		if errors.Is(err, amanerrors.ErrIndexLocked) {
			slog.Debug("search_sync_skipped", slog.String("reason", "data dir locked"))
			return nil
		}
		return err
	}
	defer func() { _ = lock.Unlock() }()

	_, err := a.orch.SyncIndexes(ctx)
	return err
}
