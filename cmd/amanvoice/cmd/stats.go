package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanvoice/internal/ui"
)

func newStatsCmd(opts *globalOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Long: `Show how many notes and chunks are indexed, the keyword index state,
the active embedder and when the last sync finished.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd, opts, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runStats(cmd *cobra.Command, opts *globalOptions, jsonOutput bool) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, opts.dir, appOptions{allowDimensionChange: true})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	stats, err := a.orch.Stats(ctx)
	if err != nil {
		return err
	}

	info := ui.StatsInfo{
		RecordsDir: a.cfg.Paths.RecordsDir,
		DataDir:    a.cfg.Paths.DataDir,
		Embedder:   a.embedderInfo(),
		Stats:      stats,
	}

	r := ui.NewStatsRenderer(cmd.OutOrStdout(), opts.noColorEnabled())
	if jsonOutput {
		return r.RenderJSON(info)
	}
	return r.Render(info)
}
