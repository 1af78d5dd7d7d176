package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Aman-CERP/amanvoice/internal/index"
)

// StatsInfo is what `amanvoice stats` shows.
type StatsInfo struct {
	RecordsDir string       `json:"records_dir"`
	DataDir    string       `json:"data_dir"`
	Embedder   EmbedderInfo `json:"embedder"`
	*index.Stats
}

// StatsRenderer displays index statistics.
type StatsRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatsRenderer creates a stats renderer.
func NewStatsRenderer(out io.Writer, noColor bool) *StatsRenderer {
	return &StatsRenderer{out: out, styles: GetStyles(noColor)}
}

// Render prints stats as labeled sections.
func (r *StatsRenderer) Render(info StatsInfo) error {
	w := r.out
	_, _ = fmt.Fprintf(w, "%s\n\n", r.styles.Header.Render("Index: "+info.RecordsDir))

	if info.Stats != nil && info.Vector != nil {
		_, _ = fmt.Fprintln(w, "  Vectors:")
		_, _ = fmt.Fprintf(w, "    Records:    %d\n", info.Vector.TotalRecords)
		_, _ = fmt.Fprintf(w, "    Chunks:     %d\n", info.Vector.TotalChunks)
		if info.Vector.Dimensions > 0 {
			_, _ = fmt.Fprintf(w, "    Dimensions: %d\n", info.Vector.Dimensions)
		}
		_, _ = fmt.Fprintf(w, "    Size:       %s\n", FormatBytes(info.Vector.ApproxSizeBytes))
		_, _ = fmt.Fprintln(w)
	}

	if info.Stats != nil && info.Keyword != nil {
		_, _ = fmt.Fprintln(w, "  Keyword index:")
		_, _ = fmt.Fprintf(w, "    Backend:    %s\n", info.Keyword.Backend)
		_, _ = fmt.Fprintf(w, "    Documents:  %d\n", info.Keyword.Documents)
		_, _ = fmt.Fprintf(w, "    State:      %s\n", r.keywordState(info))
		_, _ = fmt.Fprintln(w)
	}

	if info.Embedder.Model != "" {
		_, _ = fmt.Fprintln(w, "  Embedder:")
		_, _ = fmt.Fprintf(w, "    Model:      %s\n", info.Embedder.Model)
		_, _ = fmt.Fprintf(w, "    Dimensions: %d\n", info.Embedder.Dimensions)
		_, _ = fmt.Fprintln(w)
	}

	if info.Stats != nil {
		_, _ = fmt.Fprintf(w, "  Status:       %s\n", r.renderPhase(info.Status.Phase))
		if !info.Status.LastSyncAt.IsZero() {
			_, _ = fmt.Fprintf(w, "  Last sync:    %s\n", formatTime(info.Status.LastSyncAt))
		}
		if info.Status.LastError != "" {
			_, _ = fmt.Fprintf(w, "  Last error:   %s\n", r.styles.Error.Render(info.Status.LastError))
		}
	}
	_, _ = fmt.Fprintf(w, "  Data dir:     %s\n", info.DataDir)
	return nil
}

// RenderJSON writes stats as indented JSON.
func (r *StatsRenderer) RenderJSON(info StatsInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func (r *StatsRenderer) keywordState(info StatsInfo) string {
	switch {
	case !info.Keyword.Built:
		return r.styles.Warning.Render("not built")
	case info.Keyword.Stale:
		return r.styles.Warning.Render("stale")
	default:
		return r.styles.Success.Render("ready")
	}
}

func (r *StatsRenderer) renderPhase(p index.Phase) string {
	switch p {
	case index.PhaseIdle:
		return r.styles.Success.Render(string(p))
	case index.PhaseError:
		return r.styles.Error.Render(string(p))
	default:
		return r.styles.Warning.Render(string(p))
	}
}

func formatTime(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute") + " ago"
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour") + " ago"
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day") + " ago"
	default:
		return t.Format("2006-01-02 15:04")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// FormatBytes formats a byte count for humans.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
