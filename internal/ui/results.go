package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Aman-CERP/amanvoice/internal/search"
)

// ResultRenderer prints search results.
type ResultRenderer struct {
	out    io.Writer
	styles Styles
}

// NewResultRenderer creates a result renderer.
func NewResultRenderer(out io.Writer, noColor bool) *ResultRenderer {
	return &ResultRenderer{out: out, styles: GetStyles(noColor)}
}

// Render prints one block per result:
//
//	$ amanvoice search kickoff
//	1. Project alpha kickoff  [0.0328 · vector+keyword]
//	   rec-1 · 2026-01-02 15:04 · title
//	   ...snippet...
func (r *ResultRenderer) Render(query string, results []*search.Result) error {
	if len(results) == 0 {
		_, err := fmt.Fprintf(r.out, "No results for %q\n", query)
		return err
	}

	for i, res := range results {
		title := res.RecordID
		var when string
		if res.Record != nil {
			if res.Record.Title != "" {
				title = res.Record.Title
			}
			if !res.Record.Timestamp.IsZero() {
				when = res.Record.Timestamp.Format("2006-01-02 15:04")
			}
		}

		_, _ = fmt.Fprintf(r.out, "%2d. %s  %s\n",
			i+1,
			r.styles.Title.Render(title),
			r.styles.Score.Render(fmt.Sprintf("[%.4f · %s]", res.Score, matchLabel(res))))

		meta := []string{res.RecordID}
		if when != "" {
			meta = append(meta, when)
		}
		if res.Field != "" {
			meta = append(meta, string(res.Field))
		}
		_, _ = fmt.Fprintf(r.out, "    %s\n", r.styles.Badge.Render(strings.Join(meta, " · ")))

		if res.Snippet != "" {
			_, _ = fmt.Fprintf(r.out, "    %s\n", r.styles.Snippet.Render(oneLine(res.Snippet)))
		}
		if i < len(results)-1 {
			_, _ = fmt.Fprintln(r.out)
		}
	}
	return nil
}

// RenderJSON writes results as indented JSON.
func (r *ResultRenderer) RenderJSON(results []*search.Result) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

func matchLabel(res *search.Result) string {
	switch {
	case res.IsBothMatch():
		return "vector+keyword"
	case res.InVector():
		return "vector"
	case res.InKeyword():
		return "keyword"
	default:
		return "none"
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
