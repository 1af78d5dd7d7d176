package mcp

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/amanvoice/internal/search"
)

// RecordURIPrefix prefixes record resource URIs.
const RecordURIPrefix = "record://"

// FormatSearchResults renders results as markdown for clients that show
// text content.
func FormatSearchResults(query string, results []*search.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No voice notes found for \"%s\"", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Results for \"%s\"\n\n", query)
	fmt.Fprintf(&sb, "Found %d note", len(results))
	if len(results) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range results {
		out := ToSearchResultOutput(r)
		title := out.Title
		if title == "" {
			title = out.RecordID
		}
		fmt.Fprintf(&sb, "### %d. %s\n\n", i+1, title)
		fmt.Fprintf(&sb, "- **Record:** `%s`\n", out.RecordID)
		if r.Record != nil && !r.Record.Timestamp.IsZero() {
			fmt.Fprintf(&sb, "- **Recorded:** %s\n", r.Record.Timestamp.Format("2006-01-02 15:04"))
		}
		if len(out.Tags) > 0 {
			fmt.Fprintf(&sb, "- **Tags:** %s\n", strings.Join(out.Tags, ", "))
		}
		fmt.Fprintf(&sb, "- **Score:** %.4f (%s)\n", out.Score, out.MatchReason)
		if out.Snippet != "" {
			fmt.Fprintf(&sb, "\n> %s\n", strings.Join(strings.Fields(out.Snippet), " "))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// ToSearchResultOutput converts an engine result for the tool response.
func ToSearchResultOutput(r *search.Result) SearchResultOutput {
	if r == nil {
		return SearchResultOutput{}
	}
	out := SearchResultOutput{
		RecordID:    r.RecordID,
		URI:         RecordURIPrefix + r.RecordID,
		Score:       r.Score,
		Snippet:     r.Snippet,
		Field:       string(r.Field),
		MatchReason: matchReason(r),
	}
	if r.Record != nil {
		out.Title = r.Record.Title
		if !r.Record.Timestamp.IsZero() {
			out.Timestamp = r.Record.Timestamp.Format(timeFormat)
		}
		out.Tags = r.Record.Tags
	}
	return out
}

func matchReason(r *search.Result) string {
	switch {
	case r.IsBothMatch():
		return fmt.Sprintf("semantic #%d and keyword #%d", r.VectorRank+1, r.KeywordRank+1)
	case r.InVector():
		return fmt.Sprintf("semantic #%d", r.VectorRank+1)
	case r.InKeyword():
		return fmt.Sprintf("keyword #%d", r.KeywordRank+1)
	default:
		return "unranked"
	}
}

// clampLimit returns defaultVal for limit <= 0, else limit within [lo, hi].
func clampLimit(limit, defaultVal, lo, hi int) int {
	if limit <= 0 {
		return defaultVal
	}
	return max(lo, min(limit, hi))
}
