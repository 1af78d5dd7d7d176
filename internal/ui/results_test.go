package ui

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanvoice/internal/record"
	"github.com/Aman-CERP/amanvoice/internal/search"
	"github.com/Aman-CERP/amanvoice/internal/store"
)

func sampleResults() []*search.Result {
	return []*search.Result{
		{
			RecordID:    "rec-1",
			Score:       1.0/60 + 1.0/61,
			Snippet:     "Kickoff for project alpha\nwith the team",
			Field:       store.FieldTitle,
			VectorRank:  0,
			KeywordRank: 1,
			Record: &record.Record{
				ID:        "rec-1",
				Title:     "Project alpha kickoff",
				Timestamp: time.Date(2026, 1, 2, 15, 4, 0, 0, time.UTC),
			},
		},
		{
			RecordID:    "rec-2",
			Score:       1.0 / 62,
			Field:       store.FieldFull,
			VectorRank:  -1,
			KeywordRank: 2,
			Record:      &record.Record{ID: "rec-2"},
		},
	}
}

func TestResultRenderer_Render(t *testing.T) {
	// Given: two results, one matched by both searches
	buf := &bytes.Buffer{}
	r := NewResultRenderer(buf, true)

	// When: rendering
	require.NoError(t, r.Render("alpha", sampleResults()))

	// Then: titles, provenance and flattened snippets are shown
	out := buf.String()
	assert.Contains(t, out, " 1. Project alpha kickoff  [0.0331 · vector+keyword]")
	assert.Contains(t, out, "rec-1 · 2026-01-02 15:04 · title")
	assert.Contains(t, out, "Kickoff for project alpha with the team")
	assert.Contains(t, out, " 2. rec-2  [0.0161 · keyword]")
	assert.NotContains(t, out, "\x1b[")
}

func TestResultRenderer_NoResults(t *testing.T) {
	buf := &bytes.Buffer{}

	require.NoError(t, NewResultRenderer(buf, true).Render("zebra", nil))

	assert.Equal(t, "No results for \"zebra\"\n", buf.String())
}

func TestResultRenderer_RenderJSON(t *testing.T) {
	buf := &bytes.Buffer{}

	require.NoError(t, NewResultRenderer(buf, true).RenderJSON(sampleResults()))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "rec-1", decoded[0]["record_id"])
	assert.Equal(t, float64(-1), decoded[1]["vector_rank"])
}

func TestMatchLabel(t *testing.T) {
	assert.Equal(t, "vector", matchLabel(&search.Result{VectorRank: 3, KeywordRank: -1}))
	assert.Equal(t, "none", matchLabel(&search.Result{VectorRank: -1, KeywordRank: -1}))
}
