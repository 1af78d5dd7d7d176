package chunk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanvoice/internal/embed"
	amanerrors "github.com/Aman-CERP/amanvoice/internal/errors"
	"github.com/Aman-CERP/amanvoice/internal/record"
	"github.com/Aman-CERP/amanvoice/internal/store"
)

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(w, " ")
}

type failingEmbedder struct{ *embed.StaticEmbedder }

func (failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("model crashed")
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
		want    []string
	}{
		{"empty", "   ", 5, 1, nil},
		{"fits", "one  two\nthree", 5, 1, []string{"one two three"}},
		{"windows with overlap", words(8), 4, 1, []string{"w0 w1 w2 w3", "w3 w4 w5 w6", "w6 w7"}},
		{"no overlap", words(6), 3, 0, []string{"w0 w1 w2", "w3 w4 w5"}},
		{
			"prefers sentence end in last quarter",
			"a b c d e f g. h i j k l",
			8, 0,
			[]string{"a b c d e f g.", "h i j k l"},
		},
		{
			"ignores sentence end before last quarter",
			"a b c d e f. g h i j k l",
			8, 0,
			[]string{"a b c d e f. g h", "i j k l"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitWords(tt.text, tt.size, tt.overlap))
		})
	}
}

func TestSplitWords_CoversEveryWord(t *testing.T) {
	windows := SplitWords(words(1000), 200, 30)

	seen := map[string]bool{}
	for _, w := range windows {
		assert.LessOrEqual(t, len(strings.Fields(w)), 200)
		for _, word := range strings.Fields(w) {
			seen[word] = true
		}
	}
	assert.Len(t, seen, 1000)
}

func TestRecordChunker_ChunkRecord(t *testing.T) {
	// Given: a record with a long transcript and an empty context
	c, err := NewRecordChunker(embed.NewStaticEmbedder(32), Options{ChunkWords: 20, OverlapWords: 5})
	require.NoError(t, err)
	r := &record.Record{ID: "r1", Title: "Standup", Summary: "Short summary", Text: words(50)}

	// When: chunking
	chunks, err := c.ChunkRecord(context.Background(), r)
	require.NoError(t, err)

	// Then: fields are chunked in order with per-field indexes and embeddings
	require.Len(t, chunks, 2+3)
	assert.Equal(t, store.FieldTitle, chunks[0].Field)
	assert.Equal(t, store.FieldSummary, chunks[1].Field)
	for i, ch := range chunks[2:] {
		assert.Equal(t, store.FieldText, ch.Field)
		assert.Equal(t, i, ch.ChunkIndex)
	}
	for _, ch := range chunks {
		assert.Equal(t, "r1", ch.RecordID)
		assert.Len(t, ch.Embedding, 32)
		assert.False(t, ch.CreatedAt.IsZero())
	}
}

func TestRecordChunker_EmptyRecordHasNoChunks(t *testing.T) {
	c, err := NewRecordChunker(embed.NewStaticEmbedder(8), DefaultOptions())
	require.NoError(t, err)

	chunks, err := c.ChunkRecord(context.Background(), &record.Record{ID: "empty"})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestRecordChunker_EmbeddingFailure(t *testing.T) {
	c, err := NewRecordChunker(failingEmbedder{embed.NewStaticEmbedder(8)}, DefaultOptions())
	require.NoError(t, err)

	_, err = c.ChunkRecord(context.Background(), &record.Record{ID: "r1", Title: "x"})
	require.Error(t, err)
	assert.Equal(t, amanerrors.ErrCodeEmbeddingFailed, amanerrors.GetCode(err))
}

func TestNewRecordChunker_ClampsOptions(t *testing.T) {
	_, err := NewRecordChunker(nil, DefaultOptions())
	assert.Error(t, err)

	c, err := NewRecordChunker(embed.NewStaticEmbedder(8), Options{ChunkWords: 5, OverlapWords: 50})
	require.NoError(t, err)
	assert.Equal(t, MinChunkWords, c.options.ChunkWords)
	assert.Less(t, c.options.OverlapWords, c.options.ChunkWords)
}
