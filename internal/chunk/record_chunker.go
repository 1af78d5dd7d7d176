package chunk

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Aman-CERP/amanvoice/internal/embed"
	amanerrors "github.com/Aman-CERP/amanvoice/internal/errors"
	"github.com/Aman-CERP/amanvoice/internal/record"
	"github.com/Aman-CERP/amanvoice/internal/store"
)

// RecordChunker splits each searchable field into overlapping word windows
// and embeds all windows of a record in one batch.
type RecordChunker struct {
	embedder embed.Embedder
	options  Options
}

// Verify interface implementation at compile time
var _ Chunker = (*RecordChunker)(nil)

// NewRecordChunker creates a chunker. Zero options take defaults; an overlap
// that would stall the window is clamped.
func NewRecordChunker(embedder embed.Embedder, opts Options) (*RecordChunker, error) {
	if embedder == nil {
		return nil, amanerrors.ValidationError("embedder is required", nil)
	}
	if opts.ChunkWords <= 0 {
		opts.ChunkWords = DefaultChunkWords
	}
	if opts.ChunkWords < MinChunkWords {
		opts.ChunkWords = MinChunkWords
	}
	if opts.OverlapWords < 0 {
		opts.OverlapWords = 0
	}
	if opts.OverlapWords >= opts.ChunkWords {
		opts.OverlapWords = opts.ChunkWords / 4
	}
	return &RecordChunker{embedder: embedder, options: opts}, nil
}

// ChunkRecord returns the record's chunks in field order (title, summary,
// context, text). Empty fields produce no chunks.
func (c *RecordChunker) ChunkRecord(ctx context.Context, r *record.Record) ([]*store.Chunk, error) {
	if r == nil {
		return nil, amanerrors.ValidationError("nil record", nil)
	}

	fields := map[store.Field]string{
		store.FieldTitle:   r.Title,
		store.FieldSummary: r.Summary,
		store.FieldContext: r.Context,
		store.FieldText:    r.Text,
	}

	var chunks []*store.Chunk
	now := time.Now()
	for _, field := range store.ChunkFields {
		for i, window := range SplitWords(fields[field], c.options.ChunkWords, c.options.OverlapWords) {
			chunks = append(chunks, &store.Chunk{
				RecordID:   r.ID,
				Field:      field,
				ChunkIndex: i,
				Text:       window,
				CreatedAt:  now,
			})
		}
	}
	if len(chunks) == 0 {
		return chunks, nil
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vecs, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, amanerrors.New(amanerrors.ErrCodeEmbeddingFailed, "embed chunks", err).
			WithDetail("record_id", r.ID)
	}
	if len(vecs) != len(chunks) {
		return nil, amanerrors.New(amanerrors.ErrCodeChunkingFailed,
			fmt.Sprintf("embedder returned %d vectors for %d chunks", len(vecs), len(chunks)), nil)
	}
	for i := range chunks {
		chunks[i].Embedding = vecs[i]
	}
	return chunks, nil
}

// SplitWords splits text into windows of at most size words, each sharing
// overlap words with the previous one. A window never ends in the middle of
// a sentence if a sentence end falls in its last quarter.
func SplitWords(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= size {
		return []string{strings.Join(words, " ")}
	}

	var windows []string
	start := 0
	for start < len(words) {
		end := min(start+size, len(words))
		if end < len(words) {
			end = sentenceBoundary(words, start, end, size)
		}
		windows = append(windows, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return windows
}

// sentenceBoundary moves end back to just after the last sentence-ending word
// in the final quarter of the window.
func sentenceBoundary(words []string, start, end, size int) int {
	floor := end - size/4
	for i := end - 1; i >= floor && i > start; i-- {
		if strings.HasSuffix(words[i], ".") || strings.HasSuffix(words[i], "?") || strings.HasSuffix(words[i], "!") {
			return i + 1
		}
	}
	return end
}
