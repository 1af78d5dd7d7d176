// Package chunk splits records into embedded chunks for the vector store.
package chunk

import (
	"context"

	"github.com/Aman-CERP/amanvoice/internal/record"
	"github.com/Aman-CERP/amanvoice/internal/store"
)

// Chunk size defaults, in words. Transcripts run roughly 1.3 tokens per word.
const (
	DefaultChunkWords   = 200
	DefaultOverlapWords = 30
	MinChunkWords       = 20
)

// Chunker turns a record into embedded chunks. Embeddings need not be
// normalized; the vector store normalizes on insert.
type Chunker interface {
	ChunkRecord(ctx context.Context, r *record.Record) ([]*store.Chunk, error)
}

// Options configures the record chunker.
type Options struct {
	// ChunkWords is the window size for long fields.
	ChunkWords int

	// OverlapWords is how many words consecutive windows share.
	OverlapWords int
}

// DefaultOptions returns the default chunking options.
func DefaultOptions() Options {
	return Options{
		ChunkWords:   DefaultChunkWords,
		OverlapWords: DefaultOverlapWords,
	}
}
