// Package store provides the two disposable search indexes: a durable
// SQLite vector store of embedded chunks with a change-detection manifest,
// and an in-memory BM25 keyword index over whole records.
package store

import (
	"context"
	"time"

	"github.com/Aman-CERP/amanvoice/internal/record"
)

// Field names a searchable section of a record.
type Field string

const (
	FieldTitle   Field = "title"
	FieldSummary Field = "summary"
	FieldContext Field = "context"
	FieldTags    Field = "tags"
	FieldText    Field = "text"

	// FieldFull marks a hit against the whole record (keyword search).
	FieldFull Field = "full"
)

// ChunkFields are the fields a chunk may come from, in indexing order.
var ChunkFields = []Field{FieldTitle, FieldSummary, FieldContext, FieldText}

// Chunk is an embedded sub-unit of one record field.
type Chunk struct {
	RecordID   string
	Field      Field
	ChunkIndex int
	Text       string
	Embedding  []float32 // not required to be normalized
	CreatedAt  time.Time
}

// ManifestEntry records what was indexed for a record and from which content.
type ManifestEntry struct {
	RecordID    string    `json:"record_id"`
	Fingerprint string    `json:"fingerprint"`
	IndexedAt   time.Time `json:"indexed_at"`
	ChunkCount  int       `json:"chunk_count"`
}

// VectorHit is one chunk returned by similarity search.
type VectorHit struct {
	ChunkID    int64
	RecordID   string
	Field      Field
	ChunkIndex int
	Text       string
	Score      float64 // cosine similarity clamped to [0, 1]
}

// VectorStoreStats summarizes the vector store.
type VectorStoreStats struct {
	TotalChunks     int   `json:"total_chunks"`
	TotalRecords    int   `json:"total_records"`
	ApproxSizeBytes int64 `json:"approx_size_bytes"`
	Dimensions      int   `json:"dimensions,omitempty"`
}

// VectorStore persists embedded chunks and the indexing manifest.
type VectorStore interface {
	// Init creates storage and schema if absent. Safe to call repeatedly.
	Init(ctx context.Context) error

	// UpsertChunks atomically replaces every chunk of recordID.
	UpsertChunks(ctx context.Context, recordID string, chunks []*Chunk) error

	// DeleteChunks removes a record's chunks and manifest entry and reports
	// whether anything was removed.
	DeleteChunks(ctx context.Context, recordID string) (bool, error)

	// Manifest operations
	GetFingerprint(ctx context.Context, recordID string) (string, bool, error)
	GetManifest(ctx context.Context, recordID string) (*ManifestEntry, error)
	SetManifest(ctx context.Context, recordID, fingerprint string, chunkCount int) error

	// Search returns the top limit chunks with similarity >= minScore.
	Search(ctx context.Context, query []float32, limit int, minScore float64) ([]*VectorHit, error)

	ListIndexedRecordIDs(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (*VectorStoreStats, error)
	Clear(ctx context.Context) error
	Close() error
}

// Document is one keyword-index document, keyed by record id.
type Document struct {
	ID      string
	Content string
}

// BM25Result is a ranked keyword match from a BM25 backend.
type BM25Result struct {
	DocID string
	Score float64 // higher is better
}

// BM25Index is a ranked full-text backend. Implementations are built once
// from a corpus and then only searched.
type BM25Index interface {
	Index(ctx context.Context, docs []*Document) error
	Search(ctx context.Context, query string, limit int) ([]*BM25Result, error)
	Count() int
	Close() error
}

// KeywordHit is a record matched by keyword search.
type KeywordHit struct {
	Record        *record.Record
	Score         float64
	MatchedFields []Field
}

// KeywordIndexStats summarizes the keyword index.
type KeywordIndexStats struct {
	Documents int       `json:"documents"`
	Built     bool      `json:"built"`
	Stale     bool      `json:"stale"`
	Backend   string    `json:"backend"`
	BuiltAt   time.Time `json:"built_at,omitempty"`
}
