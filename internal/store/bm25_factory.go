package store

import "fmt"

// BM25Backend names a keyword index backend.
type BM25Backend string

const (
	// BM25BackendBleve uses an in-memory bleve v2 index with BM25 scoring (default).
	BM25BackendBleve BM25Backend = "bleve"

	// BM25BackendSQLite uses an in-memory SQLite FTS5 table ranked by bm25().
	BM25BackendSQLite BM25Backend = "sqlite"
)

// BM25Config configures a BM25 backend.
type BM25Config struct {
	// StopWords are dropped from queries by backends that tokenize queries
	// themselves. bleve applies its own English stop list.
	StopWords []string
}

// DefaultBM25Config returns default BM25 configuration.
func DefaultBM25Config() BM25Config {
	return BM25Config{StopWords: DefaultStopWords}
}

// NewBM25Index creates an empty in-memory backend.
//
// backend options:
//   - "bleve" (default): bleve v2, BM25 scoring model
//   - "sqlite": SQLite FTS5 with the porter tokenizer
func NewBM25Index(backend string, config BM25Config) (BM25Index, error) {
	switch BM25Backend(backend) {
	case BM25BackendBleve, "":
		return NewBleveBM25Index()
	case BM25BackendSQLite:
		return NewSQLiteBM25Index(config)
	default:
		return nil, fmt.Errorf("unknown BM25 backend: %s (valid options: bleve, sqlite)", backend)
	}
}
