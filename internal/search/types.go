// Package search answers queries against both indexes and merges the two
// rankings with Reciprocal Rank Fusion (RRF).
package search

import (
	"context"

	"github.com/Aman-CERP/amanvoice/internal/record"
	"github.com/Aman-CERP/amanvoice/internal/store"
)

// Limits applied when the caller passes no usable limit.
const (
	DefaultLimit          = 20
	DefaultMaxLimit       = 100
	DefaultMinVectorScore = 0.25
)

// QueryEmbedder embeds query text.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher finds the chunks most similar to a query embedding.
type VectorSearcher interface {
	Search(ctx context.Context, query []float32, limit int, minScore float64) ([]*store.VectorHit, error)
}

// KeywordSearcher ranks whole records by keyword relevance.
type KeywordSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]*store.KeywordHit, error)
}

// RecordGetter resolves record ids for enrichment.
type RecordGetter interface {
	GetRecord(ctx context.Context, id string) (*record.Record, error)
}

// KeywordRebuilder brings a stale keyword index up to date before a query.
type KeywordRebuilder interface {
	EnsureKeywordIndex(ctx context.Context) error
}

// EngineConfig configures the engine.
type EngineConfig struct {
	// RRFConstant is k in 1/(k+rank). Default: 60
	RRFConstant int

	// DefaultLimit applies when the caller's limit is <= 0.
	DefaultLimit int

	// MaxLimit caps any requested limit.
	MaxLimit int

	// MinVectorScore drops chunks less similar than this.
	MinVectorScore float64
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		RRFConstant:    DefaultRRFConstant,
		DefaultLimit:   DefaultLimit,
		MaxLimit:       DefaultMaxLimit,
		MinVectorScore: DefaultMinVectorScore,
	}
}

// Result is one record in the merged ranking.
type Result struct {
	RecordID string  `json:"record_id"`
	Score    float64 `json:"score"` // summed RRF contributions

	// Snippet, Field and ChunkIndex come from the record's strongest bucket.
	Snippet    string      `json:"snippet"`
	Field      store.Field `json:"field"`
	ChunkIndex int         `json:"chunk_index"`

	// Provenance. Ranks are 0-based; -1 means the side did not match.
	VectorRank    int           `json:"vector_rank"`
	VectorScore   float64       `json:"vector_score,omitempty"`
	KeywordRank   int           `json:"keyword_rank"`
	KeywordScore  float64       `json:"keyword_score,omitempty"`
	MatchedFields []store.Field `json:"matched_fields,omitempty"`

	Record *record.Record `json:"record"`
}

// InVector reports whether the record matched semantically.
func (r *Result) InVector() bool { return r.VectorRank >= 0 }

// InKeyword reports whether the record matched by keyword.
func (r *Result) InKeyword() bool { return r.KeywordRank >= 0 }

// IsBothMatch reports whether both searches found the record.
func (r *Result) IsBothMatch() bool { return r.InVector() && r.InKeyword() }
