package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	amanerrors "github.com/Aman-CERP/amanvoice/internal/errors"
	"github.com/Aman-CERP/amanvoice/internal/record"
)

// KeywordIndex is a ranked full-text index over whole records. It lives only
// in memory and is rebuilt from the record store when invalidated.
type KeywordIndex struct {
	mu      sync.RWMutex
	backend string
	config  BM25Config

	index   BM25Index
	records map[string]*record.Record
	built   bool
	stale   bool
	builtAt time.Time

	// generation counts invalidations.
	generation uint64
}

// NewKeywordIndex creates an unbuilt keyword index on the given backend.
func NewKeywordIndex(backend string, config BM25Config) (*KeywordIndex, error) {
	switch BM25Backend(backend) {
	case "":
		backend = string(BM25BackendBleve)
	case BM25BackendBleve, BM25BackendSQLite:
	default:
		return nil, amanerrors.ConfigError(fmt.Sprintf("unknown keyword backend: %s (valid options: bleve, sqlite)", backend), nil)
	}
	return &KeywordIndex{backend: backend, config: config}, nil
}

// BuildDocument renders a record as one keyword document. The title appears
// twice so that it weighs double; sections are separated by newlines.
func BuildDocument(r *record.Record) string {
	return strings.Join([]string{
		r.Title,
		r.Title,
		r.Summary,
		r.Context,
		strings.Join(r.Tags, " "),
		r.Text,
	}, "\n")
}

// Build indexes records into a fresh backend and swaps it in. An empty corpus
// is a valid built state.
func (k *KeywordIndex) Build(ctx context.Context, records []*record.Record) error {
	return k.BuildAsOf(ctx, records, k.Generation())
}

// Generation returns the invalidation counter. Read it before listing the
// records passed to BuildAsOf.
func (k *KeywordIndex) Generation() uint64 {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.generation
}

// BuildAsOf is Build for a record list taken at generation gen. If the index
// was invalidated since then, the new contents are swapped in but the index
// stays stale so the next rebuild picks up the later writes.
func (k *KeywordIndex) BuildAsOf(ctx context.Context, records []*record.Record, gen uint64) error {
	idx, err := NewBM25Index(k.backend, k.config)
	if err != nil {
		return err
	}

	docs := make([]*Document, 0, len(records))
	byID := make(map[string]*record.Record, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		if _, dup := byID[r.ID]; dup {
			continue
		}
		byID[r.ID] = r
		docs = append(docs, &Document{ID: r.ID, Content: BuildDocument(r)})
	}

	if err := idx.Index(ctx, docs); err != nil {
		_ = idx.Close()
		return fmt.Errorf("failed to build keyword index: %w", err)
	}

	k.mu.Lock()
	old := k.index
	k.index = idx
	k.records = byID
	k.built = true
	k.stale = k.generation != gen
	k.builtAt = time.Now()
	stale := k.stale
	k.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	slog.Debug("keyword_index_built",
		slog.String("backend", k.backend),
		slog.Int("documents", len(docs)),
		slog.Bool("stale", stale))
	return nil
}

// Search returns up to limit records ranked by BM25. It fails before the
// first Build and returns no hits for a blank query or an empty corpus.
func (k *KeywordIndex) Search(ctx context.Context, query string, limit int) ([]*KeywordHit, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if !k.built {
		return nil, amanerrors.New(amanerrors.ErrCodeNotInitialized, "keyword index not built", nil).
			WithDetail("component", "keyword index")
	}
	if strings.TrimSpace(query) == "" || len(k.records) == 0 || limit <= 0 {
		return []*KeywordHit{}, nil
	}

	results, err := k.index.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	terms := QueryTerms(query)
	hits := make([]*KeywordHit, 0, len(results))
	for _, res := range results {
		r, ok := k.records[res.DocID]
		if !ok {
			continue
		}
		hits = append(hits, &KeywordHit{
			Record:        r,
			Score:         res.Score,
			MatchedFields: MatchedFields(r, terms),
		})
	}
	return hits, nil
}

// MatchedFields lists the fields whose lowercase text contains at least one
// of the lowercase terms as a substring.
func MatchedFields(r *record.Record, terms []string) []Field {
	sections := []struct {
		field Field
		text  string
	}{
		{FieldTitle, r.Title},
		{FieldSummary, r.Summary},
		{FieldContext, r.Context},
		{FieldTags, strings.Join(r.Tags, " ")},
		{FieldText, r.Text},
	}

	matched := []Field{}
	for _, s := range sections {
		lower := strings.ToLower(s.text)
		for _, term := range terms {
			if term != "" && strings.Contains(lower, term) {
				matched = append(matched, s.field)
				break
			}
		}
	}
	return matched
}

// Clear drops the index; the next Search fails until Build runs again.
func (k *KeywordIndex) Clear() {
	k.mu.Lock()
	old := k.index
	k.index = nil
	k.records = nil
	k.built = false
	k.stale = false
	k.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
}

// Invalidate marks the index stale. Searches keep using the old contents
// until it is rebuilt.
func (k *KeywordIndex) Invalidate() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.generation++
	k.stale = true
}

// NeedsRebuild reports whether the index was never built or is stale.
func (k *KeywordIndex) NeedsRebuild() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return !k.built || k.stale
}

// Size returns the number of indexed records.
func (k *KeywordIndex) Size() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.records)
}

// Stats returns a snapshot of the index state.
func (k *KeywordIndex) Stats() *KeywordIndexStats {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return &KeywordIndexStats{
		Documents: len(k.records),
		Built:     k.built,
		Stale:     k.stale,
		Backend:   k.backend,
		BuiltAt:   k.builtAt,
	}
}

// Close releases the backend.
func (k *KeywordIndex) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.index == nil {
		return nil
	}
	err := k.index.Close()
	k.index = nil
	k.records = nil
	k.built = false
	return err
}
