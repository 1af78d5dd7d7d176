package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	amanerrors "github.com/Aman-CERP/amanvoice/internal/errors"
	"github.com/Aman-CERP/amanvoice/internal/record"
	"github.com/Aman-CERP/amanvoice/internal/store"
)

// Engine runs hybrid queries over the vector store and keyword index.
type Engine struct {
	embedder  QueryEmbedder
	vectors   VectorSearcher
	keyword   KeywordSearcher
	records   RecordGetter
	rebuilder KeywordRebuilder
	config    EngineConfig
	fusion    *RRFFusion
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithKeywordRebuilder makes the engine refresh a stale keyword index before
// each keyword search. A failed refresh degrades the query to vector-only.
func WithKeywordRebuilder(r KeywordRebuilder) EngineOption {
	return func(e *Engine) {
		e.rebuilder = r
	}
}

// NewEngine creates an engine. Zero config fields take defaults.
func NewEngine(
	embedder QueryEmbedder,
	vectors VectorSearcher,
	keyword KeywordSearcher,
	records RecordGetter,
	config EngineConfig,
	opts ...EngineOption,
) (*Engine, error) {
	switch {
	case embedder == nil:
		return nil, amanerrors.ValidationError("embedder is required", nil)
	case vectors == nil:
		return nil, amanerrors.ValidationError("vector store is required", nil)
	case keyword == nil:
		return nil, amanerrors.ValidationError("keyword index is required", nil)
	case records == nil:
		return nil, amanerrors.ValidationError("record provider is required", nil)
	}

	defaults := DefaultEngineConfig()
	if config.RRFConstant <= 0 {
		config.RRFConstant = defaults.RRFConstant
	}
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = defaults.DefaultLimit
	}
	if config.MaxLimit <= 0 {
		config.MaxLimit = defaults.MaxLimit
	}
	if config.MinVectorScore < 0 {
		config.MinVectorScore = 0
	}

	e := &Engine{
		embedder: embedder,
		vectors:  vectors,
		keyword:  keyword,
		records:  records,
		config:   config,
		fusion:   NewRRFFusion(config.RRFConstant),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() EngineConfig {
	return e.config
}

// Search returns up to limit records ranked by fused relevance.
//
// A blank query returns no results. If one search fails the other's results
// are used alone; if both fail the error is ERR_503_SEARCH_FAILED and wraps
// both causes.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*Result{}, nil
	}
	limit = e.effectiveLimit(limit)
	start := time.Now()

	vecHits, kwHits, err := e.parallelSearch(ctx, query, limit*2)
	if err != nil {
		return nil, err
	}

	fused := e.fusion.Fuse(vecHits, kwHits)
	results := e.enrich(ctx, fused, limit)

	slog.Debug("search_complete",
		slog.String("query", query),
		slog.Int("vector_hits", len(vecHits)),
		slog.Int("keyword_hits", len(kwHits)),
		slog.Int("results", len(results)),
		slog.Duration("duration", time.Since(start)))

	return results, nil
}

func (e *Engine) effectiveLimit(limit int) int {
	if limit <= 0 {
		limit = e.config.DefaultLimit
	}
	if limit > e.config.MaxLimit {
		limit = e.config.MaxLimit
	}
	return limit
}

// parallelSearch runs both searches concurrently. A failed side comes back
// nil; only both failing is an error.
func (e *Engine) parallelSearch(ctx context.Context, query string, fetch int) (
	vecHits []*store.VectorHit,
	kwHits []*store.KeywordHit,
	err error,
) {
	g, gctx := errgroup.WithContext(ctx)
	var vecErr, kwErr error

	g.Go(func() error {
		embedding, embedErr := e.embedder.Embed(gctx, query)
		if embedErr != nil {
			vecErr = embedErr
			return nil
		}
		vecHits, vecErr = e.vectors.Search(gctx, embedding, fetch, e.config.MinVectorScore)
		return nil
	})

	g.Go(func() error {
		if e.rebuilder != nil {
			if rebuildErr := e.rebuilder.EnsureKeywordIndex(gctx); rebuildErr != nil {
				kwErr = rebuildErr
				return nil
			}
		}
		kwHits, kwErr = e.keyword.Search(gctx, query, fetch)
		return nil
	})

	_ = g.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, nil, ctxErr
	}

	if vecErr != nil && kwErr != nil {
		return nil, nil, amanerrors.New(amanerrors.ErrCodeSearchFailed, "both search methods failed",
			errors.Join(vecErr, kwErr))
	}
	if vecErr != nil {
		vecHits = nil
		slog.Warn("vector_search_unavailable", slog.String("error", vecErr.Error()))
	}
	if kwErr != nil {
		kwHits = nil
		slog.Warn("keyword_search_unavailable", slog.String("error", kwErr.Error()))
	}
	return vecHits, kwHits, nil
}

// enrich attaches records in ranked order, dropping ids that no longer
// resolve, and stops at limit.
func (e *Engine) enrich(ctx context.Context, fused []*Result, limit int) []*Result {
	results := make([]*Result, 0, min(limit, len(fused)))
	for _, res := range fused {
		if len(results) == limit {
			break
		}
		r, err := e.records.GetRecord(ctx, res.RecordID)
		if err != nil {
			if !errors.Is(err, record.ErrNotFound) {
				slog.Warn("record_lookup_failed",
					slog.String("record_id", res.RecordID),
					slog.String("error", err.Error()))
			}
			continue
		}
		if r == nil {
			continue
		}
		res.Record = r
		results = append(results, res)
	}
	return results
}
