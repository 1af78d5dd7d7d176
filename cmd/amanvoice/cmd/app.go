package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Aman-CERP/amanvoice/internal/chunk"
	"github.com/Aman-CERP/amanvoice/internal/config"
	"github.com/Aman-CERP/amanvoice/internal/embed"
	amanerrors "github.com/Aman-CERP/amanvoice/internal/errors"
	"github.com/Aman-CERP/amanvoice/internal/index"
	"github.com/Aman-CERP/amanvoice/internal/record"
	"github.com/Aman-CERP/amanvoice/internal/search"
	"github.com/Aman-CERP/amanvoice/internal/store"
	"github.com/Aman-CERP/amanvoice/internal/ui"
)

// app is the wired engine for one records directory.
type app struct {
	cfg      *config.Config
	records  *record.DirProvider
	vectors  *store.SQLiteVectorStore
	keyword  *store.KeywordIndex
	embedder embed.Embedder
	orch     *index.Orchestrator
	engine   *search.Engine
}

type appOptions struct {
	// allowDimensionChange skips the stored-dimension check; set when the
	// caller is about to clear the vector store anyway.
	allowDimensionChange bool
}

// openApp loads configuration for dir and opens every component.
func openApp(ctx context.Context, dir string, opts appOptions) (*app, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	return openAppWithConfig(ctx, cfg, opts)
}

func openAppWithConfig(ctx context.Context, cfg *config.Config, opts appOptions) (a *app, err error) {
	a = &app{cfg: cfg}
	defer func() {
		if err != nil {
			_ = a.Close()
			a = nil
		}
	}()

	a.records, err = record.NewDirProvider(cfg.Paths.RecordsDir)
	if err != nil {
		return nil, err
	}

	a.vectors, err = store.NewSQLiteVectorStore(store.SQLiteVectorConfig{
		Path:        cfg.VectorDBPath(),
		Driver:      cfg.Storage.Driver,
		CacheSizeMB: cfg.Storage.CacheMB,
	})
	if err != nil {
		return nil, err
	}
	if err = a.vectors.Init(ctx); err != nil {
		return nil, err
	}

	a.keyword, err = store.NewKeywordIndex(cfg.Search.KeywordBackend, store.DefaultBM25Config())
	if err != nil {
		return nil, err
	}

	a.embedder, err = embed.NewEmbedder(ctx, embed.Config{
		Provider:   embed.ProviderType(cfg.Embeddings.Provider),
		Model:      cfg.Embeddings.Model,
		Host:       cfg.Embeddings.OllamaHost,
		Dimensions: cfg.Embeddings.Dimensions,
		Timeout:    cfg.EmbeddingTimeout(),
		CacheSize:  cfg.Embeddings.CacheSize,
	})
	if err != nil {
		return nil, amanerrors.New(amanerrors.ErrCodeEmbedderUnavailable, "embedder unavailable", err).
			WithSuggestion("Start Ollama or set embeddings.provider to \"static\"")
	}

	if !opts.allowDimensionChange {
		if err = a.checkDimensions(ctx); err != nil {
			return nil, err
		}
	}

	chunker, err := chunk.NewRecordChunker(a.embedder, chunk.Options{
		ChunkWords:   cfg.Chunking.ChunkWords,
		OverlapWords: cfg.Chunking.OverlapWords,
	})
	if err != nil {
		return nil, err
	}

	a.orch, err = index.NewOrchestrator(index.Config{
		Records: a.records,
		Vectors: a.vectors,
		Keyword: a.keyword,
		Chunker: chunker,
	})
	if err != nil {
		return nil, err
	}

	a.engine, err = search.NewEngine(a.embedder, a.vectors, a.keyword, a.records, search.EngineConfig{
		RRFConstant:    cfg.Search.RRFConstant,
		DefaultLimit:   cfg.Search.DefaultLimit,
		MaxLimit:       cfg.Search.MaxLimit,
		MinVectorScore: cfg.Search.MinVectorScore,
	}, search.WithKeywordRebuilder(a.orch))
	if err != nil {
		return nil, err
	}

	slog.Debug("app_opened",
		slog.String("records_dir", cfg.Paths.RecordsDir),
		slog.String("data_dir", cfg.Paths.DataDir),
		slog.String("embedder", a.embedder.ModelName()),
		slog.Int("dimensions", a.embedder.Dimensions()),
		slog.String("keyword_backend", cfg.Search.KeywordBackend))
	return a, nil
}

// checkDimensions refuses an embedder whose width differs from what the
// vector store already holds.
func (a *app) checkDimensions(ctx context.Context) error {
	stats, err := a.vectors.Stats(ctx)
	if err != nil {
		return err
	}
	if stats.Dimensions == 0 || stats.Dimensions == a.embedder.Dimensions() {
		return nil
	}
	return amanerrors.New(amanerrors.ErrCodeDimensionMismatch,
		fmt.Sprintf("index has %d-dimension embeddings but %s produces %d",
			stats.Dimensions, a.embedder.ModelName(), a.embedder.Dimensions()), nil).
		WithSuggestion("Run 'amanvoice reindex --force' to rebuild with the current embedder")
}

func (a *app) embedderInfo() ui.EmbedderInfo {
	return ui.EmbedderInfo{Model: a.embedder.ModelName(), Dimensions: a.embedder.Dimensions()}
}

// Close releases every opened component.
func (a *app) Close() error {
	var errs []error
	if a.embedder != nil {
		errs = append(errs, a.embedder.Close())
	}
	if a.keyword != nil {
		errs = append(errs, a.keyword.Close())
	}
	if a.vectors != nil {
		errs = append(errs, a.vectors.Close())
	}
	return errors.Join(errs...)
}
