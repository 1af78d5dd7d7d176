package embed

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ProviderType represents an embedding provider.
type ProviderType string

const (
	// ProviderStatic uses hash-based embeddings (offline, default).
	ProviderStatic ProviderType = "static"

	// ProviderOllama uses a local Ollama server.
	ProviderOllama ProviderType = "ollama"

	// ProviderAuto tries Ollama and falls back to static.
	ProviderAuto ProviderType = "auto"
)

// Config selects and configures an embedder.
type Config struct {
	Provider   ProviderType
	Model      string
	Host       string
	Dimensions int
	BatchSize  int
	Timeout    time.Duration

	// CacheSize is the LRU size for repeated texts; negative disables caching.
	CacheSize int
}

// NewEmbedder creates the configured embedder wrapped in a CachedEmbedder.
// An explicitly selected provider never falls back silently.
func NewEmbedder(ctx context.Context, cfg Config) (Embedder, error) {
	var (
		embedder Embedder
		err      error
	)

	switch cfg.Provider {
	case ProviderStatic, "":
		embedder = NewStaticEmbedder(cfg.Dimensions)

	case ProviderOllama:
		embedder, err = newOllama(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("ollama unavailable: %w", err)
		}

	case ProviderAuto:
		embedder, err = newOllama(ctx, cfg)
		if err != nil {
			slog.Warn("embedder_fallback_static",
				slog.String("reason", err.Error()))
			embedder = NewStaticEmbedder(0)
		}

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (valid options: static, ollama, auto)", cfg.Provider)
	}

	if cfg.CacheSize < 0 {
		return embedder, nil
	}
	return NewCachedEmbedder(embedder, cfg.CacheSize), nil
}

func newOllama(ctx context.Context, cfg Config) (*OllamaEmbedder, error) {
	oc := DefaultOllamaConfig()
	if cfg.Host != "" {
		oc.Host = cfg.Host
	}
	if cfg.Model != "" {
		oc.Model = cfg.Model
	}
	if cfg.BatchSize > 0 {
		oc.BatchSize = cfg.BatchSize
	}
	if cfg.Timeout > 0 {
		oc.Timeout = cfg.Timeout
	}
	oc.Dimensions = cfg.Dimensions
	return NewOllamaEmbedder(ctx, oc)
}
