package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/hanashi/internal/config"
)

// NewEmbedder creates the embedder selected by cfg.Provider, wrapped in a cache
// when cfg.CacheSize is positive.
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig, apiKey string) (Embedder, error) {
	var inner Embedder
	switch cfg.Provider {
	case config.EmbeddingMock, "":
		inner = NewHashingEmbedder(cfg.Dimensions)
	case config.EmbeddingGenAI:
		g, err := NewGenAIEmbedder(ctx, apiKey, cfg.Model, cfg.Dimensions)
		if err != nil {
			return nil, err
		}
		inner = g
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: mock, genai)", cfg.Provider)
	}
	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(inner, cfg.CacheSize), nil
	}
	return inner, nil
}
