package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/hanashi/internal/config"
)

// NewGenerator creates the generator selected by cfg.Provider.
func NewGenerator(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (Generator, error) {
	switch cfg.Provider {
	case config.ProviderGemini, "":
		return NewGeminiGenerator(ctx, GeminiConfig{
			APIKey:          cfg.APIKey,
			Model:           cfg.Model,
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxOutputTokens,
			Timeout:         cfg.Timeout,
		}, WithLogger(logger))
	case config.ProviderEcho:
		return NewEchoGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s (supported: gemini, echo)", cfg.Provider)
	}
}
