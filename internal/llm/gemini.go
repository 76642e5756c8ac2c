package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/hyperjump/hanashi/pkg/utils"
)

// contentGenerator is the subset of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiConfig tunes a GeminiGenerator.
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     *float64
	MaxOutputTokens int
	Timeout         time.Duration
}

// GeminiGenerator generates answers with the Gemini API.
type GeminiGenerator struct {
	models  contentGenerator
	model   string
	config  *genai.GenerateContentConfig
	timeout time.Duration
	logger  *zap.Logger
}

// GeminiOption configures a GeminiGenerator.
type GeminiOption func(*GeminiGenerator)

// WithLogger sets a logger for debug output (model calls, latency).
func WithLogger(l *zap.Logger) GeminiOption {
	return func(g *GeminiGenerator) { g.logger = l }
}

// NewGeminiGenerator creates a Gemini client.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig, opts ...GeminiOption) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return newGeminiGenerator(client.Models, cfg, opts...), nil
}

func newGeminiGenerator(models contentGenerator, cfg GeminiConfig, opts ...GeminiOption) *GeminiGenerator {
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	gc := &genai.GenerateContentConfig{}
	if cfg.Temperature != nil {
		gc.Temperature = genai.Ptr(float32(*cfg.Temperature))
	}
	if cfg.MaxOutputTokens > 0 {
		gc.MaxOutputTokens = int32(cfg.MaxOutputTokens)
	}
	g := &GeminiGenerator{
		models:  models,
		model:   cfg.Model,
		config:  gc,
		timeout: cfg.Timeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = utils.OrNop(g.logger)
	return g
}

// Generate sends prompt as a single user turn and returns the answer text.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	start := time.Now()
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrGeneration, g.model, err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		reason := "empty response"
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			reason = "blocked: " + string(resp.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("%w: %s: %s", ErrGeneration, g.model, reason)
	}
	g.logger.Debug("gemini generated",
		zap.String("model", g.model),
		zap.Int("prompt_chars", len(prompt)),
		zap.Int("answer_chars", len(text)),
		zap.Duration("took", time.Since(start)),
	)
	return text, nil
}

// Model returns the configured model name.
func (g *GeminiGenerator) Model() string {
	return g.model
}

// Close is a no-op; the genai client holds no resources that need releasing.
func (g *GeminiGenerator) Close() error {
	return nil
}
