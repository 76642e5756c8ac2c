// Package assistant answers user queries with conversation memory and optional
// knowledge retrieval.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/hanashi/internal/llm"
	"github.com/hyperjump/hanashi/internal/memory"
	"github.com/hyperjump/hanashi/internal/models"
	"github.com/hyperjump/hanashi/internal/prompt"
	"github.com/hyperjump/hanashi/internal/storage"
	"github.com/hyperjump/hanashi/internal/stream"
	"github.com/hyperjump/hanashi/pkg/utils"
)

// Retriever finds knowledge relevant to a query. *knowledge.Base implements it.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]*models.KnowledgeHit, error)
}

// Reply is a generated answer, already split into stream chunks.
type Reply struct {
	SessionID string                 `json:"session_id"`
	Answer    string                 `json:"answer"`
	Chunks    []string               `json:"-"`
	Context   []*models.KnowledgeHit `json:"context,omitempty"`
	Model     string                 `json:"model"`
	Duration  time.Duration          `json:"-"`
}

// Service runs the generation flow: load memory, retrieve, build the prompt,
// generate, then save the exchange.
type Service struct {
	store          storage.ConversationStore
	memory         *memory.ConversationMemory
	generator      llm.Generator
	builder        *prompt.Builder
	retriever      Retriever
	topK           int
	chunkChars     int
	defaultSession string
	logger         *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithRetriever enables knowledge retrieval of up to topK hits per query.
func WithRetriever(r Retriever, topK int) Option {
	return func(s *Service) {
		s.retriever = r
		s.topK = topK
	}
}

// WithChunkChars sets the minimum chunk length used to split answers.
func WithChunkChars(n int) Option {
	return func(s *Service) { s.chunkChars = n }
}

// WithDefaultSession sets the session used when a request names none.
func WithDefaultSession(id string) Option {
	return func(s *Service) { s.defaultSession = id }
}

// NewService creates a Service.
func NewService(store storage.ConversationStore, mem *memory.ConversationMemory, gen llm.Generator, builder *prompt.Builder, opts ...Option) *Service {
	s := &Service{
		store:          store,
		memory:         mem,
		generator:      gen,
		builder:        builder,
		chunkChars:     20,
		defaultSession: "default",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = utils.OrNop(s.logger)
	return s
}

// DefaultSession returns the session used when a request names none.
func (s *Service) DefaultSession() string {
	return s.defaultSession
}

// Generate answers req. The exchange is saved to memory before Generate
// returns and only when generation succeeded. Retrieval failures are logged
// and the answer is generated without context. Errors: models.ErrEmptyQuery
// for blank queries, llm.ErrGeneration when the model fails.
func (s *Service) Generate(ctx context.Context, req *models.GenerateRequest) (*Reply, error) {
	if err := req.Validate(s.defaultSession); err != nil {
		return nil, err
	}
	start := time.Now()
	s.logger.Info("received query", zap.String("session", req.SessionID), zap.String("query", utils.Truncate(req.Query, 200)))

	history, err := s.memory.Load(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	var hits []*models.KnowledgeHit
	if s.retriever != nil {
		hits, err = s.retriever.Retrieve(ctx, req.Query, s.topK)
		if err != nil {
			s.logger.Warn("knowledge retrieval failed", zap.String("session", req.SessionID), zap.Error(err))
			hits = nil
		}
	}

	fullPrompt := s.builder.Build(history, hits, req.Query)
	answer, err := s.generator.Generate(ctx, fullPrompt)
	if err != nil {
		s.logger.Error("generation failed", zap.String("session", req.SessionID), zap.Error(err))
		return nil, err
	}
	if strings.TrimSpace(answer) == "" {
		return nil, fmt.Errorf("%w: empty answer", llm.ErrGeneration)
	}

	if err := s.memory.SaveContext(ctx, req.SessionID, req.Query, answer); err != nil {
		return nil, err
	}

	reply := &Reply{
		SessionID: req.SessionID,
		Answer:    answer,
		Chunks:    stream.Chunk(answer, s.chunkChars),
		Context:   hits,
		Model:     s.generator.Model(),
		Duration:  time.Since(start),
	}
	s.logger.Debug("answer generated",
		zap.String("session", req.SessionID),
		zap.Int("history", len(history)),
		zap.Int("context", len(hits)),
		zap.Int("chunks", len(reply.Chunks)),
		zap.Duration("took", reply.Duration),
	)
	return reply, nil
}

// History returns every message of a session, oldest first.
func (s *Service) History(ctx context.Context, sessionID string) ([]*models.Message, error) {
	if sessionID == "" {
		sessionID = s.defaultSession
	}
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, sessionID, 0)
}

// Sessions lists sessions, most recently active first.
func (s *Service) Sessions(ctx context.Context, offset, limit int) ([]*models.Session, error) {
	return s.store.ListSessions(ctx, offset, limit)
}

// Reset forgets a session. Returns an error wrapping storage.ErrNotFound if it
// does not exist.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	if err := s.memory.Clear(ctx, sessionID); err != nil {
		return err
	}
	s.logger.Info("session cleared", zap.String("session", sessionID))
	return nil
}
