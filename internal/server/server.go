// Package server provides the HTTP API for hanashi.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hyperjump/hanashi/internal/assistant"
	"github.com/hyperjump/hanashi/internal/config"
	"github.com/hyperjump/hanashi/internal/knowledge"
	"github.com/hyperjump/hanashi/internal/models"
	"github.com/hyperjump/hanashi/internal/storage"
	"github.com/hyperjump/hanashi/pkg/utils"
)

// Assistant answers queries and manages sessions. *assistant.Service implements it.
type Assistant interface {
	Generate(ctx context.Context, req *models.GenerateRequest) (*assistant.Reply, error)
	History(ctx context.Context, sessionID string) ([]*models.Message, error)
	Sessions(ctx context.Context, offset, limit int) ([]*models.Session, error)
	Reset(ctx context.Context, sessionID string) error
}

// KnowledgeBase is the document store. *knowledge.Base implements it.
type KnowledgeBase interface {
	Ingest(ctx context.Context, input *models.DocumentInput) (*models.Document, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, offset, limit int) ([]*models.Document, error)
	IngestDirectory(ctx context.Context, dir string, exts []string, recursive bool) (*knowledge.IngestReport, error)
	Retrieve(ctx context.Context, query string, k int) ([]*models.KnowledgeHit, error)
	Size() int
}

// WatchService manages watched directories. *watcher.Watcher implements it.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// StatsProvider reports row counts. *storage.SQLiteStorage implements it.
type StatsProvider interface {
	Stats(ctx context.Context) (*storage.Stats, error)
}

// Server is the HTTP server for the hanashi API.
type Server struct {
	cfg        *config.Config
	assistant  Assistant
	stats      StatsProvider
	knowledge  KnowledgeBase
	watch      WatchService
	configPath string
	logger     *zap.Logger
	limiter    *rateLimiter
	started    time.Time

	cfgMu  sync.Mutex // guards cfg.Watch when persisting directories
	server *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithKnowledge enables the knowledge endpoints.
func WithKnowledge(kb KnowledgeBase) Option {
	return func(s *Server) { s.knowledge = kb }
}

// WithWatcher enables the watch directory endpoints. When configPath is set,
// directory changes are saved back to the config file.
func WithWatcher(w WatchService, configPath string) Option {
	return func(s *Server) {
		s.watch = w
		s.configPath = configPath
	}
}

// NewServer creates a server with the given dependencies.
func NewServer(cfg *config.Config, a Assistant, stats StatsProvider, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		assistant: a,
		stats:     stats,
		logger:    utils.OrNop(logger),
		limiter:   newRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
		started:   time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Session-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(s.limiter.middleware)

	r.Get("/health", s.handleHealth)
	// Streaming routes bound only the generation call with RequestTimeout,
	// so slow pacing never cuts an answer short.
	r.Post("/generate", s.handleGenerate)
	r.Get("/ws/generate", s.handleWebsocket)
	// Directory ingest runs as long as the directory needs.
	r.Post("/api/v1/knowledge/directory", s.handleIngestDirectory)

	r.Group(func(r chi.Router) {
		if s.cfg.Server.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
		}

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/status", s.handleStatus)

			r.Get("/sessions", s.handleListSessions)
			r.Get("/sessions/{id}/messages", s.handleSessionMessages)
			r.Delete("/sessions/{id}", s.handleDeleteSession)
			// Without an id these act on the configured default session.
			r.Get("/messages", s.handleSessionMessages)
			r.Delete("/messages", s.handleDeleteSession)

			r.Get("/knowledge", s.handleListKnowledge)
			r.Post("/knowledge", s.handleIngestKnowledge)
			r.Post("/knowledge/search", s.handleSearchKnowledge)
			r.Get("/knowledge/{id}", s.handleGetKnowledge)
			r.Delete("/knowledge/{id}", s.handleDeleteKnowledge)

			r.Get("/watch/directories", s.handleWatchDirectoriesList)
			r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
			r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
		})
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.cfg.Server.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
