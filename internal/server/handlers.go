package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/hanashi/internal/assistant"
	"github.com/hyperjump/hanashi/internal/config"
	"github.com/hyperjump/hanashi/internal/models"
	"github.com/hyperjump/hanashi/internal/storage"
	"github.com/hyperjump/hanashi/internal/stream"
)

// maxBodyBytes bounds JSON request bodies; knowledge documents are the largest.
const maxBodyBytes = 16 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	reply, err := s.generate(r.Context(), &req)
	if err != nil {
		if status, _ := statusFor(err); status >= http.StatusInternalServerError {
			s.logger.Error("generate failed", zap.String("session", req.SessionID), zap.Error(err))
		}
		respondErr(w, err)
		return
	}

	w.Header().Set("X-Session-ID", reply.SessionID)
	ew := stream.NewEventWriter(w, s.cfg.Stream.Delay)
	if err := ew.WriteChunks(r.Context(), reply.Chunks); err != nil {
		s.logger.Debug("stream ended early", zap.String("session", reply.SessionID), zap.Error(err))
	}
}

// generate bounds the generation call, not the paced stream that follows it,
// with the configured request timeout.
func (s *Server) generate(ctx context.Context, req *models.GenerateRequest) (*assistant.Reply, error) {
	if s.cfg.Server.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Server.RequestTimeout)
		defer cancel()
	}
	return s.assistant.Generate(ctx, req)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	offset, limit := pagination(r)
	sessions, err := s.assistant.Sessions(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list sessions failed", zap.Error(err))
		respondErr(w, err)
		return
	}
	if sessions == nil {
		sessions = []*models.Session{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

// sessionParam returns the {id} path parameter, falling back to the
// default session for the id-less routes.
func (s *Server) sessionParam(r *http.Request) string {
	if id := chi.URLParam(r, "id"); id != "" {
		return id
	}
	return s.cfg.Memory.DefaultSession
}

func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	id := s.sessionParam(r)
	msgs, err := s.assistant.History(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"session_id": id, "messages": msgs})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := s.sessionParam(r)
	if err := s.assistant.Reset(r.Context(), id); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"session_id": id, "status": "deleted"})
}

func (s *Server) requireKnowledge(w http.ResponseWriter) bool {
	if s.knowledge == nil {
		respondError(w, http.StatusNotImplemented, "knowledge base not enabled")
		return false
	}
	return true
}

func (s *Server) handleIngestKnowledge(w http.ResponseWriter, r *http.Request) {
	if !s.requireKnowledge(w) {
		return
	}
	var input models.DocumentInput
	if !decodeJSON(w, r, &input) {
		return
	}
	s.logger.Debug("ingest document request", zap.String("id", input.ID), zap.String("title", input.Title))
	doc, err := s.knowledge.Ingest(r.Context(), &input)
	if err != nil {
		s.logger.Error("ingest failed", zap.String("id", input.ID), zap.Error(err))
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": doc.ID, "status": "indexed"})
}

func (s *Server) handleListKnowledge(w http.ResponseWriter, r *http.Request) {
	if !s.requireKnowledge(w) {
		return
	}
	offset, limit := pagination(r)
	docs, err := s.knowledge.List(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		respondErr(w, err)
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (s *Server) handleGetKnowledge(w http.ResponseWriter, r *http.Request) {
	if !s.requireKnowledge(w) {
		return
	}
	doc, err := s.knowledge.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteKnowledge(w http.ResponseWriter, r *http.Request) {
	if !s.requireKnowledge(w) {
		return
	}
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	if err := s.knowledge.Delete(r.Context(), id); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleSearchKnowledge(w http.ResponseWriter, r *http.Request) {
	if !s.requireKnowledge(w) {
		return
	}
	var q models.KnowledgeQuery
	if !decodeJSON(w, r, &q) {
		return
	}
	if err := q.Validate(s.cfg.Knowledge.TopK); err != nil {
		respondErr(w, err)
		return
	}
	start := time.Now()
	hits, err := s.knowledge.Retrieve(r.Context(), q.Query, q.Limit)
	if err != nil {
		s.logger.Error("knowledge search failed", zap.Error(err))
		respondErr(w, err)
		return
	}
	if hits == nil {
		hits = []*models.KnowledgeHit{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":         q.Query,
		"hits":          hits,
		"query_time_ms": time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.Stats(r.Context())
	if err != nil {
		s.logger.Error("status: stats failed", zap.Error(err))
		respondErr(w, err)
		return
	}
	resp := &models.Status{
		Sessions:      stats.Sessions,
		Messages:      stats.Messages,
		Documents:     stats.Documents,
		Chunks:        stats.Chunks,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Config: &models.StatusConfig{
			LLMProvider:      s.cfg.LLM.Provider,
			Model:            s.cfg.LLM.Model,
			KnowledgeEnabled: s.knowledge != nil,
			MaxTurns:         s.cfg.Memory.MaxTurns,
			DatabasePath:     s.cfg.Storage.DatabasePath,
		},
	}
	paths := []string{s.cfg.Storage.DatabasePath}
	if s.knowledge != nil {
		resp.VectorIndexSize = s.knowledge.Size()
		resp.Config.EmbeddingProvider = s.cfg.Embedding.Provider
		resp.Config.EmbeddingDimensions = s.cfg.Embedding.Dimensions
		resp.Config.ChunkSize = s.cfg.Knowledge.ChunkSize
		resp.Config.ChunkOverlap = s.cfg.Knowledge.ChunkOverlap
		resp.Config.BleveIndexPath = s.cfg.Storage.BleveIndexPath
		resp.Config.VectorIndexPath = s.cfg.Storage.VectorIndexPath
		paths = append(paths, s.cfg.Storage.BleveIndexPath, s.cfg.Storage.VectorIndexPath)
	}
	if n, err := storage.DiskUsageBytes(paths...); err == nil {
		resp.DiskUsageBytes = &n
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	abs, ok := s.resolveDirectory(w, req.Path)
	if !ok {
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	s.persistWatchDirectories()
	respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	s.persistWatchDirectories()
	respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistWatchDirectories() {
	if s.configPath == "" {
		return
	}
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	s.cfg.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.cfg); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func pagination(r *http.Request) (offset, limit int) {
	q := r.URL.Query()
	offset, _ = strconv.Atoi(q.Get("offset"))
	limit, _ = strconv.Atoi(q.Get("limit"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return offset, limit
}

// resolveDirectory makes path absolute and checks that it is an existing
// directory, answering the request itself when it is not.
func (s *Server) resolveDirectory(w http.ResponseWriter, path string) (string, bool) {
	if path == "" {
		respondError(w, http.StatusBadRequest, "path is required")
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid path")
		return "", false
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			respondError(w, http.StatusNotFound, "directory not found")
			return "", false
		}
		s.logger.Error("stat directory failed", zap.String("path", abs), zap.Error(err))
		respondError(w, http.StatusInternalServerError, msgInternalError)
		return "", false
	}
	if !info.IsDir() {
		respondError(w, http.StatusBadRequest, "path is not a directory")
		return "", false
	}
	return abs, true
}

type ingestDirectoryRequest struct {
	Path      string `json:"path"`
	Recursive *bool  `json:"recursive,omitempty"`
}

// handleIngestDirectory ingests every supported file under a server-side
// directory with the configured watch extensions. Unchanged files are skipped.
func (s *Server) handleIngestDirectory(w http.ResponseWriter, r *http.Request) {
	if !s.requireKnowledge(w) {
		return
	}
	var req ingestDirectoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	abs, ok := s.resolveDirectory(w, req.Path)
	if !ok {
		return
	}
	recursive := true
	if req.Recursive != nil {
		recursive = *req.Recursive
	}
	report, err := s.knowledge.IngestDirectory(r.Context(), abs, s.cfg.Watch.Extensions, recursive)
	if err != nil {
		s.logger.Error("ingest directory failed", zap.String("path", abs), zap.Error(err))
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"path":    abs,
		"indexed": report.Indexed,
		"skipped": report.Skipped,
		"failed":  report.Failed,
	})
}
