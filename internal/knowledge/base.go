// Package knowledge maintains the document store used to ground answers:
// ingestion into SQLite, Bleve and the vector index, and hybrid retrieval.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/hanashi/internal/config"
	"github.com/hyperjump/hanashi/internal/embedding"
	"github.com/hyperjump/hanashi/internal/extract"
	"github.com/hyperjump/hanashi/internal/keyword"
	"github.com/hyperjump/hanashi/internal/models"
	"github.com/hyperjump/hanashi/internal/storage"
	"github.com/hyperjump/hanashi/internal/vector"
	"github.com/hyperjump/hanashi/pkg/utils"
)

// ErrEmptyDocument is returned when a document has no text after preprocessing.
var ErrEmptyDocument = errors.New("document has no content")

// Base is the knowledge base.
type Base struct {
	store        storage.DocumentStore
	embedder     embedding.Embedder
	vectorIndex  vector.VectorIndex
	keywordIndex keyword.KeywordIndex
	extractor    *extract.Extractor
	chunker      *Chunker
	cfg          config.KnowledgeConfig
	vectorPath   string
	logger       *zap.Logger

	// writeMu serializes index mutations; extraction and embedding run outside it.
	writeMu sync.Mutex
}

// Option configures a Base.
type Option func(*Base)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Base) { b.logger = l }
}

// WithVectorPath sets where Save persists the vector index.
func WithVectorPath(path string) Option {
	return func(b *Base) { b.vectorPath = path }
}

// WithExtractor overrides the file extractor.
func WithExtractor(e *extract.Extractor) Option {
	return func(b *Base) { b.extractor = e }
}

// New creates a knowledge base over the given store and indexes.
func New(
	store storage.DocumentStore,
	embedder embedding.Embedder,
	vectorIndex vector.VectorIndex,
	keywordIndex keyword.KeywordIndex,
	cfg config.KnowledgeConfig,
	opts ...Option,
) *Base {
	b := &Base{
		store:        store,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		extractor:    extract.NewExtractor(),
		chunker:      NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		cfg:          cfg,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = utils.OrNop(b.logger)
	return b
}

// Ingest stores input, chunks and embeds it, and adds it to both indexes.
// An existing document with the same ID is replaced.
func (b *Base) Ingest(ctx context.Context, input *models.DocumentInput) (*models.Document, error) {
	content := utils.CollapseWhitespace(input.Content)
	if content == "" {
		return nil, ErrEmptyDocument
	}
	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = uuid.New().String()
	}
	doc := &models.Document{
		ID:       id,
		Title:    strings.TrimSpace(input.Title),
		Content:  content,
		Metadata: input.Metadata,
	}

	chunks := b.chunker.Chunk(doc.ID, doc.Content)
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	embeddings, err := b.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if err := b.removeLocked(ctx, doc.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if err := b.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	if err := b.store.BatchCreateChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("failed to store chunks: %w", err)
	}
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
	}
	if err := b.vectorIndex.Add(ctx, ids, embeddings); err != nil {
		return nil, fmt.Errorf("failed to index vectors: %w", err)
	}
	// underscores as spaces so file names like "release_notes_2024.md" match word queries
	title := strings.ReplaceAll(doc.Title, "_", " ")
	for _, ch := range chunks {
		entry := &keyword.Entry{DocumentID: doc.ID, Title: title, Content: ch.Content}
		if err := b.keywordIndex.Index(ctx, ch.ID, entry); err != nil {
			return nil, fmt.Errorf("failed to index keywords: %w", err)
		}
	}

	b.logger.Debug("knowledge document ingested",
		zap.String("id", doc.ID),
		zap.String("title", doc.Title),
		zap.Int("chunks", len(chunks)),
	)
	return doc, nil
}

// Delete removes a document from storage and both indexes.
// Returns an error wrapping storage.ErrNotFound if the document does not exist.
func (b *Base) Delete(ctx context.Context, id string) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := b.removeLocked(ctx, id); err != nil {
		return err
	}
	b.logger.Debug("knowledge document deleted", zap.String("id", id))
	return nil
}

func (b *Base) removeLocked(ctx context.Context, id string) error {
	if _, err := b.store.GetDocument(ctx, id); err != nil {
		return err
	}
	chunks, err := b.store.GetChunksByDocumentID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get chunks: %w", err)
	}
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
	}
	if err := b.vectorIndex.Remove(ctx, ids); err != nil {
		return fmt.Errorf("failed to delete from vector index: %w", err)
	}
	if err := b.keywordIndex.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("failed to delete from keyword index: %w", err)
	}
	if err := b.store.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// Get returns a stored document.
func (b *Base) Get(ctx context.Context, id string) (*models.Document, error) {
	return b.store.GetDocument(ctx, id)
}

// List returns stored documents, newest first.
func (b *Base) List(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	return b.store.ListDocuments(ctx, offset, limit)
}

// Load restores the vector index from disk and re-embeds any stored chunks
// missing from it, which happens after a crash between ingest and Save.
func (b *Base) Load(ctx context.Context) error {
	if err := b.vectorIndex.Load(b.vectorPath); err != nil {
		return fmt.Errorf("failed to load vector index: %w", err)
	}
	count, err := b.keywordIndex.DocCount()
	if err != nil {
		return fmt.Errorf("failed to count keyword index: %w", err)
	}
	if b.vectorIndex.Size() > 0 && int(count) == b.vectorIndex.Size() {
		return nil
	}
	return b.Reindex(ctx)
}

// Reindex rebuilds both indexes from the stored chunks.
func (b *Base) Reindex(ctx context.Context) error {
	const page = 100
	n := 0
	for offset := 0; ; offset += page {
		docs, err := b.store.ListDocuments(ctx, offset, page)
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}
		for _, doc := range docs {
			chunks, err := b.store.GetChunksByDocumentID(ctx, doc.ID)
			if err != nil {
				return fmt.Errorf("failed to get chunks: %w", err)
			}
			if err := b.reindexDocument(ctx, doc, chunks); err != nil {
				return err
			}
			n++
		}
		if len(docs) < page {
			break
		}
	}
	if n > 0 {
		b.logger.Info("knowledge indexes rebuilt", zap.Int("documents", n))
	}
	return nil
}

func (b *Base) reindexDocument(ctx context.Context, doc *models.Document, chunks []*models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
		ids[i] = ch.ID
	}
	embeddings, err := b.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := b.vectorIndex.Add(ctx, ids, embeddings); err != nil {
		return fmt.Errorf("failed to index vectors: %w", err)
	}
	title := strings.ReplaceAll(doc.Title, "_", " ")
	for _, ch := range chunks {
		if err := b.keywordIndex.Index(ctx, ch.ID, &keyword.Entry{DocumentID: doc.ID, Title: title, Content: ch.Content}); err != nil {
			return fmt.Errorf("failed to index keywords: %w", err)
		}
	}
	return nil
}

// Save persists the vector index when a path is configured.
func (b *Base) Save() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := b.vectorIndex.Save(b.vectorPath); err != nil {
		return fmt.Errorf("failed to save vector index: %w", err)
	}
	return nil
}

// Size returns the number of indexed chunks.
func (b *Base) Size() int {
	return b.vectorIndex.Size()
}
