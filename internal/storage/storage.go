// Package storage defines the persistence interfaces for conversations and knowledge documents.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/hanashi/internal/models"
)

// ErrNotFound is wrapped by every lookup that finds no row.
var ErrNotFound = errors.New("not found")

// ConversationStore persists sessions and their messages.
type ConversationStore interface {
	// AppendMessages stores msgs in order, creating the session on first use.
	AppendMessages(ctx context.Context, sessionID string, msgs ...*models.Message) error
	// ListMessages returns the newest limit messages of a session in chronological
	// order. limit <= 0 returns all of them.
	ListMessages(ctx context.Context, sessionID string, limit int) ([]*models.Message, error)
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ListSessions(ctx context.Context, offset, limit int) ([]*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// DocumentStore persists knowledge documents and chunks.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)

	BatchCreateChunks(ctx context.Context, chunks []*models.DocumentChunk) error
	GetChunk(ctx context.Context, id string) (*models.DocumentChunk, error)
	GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.DocumentChunk, error)
	DeleteChunksByDocumentID(ctx context.Context, docID string) error
}

// Stats holds row counts for the status endpoint.
type Stats struct {
	Sessions  int64 `json:"sessions"`
	Messages  int64 `json:"messages"`
	Documents int64 `json:"documents"`
	Chunks    int64 `json:"chunks"`
}

// Storage is the full persistence layer.
type Storage interface {
	ConversationStore
	DocumentStore
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}
