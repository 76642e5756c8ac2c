// Package keyword provides full-text (BM25) search over knowledge chunks.
package keyword

import "context"

// Entry is the indexed form of one knowledge chunk.
type Entry struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
}

// SearchOptions tunes a keyword search. Nil means defaults.
type SearchOptions struct {
	// TitleBoost multiplies matches in the title field. Values <= 1 disable the boost.
	TitleBoost float64
	// Fuzziness is the maximum edit distance per term. 0 disables fuzzy matching.
	Fuzziness int
}

// KeywordIndex defines keyword search operations.
type KeywordIndex interface {
	Index(ctx context.Context, id string, entry *Entry) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	Delete(ctx context.Context, id string) error
	// DeleteDocument removes every chunk that belongs to docID.
	DeleteDocument(ctx context.Context, docID string) error
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit. ID is the chunk ID.
type KeywordResult struct {
	ID    string
	Score float64
}
