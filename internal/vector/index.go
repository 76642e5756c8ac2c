// Package vector provides the semantic index for knowledge chunks.
package vector

import "context"

// VectorIndex stores chunk embeddings and answers nearest-neighbour queries.
type VectorIndex interface {
	// Add inserts vectors; an existing id is replaced.
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Remove(ctx context.Context, ids []string) error
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
}

// VectorResult is a single vector search hit. ID is the chunk ID.
type VectorResult struct {
	ID    string
	Score float64
}
