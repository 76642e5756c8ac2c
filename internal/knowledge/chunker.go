package knowledge

import (
	"fmt"
	"strings"

	"github.com/hyperjump/hanashi/internal/models"
)

// Chunker splits text into overlapping word windows.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker with the given size and overlap in words.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 200
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &Chunker{size: size, overlap: overlap}
}

// Chunk splits text into chunks of docID. Chunk IDs are "<docID>#<index>" so
// re-ingesting a document overwrites the same entries.
func (c *Chunker) Chunk(docID, text string) []*models.DocumentChunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	step := c.size - c.overlap
	var chunks []*models.DocumentChunk
	for start := 0; ; start += step {
		end := min(start+c.size, len(words))
		chunks = append(chunks, &models.DocumentChunk{
			ID:         ChunkID(docID, len(chunks)),
			DocumentID: docID,
			Content:    strings.Join(words[start:end], " "),
			ChunkIndex: len(chunks),
		})
		if end == len(words) {
			return chunks
		}
	}
}

// ChunkID returns the ID of the index-th chunk of docID.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s#%d", docID, index)
}
