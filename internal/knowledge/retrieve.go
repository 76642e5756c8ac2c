package knowledge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hyperjump/hanashi/internal/embedding"
	"github.com/hyperjump/hanashi/internal/keyword"
	"github.com/hyperjump/hanashi/internal/models"
	"github.com/hyperjump/hanashi/internal/storage"
)

const (
	// candidateFactor is how many chunks per requested hit each index returns.
	candidateFactor = 5
	minCandidates   = 20
	snippetLength   = 600
	titleBoost      = 2.0
)

// Retrieve returns up to k documents relevant to query, best first. Stop words
// are removed before keyword search; the full query is embedded. Keyword
// and semantic chunk scores are normalized to [0,1], fused with the configured
// weights, and each document is represented by its best chunk. Hits scoring
// below knowledge.min_score are dropped. k <= 0 uses knowledge.top_k.
func (b *Base) Retrieve(ctx context.Context, query string, k int) ([]*models.KnowledgeHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.ErrEmptyQuery
	}
	if k <= 0 {
		k = b.cfg.TopK
	}
	if k <= 0 || b.vectorIndex.Size() == 0 {
		return nil, nil
	}
	candidates := max(k*candidateFactor, minCandidates)
	aq := analyzeQuery(query)

	kwResults, err := b.keywordIndex.Search(ctx, aq.keywordText(), candidates, &keyword.SearchOptions{TitleBoost: titleBoost})
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	queryVec, err := embedding.EmbedQuery(ctx, b.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	vecResults, err := b.vectorIndex.Search(ctx, queryVec, candidates)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}

	fused := fuse(
		normalizeKeywordScores(kwResults),
		normalizeSemanticScores(vecResults),
		b.cfg.KeywordWeight,
		b.cfg.SemanticWeight,
	)

	hits := make([]*models.KnowledgeHit, 0, k)
	seen := make(map[string]bool)
	titles := make(map[string]string)
	// fused is sorted, so the first chunk seen for a document is its best
	for _, fc := range fused {
		if len(hits) == k || fc.Score < b.cfg.MinScore {
			break
		}
		chunk, err := b.store.GetChunk(ctx, fc.ChunkID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load chunk: %w", err)
		}
		if seen[chunk.DocumentID] {
			continue
		}
		seen[chunk.DocumentID] = true

		title, ok := titles[chunk.DocumentID]
		if !ok {
			if doc, err := b.store.GetDocument(ctx, chunk.DocumentID); err == nil {
				title = doc.Title
			}
			titles[chunk.DocumentID] = title
		}
		hits = append(hits, &models.KnowledgeHit{
			DocumentID:    chunk.DocumentID,
			Title:         title,
			Snippet:       snippet(chunk.Content, aq, snippetLength),
			Score:         fc.Score,
			KeywordScore:  fc.KeywordScore,
			SemanticScore: fc.SemanticScore,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits, nil
}
