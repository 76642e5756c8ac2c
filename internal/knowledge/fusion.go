package knowledge

import (
	"sort"

	"github.com/hyperjump/hanashi/internal/keyword"
	"github.com/hyperjump/hanashi/internal/vector"
	"github.com/hyperjump/hanashi/pkg/utils"
)

// fusedChunk holds a chunk ID and its weighted keyword/semantic scores.
type fusedChunk struct {
	ChunkID       string
	Score         float64
	KeywordScore  float64
	SemanticScore float64
}

// normalizeKeywordScores scales BM25 scores to [0,1] by the best hit.
func normalizeKeywordScores(results []*keyword.KeywordResult) map[string]float64 {
	normalized := make(map[string]float64, len(results))
	var maxScore float64
	for _, r := range results {
		maxScore = max(maxScore, r.Score)
	}
	for _, r := range results {
		if maxScore > 0 {
			normalized[r.ID] = r.Score / maxScore
		} else {
			normalized[r.ID] = 0
		}
	}
	return normalized
}

// normalizeSemanticScores clamps cosine similarities to [0,1].
func normalizeSemanticScores(results []*vector.VectorResult) map[string]float64 {
	normalized := make(map[string]float64, len(results))
	for _, r := range results {
		normalized[r.ID] = utils.Clamp01(r.Score)
	}
	return normalized
}

// fuse merges per-chunk keyword and semantic scores with weights, best first.
func fuse(keywordScores, semanticScores map[string]float64, keywordWeight, semanticWeight float64) []*fusedChunk {
	byID := make(map[string]*fusedChunk, len(keywordScores)+len(semanticScores))
	get := func(id string) *fusedChunk {
		fc, ok := byID[id]
		if !ok {
			fc = &fusedChunk{ChunkID: id}
			byID[id] = fc
		}
		return fc
	}
	for id, s := range keywordScores {
		get(id).KeywordScore = s
	}
	for id, s := range semanticScores {
		get(id).SemanticScore = s
	}
	out := make([]*fusedChunk, 0, len(byID))
	for _, fc := range byID {
		fc.Score = keywordWeight*fc.KeywordScore + semanticWeight*fc.SemanticScore
		out = append(out, fc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	return out
}
