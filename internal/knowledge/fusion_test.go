package knowledge

import (
	"testing"

	"github.com/hyperjump/hanashi/internal/keyword"
	"github.com/hyperjump/hanashi/internal/vector"
)

func TestNormalizeKeywordScores(t *testing.T) {
	got := normalizeKeywordScores([]*keyword.KeywordResult{{ID: "a", Score: 2}, {ID: "b", Score: 8}})
	if got["a"] != 0.25 || got["b"] != 1 {
		t.Errorf("got %v", got)
	}
	zero := normalizeKeywordScores([]*keyword.KeywordResult{{ID: "a", Score: 0}})
	if zero["a"] != 0 {
		t.Errorf("zero max should normalize to 0, got %v", zero)
	}
}

func TestNormalizeSemanticScores(t *testing.T) {
	got := normalizeSemanticScores([]*vector.VectorResult{{ID: "a", Score: -0.3}, {ID: "b", Score: 0.7}})
	if got["a"] != 0 || got["b"] != 0.7 {
		t.Errorf("got %v", got)
	}
}

func TestFuse(t *testing.T) {
	kw := map[string]float64{"a": 1.0, "b": 0.5}
	sem := map[string]float64{"b": 1.0, "c": 0.9}
	got := fuse(kw, sem, 0.4, 0.6)
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	// b = 0.2 + 0.6 = 0.8, c = 0.54, a = 0.4
	order := []string{"b", "c", "a"}
	for i, id := range order {
		if got[i].ChunkID != id {
			t.Errorf("position %d = %s, want %s", i, got[i].ChunkID, id)
		}
	}
	if got[0].KeywordScore != 0.5 || got[0].SemanticScore != 1.0 {
		t.Errorf("component scores not kept: %+v", got[0])
	}
}
