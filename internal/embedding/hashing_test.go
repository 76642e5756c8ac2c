package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/hyperjump/hanashi/internal/vector"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestHashingEmbedder_Deterministic(t *testing.T) {
	ctx := context.Background()
	e := NewHashingEmbedder(64)
	a, _ := e.Embed(ctx, "The quick brown fox")
	b, _ := e.Embed(ctx, "the QUICK brown fox!")
	if len(a) != 64 {
		t.Fatalf("len = %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embeddings differ at %d", i)
		}
	}
	if math.Abs(norm(a)-1) > 1e-5 {
		t.Errorf("norm = %f, want 1", norm(a))
	}
}

func TestHashingEmbedder_SimilarTextsCloser(t *testing.T) {
	ctx := context.Background()
	e := NewHashingEmbedder(256)
	q, _ := e.Embed(ctx, "sqlite write ahead log")
	near, _ := e.Embed(ctx, "the sqlite database uses a write ahead log")
	far, _ := e.Embed(ctx, "bananas are yellow fruit")
	if vector.InnerProduct(q, near) <= vector.InnerProduct(q, far) {
		t.Errorf("expected related text to score higher")
	}
}

func TestHashingEmbedder_Empty(t *testing.T) {
	e := NewHashingEmbedder(8)
	v, err := e.Embed(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range v {
		if x != 0 {
			t.Fatalf("expected zero vector, got %v", v)
		}
	}
}

func TestHashingEmbedder_IndexInRange(t *testing.T) {
	e := NewHashingEmbedder(7)
	var words []string
	for i := range 500 {
		words = append(words, fmt.Sprintf("token%d", i))
	}
	v, err := e.Embed(context.Background(), strings.Join(words, " "))
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 7 {
		t.Fatalf("len = %d, want 7", len(v))
	}
	if math.Abs(norm(v)-1) > 1e-5 {
		t.Errorf("norm = %f, want 1", norm(v))
	}
}
