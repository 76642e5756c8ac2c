package keyword

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestBleveIndex_SearchFindsContent(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	entry := &Entry{
		DocumentID: "doc-1",
		Title:      "Deployment notes",
		Content:    "The service streams answers with server-sent events. Bayes filters are unrelated.",
	}
	if err := idx.Index(ctx, "doc-1#0", entry); err != nil {
		t.Fatalf("Index: %v", err)
	}

	results, err := idx.Search(ctx, "streams", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 || results[0].ID != "doc-1#0" {
		t.Fatalf("expected doc-1#0, got %+v", results)
	}

	// no stemming: "bayes" matches "Bayes"
	results, err = idx.Search(ctx, "bayes", 10, nil)
	if err != nil {
		t.Fatalf("Search bayes: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected a hit for bayes")
	}
}

func TestBleveIndex_TitleBoost(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	_ = idx.Index(ctx, "a#0", &Entry{DocumentID: "a", Title: "misc", Content: "kubernetes kubernetes appears in the body"})
	_ = idx.Index(ctx, "b#0", &Entry{DocumentID: "b", Title: "kubernetes", Content: "a guide to clusters"})

	results, err := idx.Search(ctx, "kubernetes", 10, &SearchOptions{TitleBoost: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "b#0" {
		t.Errorf("title match should rank first, got %s", results[0].ID)
	}
}

func TestBleveIndex_Fuzzy(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	_ = idx.Index(ctx, "a#0", &Entry{DocumentID: "a", Content: "conversation memory"})

	results, _ := idx.Search(ctx, "memroy", 10, nil)
	if len(results) != 0 {
		t.Fatalf("exact search should miss a typo, got %d", len(results))
	}
	results, err := idx.Search(ctx, "memroy", 10, &SearchOptions{Fuzziness: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("fuzzy search should find the typo, got %d", len(results))
	}
}

func TestBleveIndex_DeleteDocument(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	_ = idx.Index(ctx, "a#0", &Entry{DocumentID: "a", Content: "alpha one"})
	_ = idx.Index(ctx, "a#1", &Entry{DocumentID: "a", Content: "alpha two"})
	_ = idx.Index(ctx, "b#0", &Entry{DocumentID: "b", Content: "alpha three"})

	if err := idx.DeleteDocument(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	n, err := idx.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("DocCount = %d, want 1", n)
	}
	results, _ := idx.Search(ctx, "alpha", 10, nil)
	if len(results) != 1 || results[0].ID != "b#0" {
		t.Errorf("unexpected results %+v", results)
	}

	if err := idx.Delete(ctx, "b#0"); err != nil {
		t.Fatal(err)
	}
	n, _ = idx.DocCount()
	if n != 0 {
		t.Errorf("DocCount = %d, want 0", n)
	}
}

func TestBleveIndex_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bleve")
	ctx := context.Background()
	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = idx.Index(ctx, "a#0", &Entry{DocumentID: "a", Content: "persisted text"})
	_ = idx.Close()

	idx, err = NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	results, _ := idx.Search(ctx, "persisted", 10, nil)
	if len(results) != 1 {
		t.Errorf("expected reopened index to keep entries, got %d", len(results))
	}
}

func TestBleveIndex_EmptyQuery(t *testing.T) {
	idx, err := NewBleveIndex("")
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	results, err := idx.Search(context.Background(), "   ", 10, nil)
	if err != nil || results != nil {
		t.Errorf("expected nil, nil; got %v, %v", results, err)
	}
}
