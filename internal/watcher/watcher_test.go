package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/hanashi/internal/knowledge"
	"github.com/hyperjump/hanashi/internal/storage"
)

// recordingSink records every ingest and removal.
type recordingSink struct {
	mu       sync.Mutex
	ingested []string
	removed  []string
	dirs     []string
}

func (s *recordingSink) IngestFile(ctx context.Context, path string, allowedExts []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ingested = append(s.ingested, path)
	return true, nil
}

// IngestDirectory records the directory and then every matching file in it.
func (s *recordingSink) IngestDirectory(ctx context.Context, dir string, allowedExts []string, recursive bool) (*knowledge.IngestReport, error) {
	s.mu.Lock()
	s.dirs = append(s.dirs, dir)
	s.mu.Unlock()
	report := &knowledge.IngestReport{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if matchExtension(path, allowedExts) {
			_, _ = s.IngestFile(ctx, path, allowedExts)
			report.Indexed++
		}
		return nil
	})
	return report, err
}

func (s *recordingSink) RemoveFile(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, path)
	return fmt.Errorf("document: %w", storage.ErrNotFound)
}

func (s *recordingSink) snapshot() (ingested, removed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ingested...), append([]string(nil), s.removed...)
}

func hasSuffix(paths []string, suffix string) bool {
	for _, p := range paths {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return false
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}

func startWatcher(t *testing.T, sink Sink, roots, exts []string) *Watcher {
	t.Helper()
	w := New(sink, roots, exts, true, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		cancel()
		t.Fatal(err)
	}
	t.Cleanup(func() {
		cancel()
		w.Stop()
	})
	return w
}

func TestWatcher_AddRemoveDirectories(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, &recordingSink{}, nil, []string{".txt"})

	if err := w.AddDirectory(dir, false); err != nil {
		t.Fatal(err)
	}
	if err := w.AddDirectory(dir, false); err != nil {
		t.Fatal(err)
	}
	dirs := w.Directories()
	if len(dirs) != 1 || dirs[0] != filepath.Clean(dir) {
		t.Errorf("Directories() = %v", dirs)
	}

	if err := w.RemoveDirectory(dir); err != nil {
		t.Fatal(err)
	}
	if len(w.Directories()) != 0 {
		t.Errorf("after remove: %v", w.Directories())
	}
}

func TestWatcher_AddDirectoryBeforeStart(t *testing.T) {
	w := New(&recordingSink{}, nil, nil, true)
	if err := w.AddDirectory(t.TempDir(), false); err == nil {
		t.Error("expected error when watcher is not started")
	}
}

func TestWatcher_DebounceAndExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	sink := &recordingSink{}
	startWatcher(t, sink, []string{dir}, []string{".txt"})

	path := filepath.Join(dir, "f.txt")
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte(fmt.Sprintf("v%d", i)), 0600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "skip.xyz"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	ok := waitFor(t, func() bool {
		ingested, _ := sink.snapshot()
		return hasSuffix(ingested, "f.txt")
	})
	if !ok {
		t.Fatal("expected f.txt to be ingested")
	}
	time.Sleep(150 * time.Millisecond)
	ingested, _ := sink.snapshot()
	if hasSuffix(ingested, "skip.xyz") {
		t.Error("skip.xyz should not be ingested")
	}
	count := 0
	for _, p := range ingested {
		if strings.HasSuffix(p, "f.txt") {
			count++
		}
	}
	if count > 2 {
		t.Errorf("expected debounced ingest, got %d calls", count)
	}
}

func TestWatcher_RemoveForwardsToSink(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.txt")
	if err := os.WriteFile(path, []byte("bye"), 0600); err != nil {
		t.Fatal(err)
	}
	sink := &recordingSink{}
	startWatcher(t, sink, []string{dir}, []string{".txt"})

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	ok := waitFor(t, func() bool {
		_, removed := sink.snapshot()
		return hasSuffix(removed, "gone.txt")
	})
	if !ok {
		t.Error("expected removal to reach the sink")
	}
}

func TestWatcher_SyncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ignore.xyz"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	sink := &recordingSink{}
	w := startWatcher(t, sink, []string{dir}, []string{".txt"})
	w.SyncExistingFiles()

	ingested, _ := sink.snapshot()
	if len(ingested) != 1 || !strings.HasSuffix(ingested[0], "a.txt") {
		t.Errorf("expected one ingested file a.txt, got %v", ingested)
	}
	sink.mu.Lock()
	dirs := append([]string(nil), sink.dirs...)
	sink.mu.Unlock()
	if len(dirs) != 1 || dirs[0] != dir {
		t.Errorf("expected the root to be synced as one directory ingest, got %v", dirs)
	}
}

func TestWatcher_StartCreatesMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "watch", "me")
	startWatcher(t, &recordingSink{}, []string{root}, nil)
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root directory should exist after Start: %v", err)
	}
}

func TestWatcher_NewDirectoryIsIngested(t *testing.T) {
	dir := t.TempDir()
	sink := &recordingSink{}
	startWatcher(t, sink, []string{dir}, []string{".txt", ".md"})

	nested := filepath.Join(dir, "level1", "level2")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(nested, "deep.txt"), []byte("deep"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(nested, "ignore.xyz"), []byte("skip"), 0600); err != nil {
		t.Fatal(err)
	}

	ok := waitFor(t, func() bool {
		ingested, _ := sink.snapshot()
		return hasSuffix(ingested, "deep.txt")
	})
	if !ok {
		t.Error("expected deep.txt to be ingested")
	}
	ingested, _ := sink.snapshot()
	if hasSuffix(ingested, "ignore.xyz") {
		t.Error("ignore.xyz should not be ingested")
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.txt", []string{".txt"}, true},
		{"/a/b.TXT", []string{"txt"}, true},
		{"/a/b.md", []string{".txt"}, false},
		{"/a/b", nil, true},
	}
	for _, tt := range tests {
		if got := matchExtension(tt.path, tt.extensions); got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/tmp/a", "/tmp/a", true},
		{"/tmp/a", "/tmp/a/b.txt", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
	}
	for _, tt := range tests {
		if got := inDir(tt.dir, filepath.Clean(tt.path)); got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}
