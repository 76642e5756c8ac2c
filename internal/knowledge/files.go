package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/hanashi/internal/extract"
	"github.com/hyperjump/hanashi/internal/models"
)

// IngestReport summarizes a directory ingest.
type IngestReport struct {
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// IngestFile extracts and ingests the file at path under a document ID derived
// from its absolute path. Returns false without error when the file is already
// ingested with the same mtime and size.
func (b *Base) IngestFile(ctx context.Context, path string, allowedExts []string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("absolute path: %w", err)
	}
	if !extensionAllowed(filepath.Ext(absPath), allowedExts) {
		return false, fmt.Errorf("extension %q not in allowed list", filepath.Ext(absPath))
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return false, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return false, fmt.Errorf("not a regular file: %s", absPath)
	}

	docID := FileDocID(absPath)
	if b.unchanged(ctx, docID, absPath, info) {
		b.logger.Debug("knowledge skipping unchanged file", zap.String("path", absPath))
		return false, nil
	}

	input, err := FileInput(b.extractor, absPath, info)
	if err != nil {
		return false, err
	}
	_, err = b.Ingest(ctx, input)
	if err != nil {
		return false, err
	}
	return true, nil
}

// FileInput extracts the file at absPath into a document input carrying the
// file's stable ID and its source path, mtime and size.
func FileInput(ex *extract.Extractor, absPath string, info os.FileInfo) (*models.DocumentInput, error) {
	text, err := ex.Extract(absPath)
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}
	return &models.DocumentInput{
		ID:      FileDocID(absPath),
		Title:   filepath.Base(absPath),
		Content: text,
		Metadata: map[string]interface{}{
			metaSourcePath:  absPath,
			metaSourceMtime: strconv.FormatInt(info.ModTime().UnixNano(), 10),
			metaSourceSize:  strconv.FormatInt(info.Size(), 10),
		},
	}, nil
}

// RemoveFile deletes the document ingested from path, if any.
func (b *Base) RemoveFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	return b.Delete(ctx, FileDocID(absPath))
}

func (b *Base) unchanged(ctx context.Context, docID, absPath string, info os.FileInfo) bool {
	doc, err := b.store.GetDocument(ctx, docID)
	if err != nil || doc.Metadata == nil {
		return false
	}
	if doc.Metadata[metaSourcePath] != absPath {
		return false
	}
	return metadataInt64(doc.Metadata, metaSourceMtime) == info.ModTime().UnixNano() &&
		metadataInt64(doc.Metadata, metaSourceSize) == info.Size()
}

// IngestDirectory ingests every regular file under dir whose extension is allowed,
// with up to knowledge.ingest_workers files in flight. Files that fail are logged
// and counted; only walk errors and cancellation abort the run.
func (b *Base) IngestDirectory(ctx context.Context, dir string, allowedExts []string, recursive bool) (*IngestReport, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absDir)
	}

	var paths []string
	err = filepath.WalkDir(absDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != absDir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !extensionAllowed(filepath.Ext(path), allowedExts) {
			return nil
		}
		// follow symlinks; only regular targets are ingested
		if fi, statErr := os.Stat(path); statErr == nil && fi.Mode().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	var indexed, skipped, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(b.cfg.IngestWorkers, 1))
	for _, path := range paths {
		g.Go(func() error {
			ok, err := b.IngestFile(gctx, path, allowedExts)
			switch {
			case gctx.Err() != nil:
				return gctx.Err()
			case errors.Is(err, ErrEmptyDocument):
				skipped.Add(1)
			case err != nil:
				failed.Add(1)
				b.logger.Warn("knowledge ingest failed", zap.String("path", path), zap.Error(err))
			case ok:
				indexed.Add(1)
			default:
				skipped.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()
	report := &IngestReport{
		Indexed: int(indexed.Load()),
		Skipped: int(skipped.Load()),
		Failed:  int(failed.Load()),
	}
	b.logger.Info("knowledge directory ingested",
		zap.String("dir", absDir),
		zap.Int("indexed", report.Indexed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, err
}
