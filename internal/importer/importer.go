// Package importer loads exported CMS files into the document store and syncs each
// changed document to the search index.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/docsync/internal/extract"
	"github.com/hyperjump/docsync/internal/indexer"
	"github.com/hyperjump/docsync/internal/models"
	"github.com/hyperjump/docsync/internal/storage"
)

// Action is what an import did with one file.
type Action string

const (
	ActionImported  Action = "imported"
	ActionUnchanged Action = "unchanged"
	ActionRemoved   Action = "removed"
	ActionIgnored   Action = "ignored"
)

// Result describes the import of one file.
type Result struct {
	Path       string           `json:"path"`
	DocumentID string           `json:"document_id,omitempty"`
	Action     Action           `json:"action"`
	Sync       *indexer.Outcome `json:"sync,omitempty"`
}

// Summary counts the results of a directory import.
type Summary struct {
	Files     int      `json:"files"`
	Imported  int      `json:"imported"`
	Unchanged int      `json:"unchanged"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// Importer writes extracted documents to the store and hands them to the syncer.
type Importer struct {
	store     storage.Storage
	syncer    *indexer.Syncer
	extractor *extract.Extractor
	roots     []string
	logger    *zap.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) Option {
	return func(im *Importer) { im.logger = l }
}

// WithRoots sets the export roots that file ids are derived relative to.
func WithRoots(roots ...string) Option {
	return func(im *Importer) { im.roots = append(im.roots, roots...) }
}

// New creates an importer.
func New(store storage.Storage, syncer *indexer.Syncer, extractor *extract.Extractor, opts ...Option) *Importer {
	im := &Importer{store: store, syncer: syncer, extractor: extractor, logger: zap.NewNop()}
	for _, o := range opts {
		o(im)
	}
	return im
}

func (im *Importer) rootFor(path string) string {
	best := ""
	for _, r := range im.roots {
		rel, err := filepath.Rel(r, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if len(r) > len(best) {
			best = r
		}
	}
	return best
}

// ImportFile extracts path, stores it and syncs it. Files whose checksum, path and status
// match the stored document are left alone, so a restored file leaves the trash.
func (im *Importer) ImportFile(ctx context.Context, path string) (Result, error) {
	res := Result{Path: path}
	if !extract.Supported(path) {
		res.Action = ActionIgnored
		return res, nil
	}
	doc, err := im.extractor.Extract(im.rootFor(path), path)
	if err != nil {
		return res, err
	}
	res.DocumentID = doc.ID

	existing, err := im.store.GetDocument(ctx, doc.ID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return res, fmt.Errorf("load document %s: %w", doc.ID, err)
	default:
		if existing.Checksum == doc.Checksum && existing.SourcePath == doc.SourcePath && existing.Status == doc.Status {
			res.Action = ActionUnchanged
			return res, nil
		}
		doc.CreatedAt = existing.CreatedAt
	}

	if err := im.store.UpsertDocument(ctx, doc); err != nil {
		return res, err
	}
	res.Action = ActionImported
	out, err := im.syncer.SyncDocument(ctx, models.ChangeEvent{DocumentID: doc.ID})
	res.Sync = &out
	if err != nil {
		return res, fmt.Errorf("sync %s: %w", path, err)
	}
	im.logger.Info("file imported",
		zap.String("path", path),
		zap.String("document_id", doc.ID),
		zap.String("sync_state", string(out.State)),
	)
	return res, nil
}

// RemoveFile moves the document imported from path to the trash and syncs it, which
// removes its records from the index.
func (im *Importer) RemoveFile(ctx context.Context, path string) (Result, error) {
	res := Result{Path: path}
	doc, err := im.store.GetDocumentBySourcePath(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		res.Action = ActionIgnored
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("find document for %s: %w", path, err)
	}
	res.DocumentID = doc.ID
	if err := im.store.SetStatus(ctx, doc.ID, models.StatusTrash); err != nil {
		return res, err
	}
	res.Action = ActionRemoved
	out, err := im.syncer.SyncDocument(ctx, models.ChangeEvent{DocumentID: doc.ID})
	res.Sync = &out
	if err != nil {
		return res, fmt.Errorf("sync %s: %w", path, err)
	}
	im.logger.Info("file removed", zap.String("path", path), zap.String("document_id", doc.ID))
	return res, nil
}

// ImportDirectory imports every supported file under dir. A failing file is counted and
// the walk continues; only cancellation stops it early.
func (im *Importer) ImportDirectory(ctx context.Context, dir string, recursive bool) (*Summary, error) {
	sum := &Summary{}
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
		if !extract.Supported(path) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		sum.Files++
		res, err := im.ImportFile(ctx, path)
		if err != nil {
			sum.Failed++
			if len(sum.Errors) < 50 {
				sum.Errors = append(sum.Errors, err.Error())
			}
			im.logger.Warn("file import failed", zap.String("path", path), zap.Error(err))
			return nil
		}
		switch res.Action {
		case ActionImported:
			sum.Imported++
		case ActionUnchanged:
			sum.Unchanged++
		}
		return nil
	})
	return sum, err
}

// FileChanged implements watcher.Handler.
func (im *Importer) FileChanged(ctx context.Context, path string) {
	if _, err := im.ImportFile(ctx, path); err != nil {
		im.logger.Warn("file import failed", zap.String("path", path), zap.Error(err))
	}
}

// FileRemoved implements watcher.Handler.
func (im *Importer) FileRemoved(ctx context.Context, path string) {
	if _, err := im.RemoveFile(ctx, path); err != nil {
		im.logger.Warn("file removal failed", zap.String("path", path), zap.Error(err))
	}
}
