package indexer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/docsync/internal/models"
	"github.com/hyperjump/docsync/internal/records"
	"github.com/hyperjump/docsync/internal/searchindex"
	"github.com/hyperjump/docsync/internal/storage"
)

const maxReportErrors = 50

// ReindexOptions controls a bulk reindex. Zero values fall back to the syncer config.
type ReindexOptions struct {
	Index    string
	Types    []string
	Clear    bool
	PageSize int
	Observer Observer
}

// Observer receives progress of a bulk reindex.
type Observer interface {
	// Start is called once with the number of documents to process.
	Start(total int)
	// Advance is called after each page.
	Advance(processed, total int)
}

type nopObserver struct{}

func (nopObserver) Start(int)        {}
func (nopObserver) Advance(int, int) {}

// Report summarizes a bulk reindex.
type Report struct {
	Index         string        `json:"index"`
	Types         []string      `json:"types"`
	Cleared       bool          `json:"cleared"`
	Total         int           `json:"total"`
	Processed     int           `json:"processed"`
	Indexed       int           `json:"indexed"`
	Skipped       int           `json:"skipped"`
	Failed        int           `json:"failed"`
	Records       int           `json:"records"`
	Pages         int           `json:"pages"`
	FailedBatches int           `json:"failed_batches"`
	Errors        []string      `json:"errors,omitempty"`
	Duration      time.Duration `json:"duration"`
}

func (r *Report) addError(format string, args ...interface{}) {
	if len(r.Errors) < maxReportErrors {
		r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	}
}

type assembled struct {
	assembly records.Assembly
	err      error
}

// Reindex rebuilds the index from every published document of the selected types.
// Connectivity, index name and types are checked before any remote call. A failing
// document or page is recorded in the report and the run continues; only
// cancellation or a store failure ends it early, with the partial report.
func (s *Syncer) Reindex(ctx context.Context, opts ReindexOptions) (*Report, error) {
	start := time.Now()
	index, client, err := s.ready(ctx, opts.Index)
	if err != nil {
		return nil, err
	}
	types := opts.Types
	if len(types) == 0 {
		types = s.Types()
	}
	if len(types) == 0 {
		return nil, ErrNoIndexableTypes
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = s.cfg.PageSize
	}
	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	report := &Report{Index: index, Types: types}
	defer func() { report.Duration = time.Since(start) }()

	if opts.Clear {
		if err := client.Clear(ctx, index); err != nil {
			return report, fmt.Errorf("clear index %s: %w", index, err)
		}
		report.Cleared = true
		s.logger.Info("index cleared", zap.String("index", index))
	}

	s.logger.Info("reindex started", zap.String("index", index), zap.Strings("types", types), zap.Bool("clear", opts.Clear))
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		docs, total, err := s.source.QueryDocuments(ctx, storage.Query{
			Types:    types,
			Status:   models.StatusPublish,
			Page:     page,
			PageSize: pageSize,
		})
		if err != nil {
			return report, fmt.Errorf("query page %d: %w", page, err)
		}
		if page == 1 {
			report.Total = total
			observer.Start(total)
		}
		if len(docs) == 0 {
			break
		}
		if err := s.reindexPage(ctx, client, index, docs, !opts.Clear, report); err != nil {
			return report, err
		}
		report.Pages++
		report.Processed += len(docs)
		observer.Advance(report.Processed, report.Total)
	}

	s.logger.Info("reindex finished",
		zap.String("index", index),
		zap.Int("processed", report.Processed),
		zap.Int("indexed", report.Indexed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int("records", report.Records),
		zap.Int("failed_batches", report.FailedBatches),
	)
	return report, nil
}

// reindexPage assembles a page in parallel and writes it with one replace. Only
// context cancellation is returned as an error.
func (s *Syncer) reindexPage(ctx context.Context, client searchindex.Client, index string, docs []*models.Document, deleteFirst bool, report *Report) error {
	results := make([]assembled, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a, err := s.assembler.Assemble(doc)
			results[i] = assembled{assembly: a, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var keys []string
	var recs []models.Record
	indexed := 0
	for i, r := range results {
		doc := docs[i]
		key := records.DistinctKey(doc.Type, doc.ID)
		if r.err != nil {
			report.Failed++
			report.addError("%s: %v", key, r.err)
			s.logger.Warn("document assembly failed", zap.String("distinct_key", key), zap.Error(r.err))
			continue
		}
		keys = append(keys, key)
		if !r.assembly.Indexable {
			report.Skipped++
			continue
		}
		recs = append(recs, r.assembly.Records...)
		indexed++
	}

	if err := s.replace(ctx, client, index, keys, recs, deleteFirst); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		report.FailedBatches++
		report.Failed += indexed
		report.addError("page of %d documents: %v", len(docs), err)
		s.logger.Error("reindex page failed", zap.String("index", index), zap.Int("documents", len(docs)), zap.Error(err))
		return nil
	}
	report.Indexed += indexed
	report.Records += len(recs)
	return nil
}
