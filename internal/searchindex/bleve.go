package searchindex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"github.com/hyperjump/docsync/internal/models"
)

const bleveDeletePage = 500

// BleveClient implements Client on local Bleve indices, one directory per index name.
// It stands in for the hosted service in development and tests.
type BleveClient struct {
	basePath string
	logger   *zap.Logger

	mu       sync.Mutex
	indices  map[string]bleve.Index
	settings map[string]Settings
}

// BleveOption configures a BleveClient.
type BleveOption func(*BleveClient)

// WithBleveLogger sets a logger for debug output.
func WithBleveLogger(l *zap.Logger) BleveOption {
	return func(c *BleveClient) { c.logger = l }
}

// NewBleveClient creates a client storing indices under basePath.
func NewBleveClient(basePath string, opts ...BleveOption) (*BleveClient, error) {
	if basePath == "" {
		return nil, fmt.Errorf("%w: bleve index path is required", ErrNotConfigured)
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	c := &BleveClient{
		basePath: basePath,
		logger:   zap.NewNop(),
		indices:  make(map[string]bleve.Index),
		settings: make(map[string]Settings),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Name returns "local".
func (c *BleveClient) Name() string { return "local" }

func recordMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	// Attribute filters compare whole values, so unknown string fields are not tokenized.
	im.DefaultAnalyzer = keyword.Name

	doc := bleve.NewDocumentMapping()
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	for _, f := range []string{"title", models.AttrSubtitle, models.AttrContent} {
		doc.AddFieldMappingsAt(f, text)
	}
	kw := bleve.NewKeywordFieldMapping()
	for _, f := range []string{models.AttrObjectID, models.AttrDistinctKey, "id", "type", "url"} {
		doc.AddFieldMappingsAt(f, kw)
	}
	im.DefaultMapping = doc
	return im
}

func (c *BleveClient) indexPath(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: invalid index name %q", ErrNotConfigured, name)
	}
	return filepath.Join(c.basePath, name), nil
}

// open returns the named index, creating it on first use. The caller must hold c.mu.
func (c *BleveClient) openLocked(name string) (bleve.Index, error) {
	if idx, ok := c.indices[name]; ok {
		return idx, nil
	}
	path, err := c.indexPath(name)
	if err != nil {
		return nil, err
	}
	var idx bleve.Index
	if _, statErr := os.Stat(path); statErr == nil {
		idx, err = bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", err)
		}
	} else {
		idx, err = bleve.New(path, recordMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create Bleve index: %w", err)
		}
	}
	c.indices[name] = idx
	return idx, nil
}

func (c *BleveClient) open(name string) (bleve.Index, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.openLocked(name)
}

// Upsert indexes records in one batch keyed by objectID.
func (c *BleveClient) Upsert(ctx context.Context, index string, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	idx, err := c.open(index)
	if err != nil {
		return err
	}
	batch := idx.NewBatch()
	for _, r := range records {
		if err := batch.Index(r.ObjectID, r.Flatten()); err != nil {
			return fmt.Errorf("bleve index %s: %w", r.ObjectID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return fmt.Errorf("bleve batch: %w", err)
	}
	c.logger.Debug("bleve upsert", zap.String("index", index), zap.Int("count", len(records)))
	return nil
}

func filterQuery(filter string) (blevequery.Query, error) {
	expr, err := ParseFilter(filter)
	if err != nil {
		return nil, err
	}
	queries := make([]blevequery.Query, len(expr.Terms))
	for i, t := range expr.Terms {
		q := bleve.NewTermQuery(t.Value)
		q.SetField(t.Attr)
		queries[i] = q
	}
	if expr.Op == OpOr {
		return bleve.NewDisjunctionQuery(queries...), nil
	}
	return bleve.NewConjunctionQuery(queries...), nil
}

// DeleteByFilter deletes every record matching filter.
func (c *BleveClient) DeleteByFilter(ctx context.Context, index, filter string) error {
	q, err := filterQuery(filter)
	if err != nil {
		return err
	}
	idx, err := c.open(index)
	if err != nil {
		return err
	}
	deleted := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		req := bleve.NewSearchRequestOptions(q, bleveDeletePage, 0, false)
		res, err := idx.Search(req)
		if err != nil {
			return fmt.Errorf("bleve search: %w", err)
		}
		if len(res.Hits) == 0 {
			break
		}
		batch := idx.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := idx.Batch(batch); err != nil {
			return fmt.Errorf("bleve delete batch: %w", err)
		}
		deleted += len(res.Hits)
	}
	c.logger.Debug("bleve delete by filter", zap.String("index", index), zap.String("filter", filter), zap.Int("deleted", deleted))
	return nil
}

// DeleteByIDs deletes records by objectID.
func (c *BleveClient) DeleteByIDs(ctx context.Context, index string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	idx, err := c.open(index)
	if err != nil {
		return err
	}
	batch := idx.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return idx.Batch(batch)
}

// Clear drops and recreates the index.
func (c *BleveClient) Clear(ctx context.Context, index string) error {
	path, err := c.indexPath(index)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx, ok := c.indices[index]; ok {
		if err := idx.Close(); err != nil {
			return fmt.Errorf("bleve close: %w", err)
		}
		delete(c.indices, index)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("bleve clear: %w", err)
	}
	_, err = c.openLocked(index)
	return err
}

// SetSettings stores settings in memory. Bleve has no equivalent of index settings.
func (c *BleveClient) SetSettings(ctx context.Context, index string, settings Settings) error {
	if _, err := c.indexPath(index); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings[index] = settings
	return nil
}

// Settings returns the last settings pushed to index.
func (c *BleveClient) Settings(index string) (Settings, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.settings[index]
	return s, ok
}

// Verify checks the base directory is usable.
func (c *BleveClient) Verify(ctx context.Context) error {
	info, err := os.Stat(c.basePath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrUnreachable, c.basePath)
	}
	return nil
}

// Count returns the number of records in index.
func (c *BleveClient) Count(index string) (uint64, error) {
	idx, err := c.open(index)
	if err != nil {
		return 0, err
	}
	return idx.DocCount()
}

// ObjectIDs returns the sorted objectIDs of records matching filter, or all records when filter is empty.
func (c *BleveClient) ObjectIDs(ctx context.Context, index, filter string) ([]string, error) {
	var q blevequery.Query = bleve.NewMatchAllQuery()
	if filter != "" {
		var err error
		if q, err = filterQuery(filter); err != nil {
			return nil, err
		}
	}
	idx, err := c.open(index)
	if err != nil {
		return nil, err
	}
	var ids []string
	for from := 0; ; from += bleveDeletePage {
		res, err := idx.SearchInContext(ctx, bleve.NewSearchRequestOptions(q, bleveDeletePage, from, false))
		if err != nil {
			return nil, fmt.Errorf("bleve search: %w", err)
		}
		for _, hit := range res.Hits {
			ids = append(ids, hit.ID)
		}
		if len(res.Hits) < bleveDeletePage {
			break
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Close closes every open index.
func (c *BleveClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for name, idx := range c.indices {
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.indices, name)
	}
	return firstErr
}
