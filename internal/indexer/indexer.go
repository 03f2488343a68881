// Package indexer keeps the search index in step with the document store: single-document
// sync on change events and paginated bulk reindexing.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/docsync/internal/models"
	"github.com/hyperjump/docsync/internal/records"
	"github.com/hyperjump/docsync/internal/searchindex"
	"github.com/hyperjump/docsync/internal/storage"
)

const (
	// DefaultPageSize is the number of documents per bulk page.
	DefaultPageSize = 100
	// DefaultWorkers is the number of documents assembled in parallel within a page.
	DefaultWorkers = 4
	// DefaultFilterChunk is the number of distinct keys per delete filter.
	DefaultFilterChunk = 50
)

var (
	// ErrNotConnected is returned by bulk and admin operations when the index is not configured or unreachable.
	ErrNotConnected = errors.New("search index not connected")
	// ErrNoIndex is returned when no index name is configured or given.
	ErrNoIndex = errors.New("no index name configured")
	// ErrNoIndexableTypes is returned when a reindex has no types to process.
	ErrNoIndexableTypes = errors.New("no indexable types")
)

// Config holds sync settings.
type Config struct {
	// Index is the default index name without prefix.
	Index string
	// Prefix is prepended to every index name, e.g. "staging_".
	Prefix      string
	Types       []string
	PageSize    int
	Workers     int
	FilterChunk int
}

// Syncer applies document changes to the search index.
type Syncer struct {
	source    storage.Source
	conn      *searchindex.Connection
	assembler *records.Assembler
	cfg       Config
	locks     *keyLocker
	logger    *zap.Logger
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithLogger sets a logger for sync events.
func WithLogger(l *zap.Logger) SyncerOption {
	return func(s *Syncer) { s.logger = l }
}

// NewSyncer creates a syncer. Zero config values are replaced with defaults.
func NewSyncer(source storage.Source, conn *searchindex.Connection, assembler *records.Assembler, cfg Config, opts ...SyncerOption) *Syncer {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.FilterChunk <= 0 {
		cfg.FilterChunk = DefaultFilterChunk
	}
	s := &Syncer{
		source:    source,
		conn:      conn,
		assembler: assembler,
		cfg:       cfg,
		locks:     newKeyLocker(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IndexName returns the prefixed name of override, or of the configured index when override is empty.
// An override that already carries the prefix is used as is.
func (s *Syncer) IndexName(override string) string {
	name := override
	if name == "" {
		name = s.cfg.Index
	}
	if name == "" {
		return ""
	}
	if s.cfg.Prefix != "" && !strings.HasPrefix(name, s.cfg.Prefix) {
		name = s.cfg.Prefix + name
	}
	return name
}

// Types returns the configured indexable types.
func (s *Syncer) Types() []string {
	return append([]string(nil), s.cfg.Types...)
}

func (s *Syncer) indexable(docType string) bool {
	for _, t := range s.cfg.Types {
		if t == docType {
			return true
		}
	}
	return false
}

// ready checks the per-operation preconditions of bulk and admin operations.
func (s *Syncer) ready(ctx context.Context, override string) (string, searchindex.Client, error) {
	if err := s.conn.Ready(ctx); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrNotConnected, err)
	}
	index := s.IndexName(override)
	if index == "" {
		return "", nil, ErrNoIndex
	}
	return index, s.conn.Client(), nil
}

// replace runs the shared replace protocol for a set of documents: under their key
// locks, delete every record of each key, then write the new records. Nothing is
// written when a delete fails.
func (s *Syncer) replace(ctx context.Context, client searchindex.Client, index string, keys []string, recs []models.Record, deleteFirst bool) error {
	if len(keys) == 0 && len(recs) == 0 {
		return nil
	}
	unlock := s.locks.Lock(keys...)
	defer unlock()

	if deleteFirst {
		for _, chunk := range chunkStrings(uniqueSorted(keys), s.cfg.FilterChunk) {
			filter := searchindex.ChainFilters(models.AttrDistinctKey, chunk, searchindex.OpOr)
			if err := client.DeleteByFilter(ctx, index, filter); err != nil {
				return fmt.Errorf("delete previous records: %w", err)
			}
		}
	}
	if len(recs) == 0 {
		return nil
	}
	if err := client.Upsert(ctx, index, recs); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	return nil
}

func chunkStrings(items []string, size int) [][]string {
	var out [][]string
	for len(items) > 0 {
		n := size
		if n > len(items) {
			n = len(items)
		}
		out = append(out, items[:n])
		items = items[n:]
	}
	return out
}
