package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/docsync/internal/config"
	"github.com/hyperjump/docsync/internal/extract"
	"github.com/hyperjump/docsync/internal/importer"
	"github.com/hyperjump/docsync/internal/indexer"
	"github.com/hyperjump/docsync/internal/records"
	"github.com/hyperjump/docsync/internal/runlock"
	"github.com/hyperjump/docsync/internal/searchindex"
	"github.com/hyperjump/docsync/internal/splitter"
	"github.com/hyperjump/docsync/internal/storage"
)

// components holds the wired services a command works with.
type components struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     *storage.SQLiteStorage
	client    searchindex.Client
	conn      *searchindex.Connection
	syncer    *indexer.Syncer
	extractor *extract.Extractor
	importer  *importer.Importer
	lock      *runlock.Lock
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*components, error) {
	level, err := splitter.ParseHeadingLevel(cfg.Splitter.HeadingLevel)
	if err != nil {
		return nil, err
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	client, err := newIndexClient(cfg, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize search index client: %w", err)
	}
	conn := searchindex.NewConnection(client, logger, searchindex.WithRetryAfter(cfg.Index.RecheckAfter))

	split := splitter.New(
		splitter.WithLimit(cfg.Splitter.ContentLimit),
		splitter.WithHeadingLevel(level),
		splitter.WithASCIIOnly(cfg.Splitter.ASCIIOnly),
	)
	assembler := records.NewAssembler(records.NewDefaultRegistry(cfg.Sync.TypeAttributes), split)
	syncer := indexer.NewSyncer(store, conn, assembler, indexer.Config{
		Index:       cfg.Index.Name,
		Prefix:      cfg.Index.Prefix,
		Types:       cfg.Sync.IndexableTypes,
		PageSize:    cfg.Sync.PageSize,
		Workers:     cfg.Sync.Workers,
		FilterChunk: cfg.Sync.FilterChunk,
	}, indexer.WithLogger(logger))

	ext := extract.NewExtractor(extract.WithDefaultType(cfg.Watch.DefaultType))
	imp := importer.New(store, syncer, ext,
		importer.WithLogger(logger),
		importer.WithRoots(cfg.Watch.Directories...),
	)

	return &components{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		client:    client,
		conn:      conn,
		syncer:    syncer,
		extractor: ext,
		importer:  imp,
		lock:      runlock.New(filepath.Dir(cfg.Storage.DatabasePath)),
	}, nil
}

// newIndexClient returns the configured index client. Missing Algolia credentials are
// not an error: the client is nil and the connection reports not configured.
func newIndexClient(cfg *config.Config, logger *zap.Logger) (searchindex.Client, error) {
	if cfg.Index.Provider == config.ProviderLocal {
		c, err := searchindex.NewBleveClient(cfg.Storage.BleveIndexPath, searchindex.WithBleveLogger(logger))
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	c, err := searchindex.NewAlgoliaClient(searchindex.AlgoliaConfig{
		AppID:             cfg.Index.AppID,
		AdminAPIKey:       cfg.Index.AdminAPIKey,
		RequestsPerSecond: cfg.Index.RequestsPerSecond,
		WaitForTasks:      cfg.Index.WaitForTasksOrDefault(),
	}, searchindex.WithAlgoliaLogger(logger))
	if errors.Is(err, searchindex.ErrNotConfigured) {
		logger.Warn("search index not configured", zap.Error(err))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// requireConnection returns indexer.ErrNotConnected when the index cannot be used.
func (c *components) requireConnection(ctx context.Context) error {
	if err := c.conn.Ready(ctx); err != nil {
		return fmt.Errorf("%w: %w", indexer.ErrNotConnected, err)
	}
	return nil
}

// Close releases the lock, the index client and the store.
func (c *components) Close() {
	if err := c.lock.Unlock(); err != nil {
		c.logger.Warn("failed to release run lock", zap.Error(err))
	}
	if c.client != nil {
		if err := c.client.Close(); err != nil {
			c.logger.Warn("failed to close index client", zap.Error(err))
		}
	}
	if err := c.store.Close(); err != nil {
		c.logger.Warn("failed to close storage", zap.Error(err))
	}
	_ = c.logger.Sync()
}
