package indexer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/docsync/internal/searchindex"
)

// Clear removes every record from the index. It returns the index name that was cleared.
func (s *Syncer) Clear(ctx context.Context, override string) (string, error) {
	index, client, err := s.ready(ctx, override)
	if err != nil {
		return "", err
	}
	if err := client.Clear(ctx, index); err != nil {
		return index, fmt.Errorf("clear index %s: %w", index, err)
	}
	s.logger.Info("index cleared", zap.String("index", index))
	return index, nil
}

// DeleteWhere deletes records whose attributes equal every given value.
func (s *Syncer) DeleteWhere(ctx context.Context, override string, where map[string]string) (string, error) {
	if len(where) == 0 {
		return "", fmt.Errorf("at least one attribute filter is required")
	}
	index, client, err := s.ready(ctx, override)
	if err != nil {
		return "", err
	}
	filter := searchindex.MapIntoFilters(where, searchindex.OpAnd)
	if err := client.DeleteByFilter(ctx, index, filter); err != nil {
		return index, fmt.Errorf("delete where %s: %w", filter, err)
	}
	s.logger.Info("records deleted", zap.String("index", index), zap.String("filter", filter))
	return index, nil
}

// PushSettings replaces the index settings.
func (s *Syncer) PushSettings(ctx context.Context, override string, settings searchindex.Settings) (string, error) {
	index, client, err := s.ready(ctx, override)
	if err != nil {
		return "", err
	}
	if err := client.SetSettings(ctx, index, settings); err != nil {
		return index, fmt.Errorf("push settings to %s: %w", index, err)
	}
	s.logger.Info("index settings pushed", zap.String("index", index), zap.Int("keys", len(settings)))
	return index, nil
}
