// Package searchindex talks to the hosted search index: upserts, filtered deletes, clears and settings.
package searchindex

import (
	"context"
	"errors"

	"github.com/hyperjump/docsync/internal/models"
)

var (
	// ErrNotConfigured is returned when credentials or the index name are missing.
	ErrNotConfigured = errors.New("search index not configured")
	// ErrUnreachable is returned when the index service cannot be reached or rejects the credentials.
	ErrUnreachable = errors.New("search index unreachable")
	// ErrInvalidFilter is returned for filter expressions that cannot be parsed.
	ErrInvalidFilter = errors.New("invalid filter")
)

// Settings are index settings in the service's JSON shape, e.g. "attributesForFaceting".
type Settings map[string]interface{}

// Client is the set of remote index operations the sync core depends on.
// Implementations must be safe for concurrent use.
type Client interface {
	// Name identifies the provider, e.g. "algolia".
	Name() string
	// Upsert writes records, replacing any existing record with the same objectID.
	Upsert(ctx context.Context, index string, records []models.Record) error
	// DeleteByFilter removes every record matching a filter expression.
	DeleteByFilter(ctx context.Context, index, filter string) error
	// DeleteByIDs removes records by objectID.
	DeleteByIDs(ctx context.Context, index string, ids []string) error
	// Clear removes every record from the index.
	Clear(ctx context.Context, index string) error
	// SetSettings replaces the index settings.
	SetSettings(ctx context.Context, index string, settings Settings) error
	// Verify checks credentials and reachability.
	Verify(ctx context.Context) error
	Close() error
}

// DefaultSettings makes records of one document collapse into a single hit and
// allows filtered deletes on distinctKey.
func DefaultSettings() Settings {
	return Settings{
		"attributesForFaceting": []interface{}{
			"filterOnly(" + models.AttrDistinctKey + ")",
			"searchable(type)",
		},
		"attributeForDistinct":  models.AttrDistinctKey,
		"distinct":              true,
		"searchableAttributes":  []interface{}{"unordered(title)", "unordered(subtitle)", "unordered(content)"},
		"attributesToSnippet":   []interface{}{"content:20"},
		"customRanking":         []interface{}{"desc(timestamp)"},
		"attributesToHighlight": []interface{}{"title", "subtitle", "content"},
	}
}
