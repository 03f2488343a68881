// Package storage defines the host document store and its SQLite implementation.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/docsync/internal/models"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Query selects a page of documents. Page is 1-based.
type Query struct {
	Types    []string
	Status   string
	Page     int
	PageSize int
}

// Offset returns the number of rows skipped before the page.
func (q Query) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.PageSize
}

// Source is the read side the sync core needs. Pages are returned in a stable order
// so that concurrent edits cannot shift documents across page boundaries unseen.
type Source interface {
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	// QueryDocuments returns one page and the total number of matching documents.
	// Revisions are never returned.
	QueryDocuments(ctx context.Context, q Query) ([]*models.Document, int, error)
}

// Storage is the full document store.
type Storage interface {
	Source
	GetDocumentBySourcePath(ctx context.Context, path string) (*models.Document, error)
	UpsertDocument(ctx context.Context, doc *models.Document) error
	SetStatus(ctx context.Context, id, status string) error
	DeleteDocument(ctx context.Context, id string) error
	CountDocuments(ctx context.Context) (int64, error)
	CountByType(ctx context.Context, status string) (map[string]int64, error)
	Close() error
}
