// Package models defines the documents read from the host store and the records written to the search index.
package models

import "time"

// Document statuses used by the host content store.
const (
	StatusPublish = "publish"
	StatusDraft   = "draft"
	StatusPending = "pending"
	StatusPrivate = "private"
	StatusFuture  = "future"
	StatusTrash   = "trash"
)

// Document is a single piece of content owned by the host store.
type Document struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Title       string                 `json:"title"`
	Content     string                 `json:"content"`
	Excerpt     string                 `json:"excerpt,omitempty"`
	Status      string                 `json:"status"`
	Permalink   string                 `json:"permalink,omitempty"`
	Author      string                 `json:"author,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	Attributes  map[string]interface{} `json:"attributes,omitempty"`
	RevisionOf  string                 `json:"revision_of,omitempty"`
	SourcePath  string                 `json:"source_path,omitempty"`
	Checksum    string                 `json:"checksum,omitempty"`
	PublishedAt time.Time              `json:"published_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// IsRevision reports whether the document is a stored revision of another document.
func (d *Document) IsRevision() bool {
	return d.RevisionOf != ""
}

// IsPublished reports whether the document is publicly visible.
func (d *Document) IsPublished() bool {
	return d.Status == StatusPublish
}

// DocumentInput is the input for creating or updating a document through the API.
type DocumentInput struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Title       string                 `json:"title,omitempty"`
	Content     string                 `json:"content"`
	Excerpt     string                 `json:"excerpt,omitempty"`
	Status      string                 `json:"status,omitempty"`
	Permalink   string                 `json:"permalink,omitempty"`
	Author      string                 `json:"author,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	Attributes  map[string]interface{} `json:"attributes,omitempty"`
	PublishedAt *time.Time             `json:"published_at,omitempty"`
}

// ToDocument converts the input to a Document, defaulting the status to publish.
func (in *DocumentInput) ToDocument() *Document {
	doc := &Document{
		ID:         in.ID,
		Type:       in.Type,
		Title:      in.Title,
		Content:    in.Content,
		Excerpt:    in.Excerpt,
		Status:     in.Status,
		Permalink:  in.Permalink,
		Author:     in.Author,
		Tags:       in.Tags,
		Attributes: in.Attributes,
	}
	if doc.Status == "" {
		doc.Status = StatusPublish
	}
	if in.PublishedAt != nil {
		doc.PublishedAt = *in.PublishedAt
	}
	return doc
}

// ChangeEvent notifies that a document was created, updated or deleted in the host store.
type ChangeEvent struct {
	DocumentID string `json:"id"`
	// Autosave is set when the host saved a draft in the background.
	Autosave bool `json:"autosave,omitempty"`
}
