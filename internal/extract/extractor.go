// Package extract reads documents exported from the host CMS: HTML or Markdown files
// with an optional YAML (---) or TOML (+++) front-matter block.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/hyperjump/docsync/internal/fileid"
	"github.com/hyperjump/docsync/internal/models"
)

var (
	// ErrUnsupported is returned for file extensions that are not HTML or Markdown.
	ErrUnsupported = errors.New("unsupported file type")
	// ErrBinary is returned when the file content is not text.
	ErrBinary = errors.New("binary content")
)

// Extensions lists the file extensions the extractor understands.
var Extensions = []string{".html", ".htm", ".md", ".markdown"}

// Extractor converts export files to documents.
type Extractor struct {
	defaultType string
	markdown    goldmark.Markdown
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithDefaultType sets the document type used when the front matter has none.
func WithDefaultType(t string) Option {
	return func(e *Extractor) {
		if t != "" {
			e.defaultType = t
		}
	}
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		defaultType: "page",
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Supported reports whether path has an extension the extractor understands.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Extract reads the file at path and returns its document. Documents without an id in
// their front matter get one derived from the path relative to root.
func (e *Extractor) Extract(root, path string) (*models.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	doc, err := e.ExtractBytes(content, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if doc.ID == "" {
		doc.ID = fileid.FromPath(root, path)
	}
	if doc.Title == "" {
		doc.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	doc.SourcePath = path
	return doc, nil
}

// ExtractBytes parses content based on the given extension, which includes the leading dot.
// The returned document has no ID when the front matter does not set one.
func (e *Extractor) ExtractBytes(content []byte, ext string) (*models.Document, error) {
	ext = strings.ToLower(ext)
	if !Supported("x" + ext) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	if mt := mimetype.Detect(content); !strings.HasPrefix(mt.String(), "text/") {
		return nil, fmt.Errorf("%w: %s", ErrBinary, mt.String())
	}
	checksum := fileid.Checksum(content)
	if !utf8.Valid(content) {
		content = []byte(strings.ToValidUTF8(string(content), "\uFFFD"))
	}

	meta, body, err := splitFrontMatter(content)
	if err != nil {
		return nil, err
	}
	doc, err := documentFromMeta(meta)
	if err != nil {
		return nil, err
	}
	if doc.Type == "" {
		doc.Type = e.defaultType
	}
	doc.Checksum = checksum

	switch ext {
	case ".md", ".markdown":
		var buf bytes.Buffer
		if err := e.markdown.Convert(body, &buf); err != nil {
			return nil, fmt.Errorf("render markdown: %w", err)
		}
		doc.Content = buf.String()
	default:
		doc.Content = string(body)
	}
	return doc, nil
}
