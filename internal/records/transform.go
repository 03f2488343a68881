package records

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/hyperjump/docsync/internal/models"
)

// ErrTransform is returned when a type transform fails for a document.
var ErrTransform = errors.New("transform failed")

// Fields are the type-specific attributes a transform contributes to every record of a document.
type Fields map[string]interface{}

// Transform produces the type-specific fields for a document. Returning false
// marks the document as not indexable. A string "content" field replaces the
// document content as the text to split.
type Transform func(doc *models.Document) (Fields, bool, error)

// Registry maps document types to their transforms. Types without a transform are not indexable.
type Registry struct {
	mu         sync.RWMutex
	transforms map[string]Transform
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{transforms: make(map[string]Transform)}
}

// Register sets the transform for docType, replacing any previous one.
func (r *Registry) Register(docType string, t Transform) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transforms[docType] = t
}

// Lookup returns the transform for docType.
func (r *Registry) Lookup(docType string) (Transform, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transforms[docType]
	return t, ok
}

// Types returns the registered types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.transforms))
	for t := range r.transforms {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// NewDefaultRegistry registers the built-in post and page transforms, and an
// attribute transform for every entry in typeAttributes.
func NewDefaultRegistry(typeAttributes map[string][]string) *Registry {
	r := NewRegistry()
	r.Register("post", PostTransform)
	r.Register("page", PageTransform)
	for docType, keys := range typeAttributes {
		r.Register(docType, AttributeTransform(keys...))
	}
	return r
}

// PostTransform indexes blog posts with their tags, excerpt, author and date.
func PostTransform(doc *models.Document) (Fields, bool, error) {
	f := Fields{}
	if len(doc.Tags) > 0 {
		f["tags"] = append([]string(nil), doc.Tags...)
	}
	if doc.Excerpt != "" {
		f["excerpt"] = doc.Excerpt
	}
	if doc.Author != "" {
		f["author"] = doc.Author
	}
	if !doc.PublishedAt.IsZero() {
		f["date"] = doc.PublishedAt.UTC().Format(time.RFC3339)
		f["timestamp"] = doc.PublishedAt.Unix()
	}
	return f, true, nil
}

// PageTransform indexes static pages with the default attributes only.
func PageTransform(doc *models.Document) (Fields, bool, error) {
	return Fields{}, true, nil
}

// AttributeTransform copies the named custom attributes of a document. Missing attributes are skipped.
func AttributeTransform(keys ...string) Transform {
	keys = append([]string(nil), keys...)
	return func(doc *models.Document) (Fields, bool, error) {
		f := Fields{}
		for _, k := range keys {
			switch k {
			case "tags":
				if len(doc.Tags) > 0 {
					f[k] = append([]string(nil), doc.Tags...)
				}
			case "excerpt":
				if doc.Excerpt != "" {
					f[k] = doc.Excerpt
				}
			case "author":
				if doc.Author != "" {
					f[k] = doc.Author
				}
			default:
				if v, ok := doc.Attributes[k]; ok {
					f[k] = v
				}
			}
		}
		return f, true, nil
	}
}
