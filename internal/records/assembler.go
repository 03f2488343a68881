package records

import (
	"fmt"
	"maps"

	"github.com/hyperjump/docsync/internal/models"
	"github.com/hyperjump/docsync/internal/splitter"
)

// Assembly is the result of assembling one document.
type Assembly struct {
	// Indexable is false when the document's type has no transform or the transform declined it.
	Indexable bool
	Records   []models.Record
}

// Assembler combines a document, its type transform and its fragments into records.
type Assembler struct {
	registry *Registry
	splitter *splitter.Splitter
}

// NewAssembler creates an assembler.
func NewAssembler(registry *Registry, s *splitter.Splitter) *Assembler {
	return &Assembler{registry: registry, splitter: s}
}

// Registry returns the transform registry.
func (a *Assembler) Registry() *Registry { return a.registry }

// Assemble builds the records for doc. It does not perform I/O and is safe for concurrent use.
func (a *Assembler) Assemble(doc *models.Document) (Assembly, error) {
	transform, ok := a.registry.Lookup(doc.Type)
	if !ok {
		return Assembly{}, nil
	}

	fields, ok, err := runTransform(transform, doc)
	if err != nil {
		return Assembly{}, err
	}
	if !ok {
		return Assembly{}, nil
	}

	content := doc.Content
	if v, ok := fields[models.AttrContent].(string); ok {
		content = v
	}

	attrs := defaultAttributes(doc)
	for k, v := range fields {
		switch k {
		case models.AttrObjectID, models.AttrDistinctKey, models.AttrContent, models.AttrSubtitle:
			continue
		}
		attrs[k] = v
	}

	frags := a.splitter.Split(content)
	if len(frags) == 0 {
		frags = []models.Fragment{{}}
	}

	key := DistinctKey(doc.Type, doc.ID)
	recs := make([]models.Record, len(frags))
	for i, f := range frags {
		recs[i] = models.Record{
			ObjectID:    ObjectID(doc.Type, doc.ID, i),
			DistinctKey: key,
			Subtitle:    f.Subtitle,
			Content:     f.Content,
			Attributes:  maps.Clone(attrs),
		}
	}
	return Assembly{Indexable: true, Records: recs}, nil
}

func defaultAttributes(doc *models.Document) map[string]interface{} {
	return map[string]interface{}{
		"id":    doc.ID,
		"type":  doc.Type,
		"title": doc.Title,
		"url":   doc.Permalink,
	}
}

// runTransform calls t and converts failures, including panics, into ErrTransform.
func runTransform(t Transform, doc *models.Document) (fields Fields, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s#%s: panic: %v", ErrTransform, doc.Type, doc.ID, r)
		}
	}()
	fields, ok, err = t(doc)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s#%s: %v", ErrTransform, doc.Type, doc.ID, err)
	}
	return fields, ok, nil
}
