package models

import "encoding/json"

// Record attribute names shared by every record in the index.
const (
	AttrObjectID    = "objectID"
	AttrDistinctKey = "distinctKey"
	AttrSubtitle    = "subtitle"
	AttrContent     = "content"
)

// Fragment is one size-bounded section of a document's content.
type Fragment struct {
	Subtitle string `json:"subtitle,omitempty"`
	Content  string `json:"content"`
}

// Record is the unit written to the search index. All records of one document
// share a DistinctKey; ObjectID is unique per fragment.
type Record struct {
	ObjectID    string
	DistinctKey string
	Subtitle    string
	Content     string
	Attributes  map[string]interface{}
}

// Flatten returns the record as a single attribute map in the shape stored by the index.
func (r Record) Flatten() map[string]interface{} {
	m := make(map[string]interface{}, len(r.Attributes)+4)
	for k, v := range r.Attributes {
		m[k] = v
	}
	m[AttrObjectID] = r.ObjectID
	m[AttrDistinctKey] = r.DistinctKey
	if r.Subtitle != "" {
		m[AttrSubtitle] = r.Subtitle
	} else {
		delete(m, AttrSubtitle)
	}
	m[AttrContent] = r.Content
	return m
}

// MarshalJSON encodes the record flat, with identity fields next to the attributes.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Flatten())
}

// UnmarshalJSON decodes a flat record.
func (r *Record) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*r = Record{Attributes: map[string]interface{}{}}
	for k, v := range m {
		s, _ := v.(string)
		switch k {
		case AttrObjectID:
			r.ObjectID = s
		case AttrDistinctKey:
			r.DistinctKey = s
		case AttrSubtitle:
			r.Subtitle = s
		case AttrContent:
			r.Content = s
		default:
			r.Attributes[k] = v
		}
	}
	return nil
}
