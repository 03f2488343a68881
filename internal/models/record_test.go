package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_FlattenIdentityWins(t *testing.T) {
	r := Record{
		ObjectID:    "post-42-0",
		DistinctKey: "post#42",
		Content:     "body",
		Attributes: map[string]interface{}{
			"title":       "Hello",
			"objectID":    "spoofed",
			"distinctKey": "spoofed",
			"subtitle":    "stale",
		},
	}
	m := r.Flatten()
	assert.Equal(t, "post-42-0", m["objectID"])
	assert.Equal(t, "post#42", m["distinctKey"])
	assert.Equal(t, "Hello", m["title"])
	assert.Equal(t, "body", m["content"])
	_, hasSubtitle := m["subtitle"]
	assert.False(t, hasSubtitle, "empty subtitle should be omitted")
}

func TestRecord_JSONRoundTrip(t *testing.T) {
	in := Record{
		ObjectID:    "page-7-1",
		DistinctKey: "page#7",
		Subtitle:    "Details",
		Content:     "text",
		Attributes:  map[string]interface{}{"url": "https://example.com/7"},
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"objectID":"page-7-1"`)

	var out Record
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestDocumentInput_ToDocumentDefaultsStatus(t *testing.T) {
	in := &DocumentInput{ID: "1", Type: "post", Content: "<p>x</p>"}
	doc := in.ToDocument()
	assert.Equal(t, StatusPublish, doc.Status)
	assert.True(t, doc.IsPublished())
	assert.False(t, doc.IsRevision())
}
