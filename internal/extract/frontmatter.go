package extract

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/docsync/internal/models"
)

const (
	yamlDelim = "---"
	tomlDelim = "+++"
)

// splitFrontMatter separates a leading front-matter block from the body. Content without
// a block yields empty metadata and the whole content as body.
func splitFrontMatter(content []byte) (map[string]interface{}, []byte, error) {
	content = bytes.TrimPrefix(content, []byte("\ufeff"))
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))

	var delim string
	switch {
	case bytes.HasPrefix(normalized, []byte(yamlDelim+"\n")):
		delim = yamlDelim
	case bytes.HasPrefix(normalized, []byte(tomlDelim+"\n")):
		delim = tomlDelim
	default:
		return map[string]interface{}{}, content, nil
	}

	rest := normalized[len(delim)+1:]
	var block, body []byte
	if bytes.HasPrefix(rest, []byte(delim+"\n")) || bytes.Equal(rest, []byte(delim)) {
		body = bytes.TrimPrefix(bytes.TrimPrefix(rest, []byte(delim)), []byte("\n"))
	} else {
		end := bytes.Index(rest, []byte("\n"+delim+"\n"))
		if end >= 0 {
			block, body = rest[:end], rest[end+len(delim)+2:]
		} else if bytes.HasSuffix(rest, []byte("\n"+delim)) {
			block = rest[:len(rest)-len(delim)-1]
		} else {
			return nil, nil, fmt.Errorf("unterminated front matter: missing closing %q", delim)
		}
	}

	meta := map[string]interface{}{}
	if len(bytes.TrimSpace(block)) > 0 {
		var err error
		if delim == yamlDelim {
			err = yaml.Unmarshal(block, &meta)
		} else {
			err = toml.Unmarshal(block, &meta)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("parse front matter: %w", err)
		}
	}
	return meta, body, nil
}

// documentFromMeta maps well-known front-matter keys onto a document. Unknown keys become
// custom attributes.
func documentFromMeta(meta map[string]interface{}) (*models.Document, error) {
	doc := &models.Document{Status: models.StatusPublish}
	attrs := map[string]interface{}{}
	for key, v := range meta {
		var err error
		switch strings.ToLower(key) {
		case "id":
			doc.ID, err = cast.ToStringE(v)
		case "type":
			doc.Type, err = cast.ToStringE(v)
		case "title":
			doc.Title, err = cast.ToStringE(v)
		case "status":
			doc.Status, err = cast.ToStringE(v)
		case "draft":
			var draft bool
			if draft, err = cast.ToBoolE(v); err == nil && draft {
				doc.Status = models.StatusDraft
			}
		case "permalink", "url":
			doc.Permalink, err = cast.ToStringE(v)
		case "author":
			doc.Author, err = cast.ToStringE(v)
		case "excerpt", "description", "summary":
			doc.Excerpt, err = cast.ToStringE(v)
		case "revision_of":
			doc.RevisionOf, err = cast.ToStringE(v)
		case "tags":
			doc.Tags, err = toStrings(v)
		case "date", "published_at":
			doc.PublishedAt, err = toTime(v)
		case "updated", "updated_at", "lastmod":
			doc.UpdatedAt, err = toTime(v)
		default:
			attrs[key] = v
		}
		if err != nil {
			return nil, fmt.Errorf("front matter %q: %w", key, err)
		}
	}
	if doc.Status == "" {
		doc.Status = models.StatusPublish
	}
	if len(attrs) > 0 {
		doc.Attributes = attrs
	}
	return doc, nil
}

// toStrings accepts a list or a comma-separated string.
func toStrings(v interface{}) ([]string, error) {
	if s, ok := v.(string); ok {
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	}
	return cast.ToStringSliceE(v)
}

func toTime(v interface{}) (time.Time, error) {
	t, err := cast.ToTimeE(v)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
