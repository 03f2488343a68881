// Package splitter breaks HTML-like document content into ordered, size-bounded fragments.
package splitter

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/docsync/internal/models"
)

const (
	// DefaultLimit is the default fragment size in characters.
	DefaultLimit = 2000
	// DefaultHeadingLevel is the heading level that starts a new section.
	DefaultHeadingLevel = 2

	partSeparator = "\n\n"
)

// Splitter splits content into fragments. A Splitter is immutable and safe for concurrent use.
type Splitter struct {
	limit        int
	headingLevel int
	asciiOnly    bool
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithLimit sets the maximum fragment content length in characters. Non-positive values are ignored.
func WithLimit(limit int) Option {
	return func(s *Splitter) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

// WithHeadingLevel sets the heading level (1-6) treated as a section boundary.
func WithHeadingLevel(level int) Option {
	return func(s *Splitter) {
		if level >= 1 && level <= 6 {
			s.headingLevel = level
		}
	}
}

// WithASCIIOnly transliterates fragment text to ASCII.
func WithASCIIOnly(enabled bool) Option {
	return func(s *Splitter) { s.asciiOnly = enabled }
}

// New creates a splitter with defaults overridden by opts.
func New(opts ...Option) *Splitter {
	s := &Splitter{limit: DefaultLimit, headingLevel: DefaultHeadingLevel}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Limit returns the configured fragment size.
func (s *Splitter) Limit() int { return s.limit }

// ParseHeadingLevel converts a tag name such as "h2" to its level.
func ParseHeadingLevel(tag string) (int, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0'), nil
	}
	return 0, fmt.Errorf("invalid heading level %q", tag)
}

// Split returns the fragments of content in document order. Empty content yields no fragments.
// Every fragment's content is at most Limit characters unless a single block alone is longer.
func (s *Splitter) Split(content string) []models.Fragment {
	units := s.units(content)
	if len(units) == 0 {
		return nil
	}

	var out []models.Fragment
	buf := &buffer{}
	flush := func(subtitle string) {
		if !buf.empty() {
			out = append(out, buf.fragment())
		}
		buf = &buffer{subtitle: subtitle}
	}

	for _, u := range units {
		if u.level == s.headingLevel {
			flush(u.text)
			continue
		}
		if len(buf.parts) > 0 && buf.lenWith(u.text) > s.limit {
			flush("")
		}
		buf.add(u.text)
		if buf.length > s.limit {
			flush("")
		}
	}
	flush("")
	return out
}

type buffer struct {
	subtitle string
	parts    []string
	length   int
}

func (b *buffer) empty() bool {
	return b.subtitle == "" && len(b.parts) == 0
}

func (b *buffer) lenWith(text string) int {
	n := utf8.RuneCountInString(text)
	if len(b.parts) > 0 {
		n += len(partSeparator)
	}
	return b.length + n
}

func (b *buffer) add(text string) {
	b.length = b.lenWith(text)
	b.parts = append(b.parts, text)
}

// fragment renders the buffer. A section with a heading but no body keeps the heading as its content.
func (b *buffer) fragment() models.Fragment {
	if len(b.parts) == 0 {
		return models.Fragment{Subtitle: b.subtitle, Content: b.subtitle}
	}
	return models.Fragment{Subtitle: b.subtitle, Content: strings.Join(b.parts, partSeparator)}
}
