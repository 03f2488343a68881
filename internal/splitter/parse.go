package splitter

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// unit is one block of content. level is 1-6 for headings and 0 otherwise.
type unit struct {
	level int
	text  string
}

var droppedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Iframe:   true,
	atom.Svg:      true,
	atom.Head:     true,
	atom.Object:   true,
}

// containers are descended into when they hold block children.
var containers = map[atom.Atom]bool{
	atom.Body:    true,
	atom.Div:     true,
	atom.Section: true,
	atom.Article: true,
	atom.Main:    true,
	atom.Header:  true,
	atom.Footer:  true,
	atom.Aside:   true,
	atom.Nav:     true,
	atom.Html:    true,
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Ul: true, atom.Ol: true, atom.Li: true, atom.Dl: true, atom.Dt: true, atom.Dd: true,
	atom.Div: true, atom.Section: true, atom.Article: true, atom.Main: true, atom.Header: true,
	atom.Footer: true, atom.Aside: true, atom.Nav: true, atom.Blockquote: true, atom.Pre: true,
	atom.Table: true, atom.Tr: true, atom.Td: true, atom.Th: true, atom.Figure: true,
	atom.Figcaption: true, atom.Hr: true, atom.Address: true, atom.Details: true,
	atom.Summary: true, atom.Form: true, atom.Fieldset: true,
}

// units sanitizes content and flattens it into block-level units. Unparseable
// input degrades to plain text.
func (s *Splitter) units(content string) []unit {
	content = normalizeNewlines(content)
	if strings.TrimSpace(content) == "" {
		return nil
	}
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(content), ctx)

	var units []unit
	if err != nil {
		if text := collapse(stripTags(content)); text != "" {
			units = []unit{{text: text}}
		}
	} else {
		units = collectUnits(nil, nodes)
	}
	if s.asciiOnly {
		for i := range units {
			units[i].text = toASCII(units[i].text)
		}
	}
	return units
}

// collectUnits appends the units of a sibling sequence. Runs of inline nodes are merged into one paragraph.
func collectUnits(units []unit, nodes []*html.Node) []unit {
	var inline strings.Builder
	flushInline := func() {
		if text := collapse(inline.String()); text != "" {
			units = append(units, unit{text: text})
		}
		inline.Reset()
	}

	for _, n := range nodes {
		switch n.Type {
		case html.TextNode:
			inline.WriteString(n.Data)
		case html.ElementNode:
			if droppedElements[n.DataAtom] {
				continue
			}
			if !blockElements[n.DataAtom] && !containers[n.DataAtom] {
				if n.DataAtom == atom.Br {
					inline.WriteByte(' ')
				} else {
					writeText(&inline, n)
				}
				continue
			}
			flushInline()
			units = blockUnits(units, n)
		}
	}
	flushInline()
	return units
}

func blockUnits(units []unit, n *html.Node) []unit {
	if level := headingLevel(n.DataAtom); level > 0 {
		if text := collapse(textContent(n)); text != "" {
			units = append(units, unit{level: level, text: text})
		}
		return units
	}
	switch n.DataAtom {
	case atom.Ul, atom.Ol:
		if text := listText(n); text != "" {
			units = append(units, unit{text: text})
		}
		return units
	}
	if containers[n.DataAtom] && hasBlockChild(n) {
		return collectUnits(units, children(n))
	}
	if text := collapse(textContent(n)); text != "" {
		units = append(units, unit{text: text})
	}
	return units
}

// listText renders list items as " - a\n - b".
func listText(n *html.Node) string {
	var items []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Li {
			continue
		}
		if text := collapse(textContent(c)); text != "" {
			items = append(items, text)
		}
	}
	if len(items) == 0 {
		return ""
	}
	return " - " + strings.Join(items, "\n - ")
}

func headingLevel(a atom.Atom) int {
	switch a {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	case atom.H6:
		return 6
	}
	return 0
}

func hasBlockChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (blockElements[c.DataAtom] || containers[c.DataAtom]) {
			return true
		}
	}
	return false
}

func children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func textContent(n *html.Node) string {
	var b strings.Builder
	writeText(&b, n)
	return b.String()
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if droppedElements[n.DataAtom] {
			return
		}
		if n.DataAtom == atom.Br || blockElements[n.DataAtom] {
			b.WriteByte(' ')
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if n.Type == html.ElementNode && blockElements[n.DataAtom] {
		b.WriteByte(' ')
	}
}

// stripTags returns the text tokens of content, skipping script and style bodies.
func stripTags(content string) string {
	z := html.NewTokenizer(strings.NewReader(content))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			name, _ := z.TagName()
			if droppedElements[atom.Lookup(name)] {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if droppedElements[atom.Lookup(name)] && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}
