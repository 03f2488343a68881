package searchindex

import (
	"fmt"
	"sort"
	"strings"
)

// Filter operators.
const (
	OpOr  = "OR"
	OpAnd = "AND"
)

// CreateFilter returns attr:"value" with quotes and backslashes escaped.
func CreateFilter(attr, value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `"`, `\"`)
	return attr + `:"` + value + `"`
}

// ChainFilters joins one filter per value with op. Duplicate values are kept once, in order.
func ChainFilters(attr string, values []string, op string) string {
	seen := make(map[string]bool, len(values))
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		parts = append(parts, CreateFilter(attr, v))
	}
	return strings.Join(parts, " "+op+" ")
}

// MapIntoFilters joins attr:"value" filters for each entry with op, sorted by attribute.
func MapIntoFilters(m map[string]string, op string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, CreateFilter(k, m[k]))
	}
	return strings.Join(parts, " "+op+" ")
}

// Term is one attr:"value" comparison.
type Term struct {
	Attr  string
	Value string
}

// Expr is a flat filter expression: terms joined by a single operator.
type Expr struct {
	Op    string
	Terms []Term
}

// ParseFilter parses the expressions produced by CreateFilter, ChainFilters and
// MapIntoFilters. Mixing OR and AND is not supported.
func ParseFilter(s string) (Expr, error) {
	var expr Expr
	p := &filterParser{in: s}
	for {
		p.skipSpace()
		if p.done() {
			break
		}
		if len(expr.Terms) > 0 {
			op, err := p.operator()
			if err != nil {
				return Expr{}, err
			}
			if expr.Op != "" && expr.Op != op {
				return Expr{}, fmt.Errorf("%w: mixed operators in %q", ErrInvalidFilter, s)
			}
			expr.Op = op
			p.skipSpace()
		}
		term, err := p.term()
		if err != nil {
			return Expr{}, err
		}
		expr.Terms = append(expr.Terms, term)
	}
	if len(expr.Terms) == 0 {
		return Expr{}, fmt.Errorf("%w: empty filter", ErrInvalidFilter)
	}
	if expr.Op == "" {
		expr.Op = OpAnd
	}
	return expr, nil
}

type filterParser struct {
	in  string
	pos int
}

func (p *filterParser) done() bool { return p.pos >= len(p.in) }

func (p *filterParser) skipSpace() {
	for !p.done() && p.in[p.pos] == ' ' {
		p.pos++
	}
}

func (p *filterParser) operator() (string, error) {
	for _, op := range []string{OpOr, OpAnd} {
		if strings.HasPrefix(p.in[p.pos:], op+" ") {
			p.pos += len(op)
			return op, nil
		}
	}
	return "", fmt.Errorf("%w: expected operator at %d in %q", ErrInvalidFilter, p.pos, p.in)
}

func (p *filterParser) term() (Term, error) {
	colon := strings.IndexByte(p.in[p.pos:], ':')
	if colon <= 0 {
		return Term{}, fmt.Errorf("%w: expected attribute at %d in %q", ErrInvalidFilter, p.pos, p.in)
	}
	attr := p.in[p.pos : p.pos+colon]
	if strings.ContainsAny(attr, ` "`) {
		return Term{}, fmt.Errorf("%w: bad attribute %q", ErrInvalidFilter, attr)
	}
	p.pos += colon + 1
	if p.done() || p.in[p.pos] != '"' {
		return Term{}, fmt.Errorf("%w: expected quoted value at %d in %q", ErrInvalidFilter, p.pos, p.in)
	}
	p.pos++
	var b strings.Builder
	for !p.done() {
		c := p.in[p.pos]
		switch {
		case c == '\\' && p.pos+1 < len(p.in):
			b.WriteByte(p.in[p.pos+1])
			p.pos += 2
		case c == '"':
			p.pos++
			return Term{Attr: attr, Value: b.String()}, nil
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return Term{}, fmt.Errorf("%w: unterminated value in %q", ErrInvalidFilter, p.in)
}
