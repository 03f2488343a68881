package indexer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/docsync/internal/models"
	"github.com/hyperjump/docsync/internal/records"
	"github.com/hyperjump/docsync/internal/searchindex"
	"github.com/hyperjump/docsync/internal/splitter"
	"github.com/hyperjump/docsync/internal/storage"
)

type call struct {
	Op      string
	Index   string
	Arg     string
	Records []models.Record
}

// recordingClient records every remote call in order.
type recordingClient struct {
	mu         sync.Mutex
	calls      []call
	upserts    int
	failUpsert map[int]bool
	failDelete error
	verifyErr  error
	onUpsert   func(n int)
}

func (c *recordingClient) Name() string { return "recording" }

func (c *recordingClient) add(cl call) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, cl)
}

func (c *recordingClient) Upsert(ctx context.Context, index string, recs []models.Record) error {
	c.mu.Lock()
	c.upserts++
	n := c.upserts
	fail := c.failUpsert[n]
	hook := c.onUpsert
	c.mu.Unlock()
	c.add(call{Op: "upsert", Index: index, Records: recs})
	if hook != nil {
		hook(n)
	}
	if fail {
		return fmt.Errorf("upsert %d: service unavailable", n)
	}
	return nil
}

func (c *recordingClient) DeleteByFilter(ctx context.Context, index, filter string) error {
	c.add(call{Op: "delete_by_filter", Index: index, Arg: filter})
	return c.failDelete
}

func (c *recordingClient) DeleteByIDs(ctx context.Context, index string, ids []string) error {
	c.add(call{Op: "delete_by_ids", Index: index})
	return nil
}

func (c *recordingClient) Clear(ctx context.Context, index string) error {
	c.add(call{Op: "clear", Index: index})
	return nil
}

func (c *recordingClient) SetSettings(ctx context.Context, index string, s searchindex.Settings) error {
	c.add(call{Op: "set_settings", Index: index})
	return nil
}

func (c *recordingClient) Verify(ctx context.Context) error { return c.verifyErr }
func (c *recordingClient) Close() error                     { return nil }

func (c *recordingClient) ops() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	for i, cl := range c.calls {
		out[i] = cl.Op
	}
	return out
}

func (c *recordingClient) byOp(op string) []call {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []call
	for _, cl := range c.calls {
		if cl.Op == op {
			out = append(out, cl)
		}
	}
	return out
}

// memSource is an in-memory storage.Source ordered by ID.
type memSource struct {
	mu   sync.Mutex
	docs map[string]*models.Document
	err  error
}

func newMemSource(docs ...*models.Document) *memSource {
	s := &memSource{docs: make(map[string]*models.Document)}
	for _, d := range docs {
		s.put(d)
	}
	return s
}

func (s *memSource) put(d *models.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[d.ID] = d
}

func (s *memSource) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	cp := *d
	return &cp, nil
}

func (s *memSource) QueryDocuments(ctx context.Context, q storage.Query) ([]*models.Document, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, 0, s.err
	}
	types := map[string]bool{}
	for _, t := range q.Types {
		types[t] = true
	}
	var match []*models.Document
	for _, d := range s.docs {
		if d.IsRevision() || (len(types) > 0 && !types[d.Type]) || (q.Status != "" && d.Status != q.Status) {
			continue
		}
		match = append(match, d)
	}
	sort.Slice(match, func(i, j int) bool { return match[i].ID < match[j].ID })
	total := len(match)
	start := q.Offset()
	if start >= total {
		return nil, total, nil
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}
	return match[start:end], total, nil
}

var errQuery = errors.New("store offline")

func newTestSyncer(src storage.Source, client searchindex.Client, cfg Config) *Syncer {
	if cfg.Index == "" {
		cfg.Index = "docs"
	}
	if cfg.Types == nil {
		cfg.Types = []string{"post", "page"}
	}
	assembler := records.NewAssembler(records.NewDefaultRegistry(nil), splitter.New())
	return NewSyncer(src, searchindex.NewConnection(client, nil), assembler, cfg)
}

type progressLog struct {
	mu       sync.Mutex
	total    int
	advances []int
}

func (p *progressLog) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
}

func (p *progressLog) Advance(processed, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advances = append(p.advances, processed)
}
