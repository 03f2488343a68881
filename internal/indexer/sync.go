package indexer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/docsync/internal/models"
	"github.com/hyperjump/docsync/internal/records"
	"github.com/hyperjump/docsync/internal/storage"
)

// State is a step in the lifecycle of one change event.
type State string

const (
	StateReceived  State = "received"
	StateEvaluated State = "evaluated"
	StateSkipped   State = "skipped"
	StateDeleted   State = "deleted"
	StateReplaced  State = "replaced"
)

// Outcome describes what a sync did for one document.
type Outcome struct {
	DocumentID  string `json:"document_id"`
	DistinctKey string `json:"distinct_key,omitempty"`
	Index       string `json:"index,omitempty"`
	State       State  `json:"state"`
	Reason      string `json:"reason,omitempty"`
	Records     int    `json:"records"`
}

func (o Outcome) skip(reason string) Outcome {
	o.State = StateSkipped
	o.Reason = reason
	return o
}

func (s *Syncer) trace(o Outcome) {
	s.logger.Debug("sync state",
		zap.String("document_id", o.DocumentID),
		zap.String("distinct_key", o.DistinctKey),
		zap.String("state", string(o.State)),
		zap.String("reason", o.Reason),
	)
}

// SyncDocument reconciles the index with the current version of one document.
// Ineligible events are skipped without remote calls. Otherwise every record of the
// document is deleted first and, when the document is published and indexable, the
// new record set is written. A document is never written without that delete.
func (s *Syncer) SyncDocument(ctx context.Context, ev models.ChangeEvent) (Outcome, error) {
	out := Outcome{DocumentID: ev.DocumentID, State: StateReceived}
	s.trace(out)
	defer func() { s.trace(out) }()

	if ev.Autosave {
		out = out.skip("autosave")
		return out, nil
	}
	doc, err := s.source.GetDocument(ctx, ev.DocumentID)
	if errors.Is(err, storage.ErrNotFound) {
		out = out.skip("document not found")
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("load document %s: %w", ev.DocumentID, err)
	}
	out.DistinctKey = records.DistinctKey(doc.Type, doc.ID)
	if doc.IsRevision() {
		out = out.skip("revision")
		return out, nil
	}
	index := s.IndexName("")
	if index == "" {
		s.logger.Warn("sync skipped: no index name configured", zap.String("document_id", doc.ID))
		out = out.skip("no index configured")
		return out, nil
	}
	out.Index = index
	if err := s.conn.Ready(ctx); err != nil {
		s.logger.Warn("sync skipped: search index not connected", zap.String("document_id", doc.ID), zap.Error(err))
		out = out.skip("index not connected")
		return out, nil
	}
	if !s.indexable(doc.Type) {
		out = out.skip("type not indexable")
		return out, nil
	}
	out.State = StateEvaluated
	s.trace(out)

	var recs []models.Record
	var assembleErr error
	if doc.IsPublished() {
		assembly, err := s.assembler.Assemble(doc)
		if err != nil {
			assembleErr = err
		} else if assembly.Indexable {
			recs = assembly.Records
		}
	}

	if err := s.replace(ctx, s.conn.Client(), index, []string{out.DistinctKey}, recs, true); err != nil {
		s.logger.Error("sync failed", zap.String("distinct_key", out.DistinctKey), zap.Error(err))
		return out, fmt.Errorf("sync %s: %w", out.DistinctKey, err)
	}
	out.Records = len(recs)
	if len(recs) > 0 {
		out.State = StateReplaced
	} else {
		out.State = StateDeleted
	}
	if assembleErr != nil {
		s.logger.Warn("document removed from index: assembly failed", zap.String("distinct_key", out.DistinctKey), zap.Error(assembleErr))
		return out, assembleErr
	}
	s.logger.Info("document synced",
		zap.String("distinct_key", out.DistinctKey),
		zap.String("state", string(out.State)),
		zap.Int("records", out.Records),
	)
	return out, nil
}

// Purge removes every record of a document that is about to be deleted from the host store.
// Like SyncDocument it skips quietly when the index is not connected.
func (s *Syncer) Purge(ctx context.Context, doc *models.Document) (Outcome, error) {
	out := Outcome{DocumentID: doc.ID, DistinctKey: records.DistinctKey(doc.Type, doc.ID), State: StateReceived}
	if doc.IsRevision() {
		return out.skip("revision"), nil
	}
	index := s.IndexName("")
	if index == "" {
		s.logger.Warn("purge skipped: no index name configured", zap.String("document_id", doc.ID))
		return out.skip("no index configured"), nil
	}
	out.Index = index
	if err := s.conn.Ready(ctx); err != nil {
		s.logger.Warn("purge skipped: search index not connected", zap.String("document_id", doc.ID), zap.Error(err))
		return out.skip("index not connected"), nil
	}
	if err := s.replace(ctx, s.conn.Client(), index, []string{out.DistinctKey}, nil, true); err != nil {
		return out, fmt.Errorf("purge %s: %w", out.DistinctKey, err)
	}
	out.State = StateDeleted
	s.trace(out)
	return out, nil
}
