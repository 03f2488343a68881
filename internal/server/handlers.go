package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/docsync/internal/indexer"
	"github.com/hyperjump/docsync/internal/models"
	"github.com/hyperjump/docsync/internal/records"
	"github.com/hyperjump/docsync/internal/storage"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	published, err := s.storage.CountByType(ctx, models.StatusPublish)
	if err != nil {
		s.logger.Error("status: count by type failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"documents":           docCount,
		"published_by_type":   published,
		"index":               s.syncer.IndexName(""),
		"indexable_types":     s.syncer.Types(),
		"connection":          s.conn.Status(),
		"running_reindex_job": s.jobs.current(),
	}
	if s.watch != nil {
		resp["watch_directories"] = s.watch.Directories()
	}
	if s.config != nil {
		diskBytes, err := storage.DiskUsageBytes(s.config.Storage.DatabasePath, s.config.Storage.BleveIndexPath)
		if err == nil {
			resp["disk_usage_bytes"] = diskBytes
			resp["disk_usage"] = humanize.Bytes(uint64(diskBytes))
		}
		resp["config"] = map[string]interface{}{
			"provider":         s.config.Index.Provider,
			"content_limit":    s.config.Splitter.ContentLimit,
			"heading_level":    s.config.Splitter.HeadingLevel,
			"page_size":        s.config.Sync.PageSize,
			"database_path":    s.config.Storage.DatabasePath,
			"bleve_index_path": s.config.Storage.BleveIndexPath,
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		_ = s.conn.Check(r.Context())
	}
	s.respondJSON(w, http.StatusOK, s.conn.Status())
}

func (s *Server) handleHookSaved(w http.ResponseWriter, r *http.Request) {
	var ev models.ChangeEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil || ev.DocumentID == "" {
		s.respondError(w, http.StatusBadRequest, "invalid request body: id is required")
		return
	}
	s.syncAndRespond(w, r, ev)
}

func (s *Server) handleSyncDocument(w http.ResponseWriter, r *http.Request) {
	s.syncAndRespond(w, r, models.ChangeEvent{DocumentID: chi.URLParam(r, "id")})
}

func (s *Server) syncAndRespond(w http.ResponseWriter, r *http.Request, ev models.ChangeEvent) {
	s.logger.Debug("sync request", zap.String("id", ev.DocumentID), zap.Bool("autosave", ev.Autosave))
	out, err := s.syncer.SyncDocument(r.Context(), ev)
	if err != nil {
		s.logger.Error("sync failed", zap.String("id", ev.DocumentID), zap.Error(err))
		s.respondJSON(w, statusFor(err), map[string]interface{}{"error": err.Error(), "sync": out})
		return
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleHookDeleted(w http.ResponseWriter, r *http.Request) {
	var ev models.ChangeEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil || ev.DocumentID == "" {
		s.respondError(w, http.StatusBadRequest, "invalid request body: id is required")
		return
	}
	s.deleteAndRespond(w, r, ev.DocumentID)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	s.deleteAndRespond(w, r, chi.URLParam(r, "id"))
}

// deleteAndRespond removes a document's records from the index, then the document itself.
func (s *Server) deleteAndRespond(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	s.logger.Debug("delete document request", zap.String("id", id))
	doc, err := s.storage.GetDocument(ctx, id)
	if err != nil {
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	out, err := s.syncer.Purge(ctx, doc)
	if err != nil {
		s.logger.Error("purge failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	if err := s.storage.DeleteDocument(ctx, id); err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"status": "deleted", "sync": out})
}

func (s *Server) handleUpsertDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var input models.DocumentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.ID == "" || input.Type == "" {
		s.respondError(w, http.StatusBadRequest, "id and type are required")
		return
	}
	doc := input.ToDocument()
	if existing, err := s.storage.GetDocument(ctx, doc.ID); err == nil {
		doc.CreatedAt = existing.CreatedAt
		doc.SourcePath = existing.SourcePath
	} else if !errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Debug("upsert document request", zap.String("id", doc.ID), zap.String("type", doc.Type))
	if err := s.storage.UpsertDocument(ctx, doc); err != nil {
		s.logger.Error("store document failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out, err := s.syncer.SyncDocument(ctx, models.ChangeEvent{DocumentID: doc.ID})
	if err != nil {
		s.logger.Error("sync failed", zap.String("id", doc.ID), zap.Error(err))
		s.respondJSON(w, statusFor(err), map[string]interface{}{"error": err.Error(), "document": doc, "sync": out})
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{"document": doc, "sync": out})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.storage.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, statusFor(err), "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleStartReindex(w http.ResponseWriter, r *http.Request) {
	var req ReindexRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if err := s.conn.Ready(r.Context()); err != nil {
		s.respondError(w, http.StatusServiceUnavailable, indexer.ErrNotConnected.Error()+": "+err.Error())
		return
	}
	job, err := s.jobs.start(req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errJobRunning) {
			status = http.StatusConflict
		}
		s.respondError(w, status, err.Error())
		return
	}
	w.Header().Set("Location", "/api/v1/reindex/"+job.ID)
	s.respondJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleGetReindex(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobs.get(chi.URLParam(r, "jobID"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "job not found")
		return
	}
	s.respondJSON(w, http.StatusOK, job)
}

type clearRequest struct {
	Index string            `json:"index,omitempty"`
	Where map[string]string `json:"where,omitempty"`
}

func (s *Server) handleClearIndex(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	var index string
	var err error
	if len(req.Where) > 0 {
		index, err = s.syncer.DeleteWhere(r.Context(), req.Index, req.Where)
	} else {
		index, err = s.syncer.Clear(r.Context(), req.Index)
	}
	if err != nil {
		s.logger.Error("clear index failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"index": index, "status": "cleared", "where": req.Where})
}

// statusFor maps sync errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, indexer.ErrNotConnected):
		return http.StatusServiceUnavailable
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, indexer.ErrNoIndex), errors.Is(err, indexer.ErrNoIndexableTypes):
		return http.StatusBadRequest
	case errors.Is(err, records.ErrTransform):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
