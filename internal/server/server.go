// Package server provides the admin HTTP API for docsync: change hooks, document
// management, reindex jobs and index maintenance.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/docsync/internal/config"
	"github.com/hyperjump/docsync/internal/indexer"
	"github.com/hyperjump/docsync/internal/runlock"
	"github.com/hyperjump/docsync/internal/searchindex"
	"github.com/hyperjump/docsync/internal/storage"
)

// WatchService reports the export directories being watched.
type WatchService interface {
	Directories() []string
}

// Server is the HTTP server for the docsync API.
type Server struct {
	syncer  *indexer.Syncer
	storage storage.Storage
	conn    *searchindex.Connection
	config  *config.Config
	watch   WatchService
	jobs    *jobManager
	logger  *zap.Logger
	server  *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithWatcher reports the given watcher's directories in the status endpoint.
func WithWatcher(w WatchService) Option {
	return func(s *Server) { s.watch = w }
}

// NewServer creates a server with the given dependencies. lock guards reindex jobs
// against concurrent runs from other processes; it may be nil.
func NewServer(
	syncer *indexer.Syncer,
	store storage.Storage,
	conn *searchindex.Connection,
	cfg *config.Config,
	lock *runlock.Lock,
	opts ...Option,
) *Server {
	s := &Server{
		syncer:  syncer,
		storage: store,
		conn:    conn,
		config:  cfg,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.jobs = newJobManager(syncer, lock, s.logger)
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/connection", s.handleConnection)

		r.Post("/hooks/saved", s.handleHookSaved)
		r.Post("/hooks/deleted", s.handleHookDeleted)

		r.Post("/documents", s.handleUpsertDocument)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Delete("/documents/{id}", s.handleDeleteDocument)
		r.Post("/documents/{id}/sync", s.handleSyncDocument)

		r.Post("/reindex", s.handleStartReindex)
		r.Get("/reindex/{jobID}", s.handleGetReindex)

		r.Post("/index/clear", s.handleClearIndex)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Address()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server and cancels a running reindex job.
func (s *Server) Stop(ctx context.Context) error {
	s.jobs.shutdown()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
