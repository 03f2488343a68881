package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/docsync/internal/server"
	"github.com/hyperjump/docsync/internal/watcher"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *globalOptions) *cobra.Command {
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and watch export directories",
		Long: `Start the admin HTTP API (change hooks, documents, reindex jobs) and, unless
--no-watch is given, import and sync files written to the configured export directories.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts, noWatch)
		},
	}

	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not watch export directories")

	return cmd
}

func runServe(ctx context.Context, opts *globalOptions, noWatch bool) error {
	comps, err := opts.setup()
	if err != nil {
		return err
	}
	defer comps.Close()
	cfg, logger := comps.cfg, comps.logger

	if err := comps.conn.Check(ctx); err != nil {
		logger.Warn("starting without a search index connection; syncs will be skipped", zap.Error(err))
	}

	srvOpts := []server.Option{server.WithLogger(logger)}
	if !noWatch && len(cfg.Watch.Directories) > 0 {
		w := watcher.New(
			cfg.Watch.Directories,
			cfg.Watch.Extensions,
			cfg.Watch.RecursiveOrDefault(),
			comps.importer,
			watcher.WithLogger(logger),
		)
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
		go w.SyncExistingFiles()
		srvOpts = append(srvOpts, server.WithWatcher(w))
		logger.Info("watching export directories", zap.Strings("directories", w.Directories()))
	}

	srv := server.NewServer(comps.syncer, comps.store, comps.conn, cfg, comps.lock, srvOpts...)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
