package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/parisxmas/crowdtest/internal/handler"
	"github.com/parisxmas/crowdtest/internal/router"
	"github.com/parisxmas/crowdtest/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the result submission endpoint",
	Long: `Starts the HTTP server. Submissions are accepted on /api/submit (and
/submit.php for older pages) and written to the results directory. With
--static-dir the crowd-testing page is served from the same origin.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config, :8080)")
	serveCmd.Flags().String("results-dir", "", "directory for result files (default from config, results)")
	serveCmd.Flags().String("static-dir", "", "serve the crowd-testing site from this directory")
}

func runServe(cmd *cobra.Command, args []string) error {
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		cfg.HTTPAddr = v
	}
	if v, _ := cmd.Flags().GetString("results-dir"); v != "" {
		cfg.ResultsDir = v
	}
	if v, _ := cmd.Flags().GetString("static-dir"); v != "" {
		cfg.StaticDir = v
	}

	store := storage.NewStore(cfg.ResultsDir)
	subH := handler.NewSubmissionHandler(store, cfg.MaxBodyBytes, logger.Named("submit"))
	r := router.New(logger.Named("http"), subH, cfg.StaticDir)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("crowdtest server starting",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("results_dir", cfg.ResultsDir),
			zap.String("static_dir", cfg.StaticDir),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
