package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"feedbacktriage/internal/config"
	"feedbacktriage/internal/middleware"
	"feedbacktriage/internal/realtime"
	"feedbacktriage/internal/server"
)

// shutdownTimeout bounds graceful shutdown of both listeners.
const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the realtime feed and the periodic reporter",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg, logger)
	},
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	a, err := buildApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.close()

	var auth *middleware.ReviewerAuth
	if cfg.IsReviewerAuthEnabled() {
		auth, err = middleware.NewReviewerAuth(ctx, cfg.OIDCIssuer, cfg.OIDCClientID, logger)
		if err != nil {
			return err
		}
		logger.Info("reviewer auth enabled", zap.String("issuer", cfg.OIDCIssuer))
	}

	srv := server.New(cfg, logger)
	srv.RegisterRoutes(server.Deps{
		Service:  a.service,
		Reporter: a.reporter,
		Gatherer: a.registry,
		Auth:     auth,
		Features: a.features(),
	})

	ws := realtime.NewServer(cfg.RealtimeAddr,
		realtime.NewHandler(a.hub, logger, splitList(cfg.CORSOrigins)))

	a.reporter.Start(ctx)
	defer a.reporter.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.prompts.Watch(gctx); err != nil {
			logger.Warn("prompt config watcher stopped", zap.Error(err))
		}
		return nil
	})

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		logger.Info("starting realtime server", zap.String("addr", cfg.RealtimeAddr), zap.String("path", realtime.Path))
		if err := ws.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("api server shutdown failed", zap.Error(err))
		}
		if err := ws.Shutdown(shutdownCtx); err != nil {
			logger.Error("realtime server shutdown failed", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
