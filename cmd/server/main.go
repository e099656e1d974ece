// Package main is the entrypoint for the NetHub producer API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gh1989/nethub/internal/api"
	"github.com/gh1989/nethub/internal/api/handler"
	mw "github.com/gh1989/nethub/internal/api/middleware"
	"github.com/gh1989/nethub/internal/config"
	"github.com/gh1989/nethub/internal/logging"
	"github.com/gh1989/nethub/internal/metrics"
	"github.com/gh1989/nethub/internal/queue"
	"github.com/gh1989/nethub/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup(os.Stdout, cfg.Log)
	logger.Info("config loaded", "env", cfg.Server.Env, "auth_enabled", cfg.Server.APIKeyHash != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to Redis
	rs, err := store.NewRedisStore(cfg.Redis)
	if err != nil {
		return fmt.Errorf("create redis store: %w", err)
	}
	defer rs.Close()

	if err := rs.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("redis connected")

	// 3. Queue client and metrics
	metrics.MustRegister()
	q := queue.New(rs,
		queue.WithLogger(logger),
		queue.WithRetryPolicy(queue.RetryPolicyFromConfig(cfg.Queue)),
	)

	// 4. Build router with dependencies
	deps := api.Dependencies{
		Auth:           mw.NewAuth(cfg.Server.APIKeyHash),
		RateLimit:      mw.NewRateLimit(rs, cfg.Server.RateLimitPerMin),
		AllowedOrigins: cfg.Server.AllowedOrigins,

		HealthHandler:    handler.NewHealthHandler(rs),
		CreateJobHandler: handler.NewCreateJobHandler(q, cfg.Queue.MaxJobDuration),
		GetJobHandler:    handler.NewGetJobHandler(q),
		ListJobsHandler:  handler.NewListJobsHandler(q),
		StatsHandler:     handler.NewStatsHandler(q),
		MetricsHandler:   metrics.Handler(),
	}

	router := api.NewRouter(deps)

	// 5. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
