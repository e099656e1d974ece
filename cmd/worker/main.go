// Package main is the entrypoint for the NetHub worker process. It runs
// WORKER_CONCURRENCY consumption loops against one queue client and serves
// Prometheus metrics on WORKER_METRICS_PORT.
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

	"github.com/gh1989/nethub/internal/config"
	"github.com/gh1989/nethub/internal/logging"
	"github.com/gh1989/nethub/internal/metrics"
	"github.com/gh1989/nethub/internal/queue"
	"github.com/gh1989/nethub/internal/store"
	"github.com/gh1989/nethub/internal/worker"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup(os.Stdout, cfg.Log)
	logger.Info("config loaded",
		"env", cfg.Server.Env,
		"concurrency", cfg.Worker.Concurrency,
		"time_unit", cfg.Worker.TimeUnit.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rs, err := store.NewRedisStore(cfg.Redis)
	if err != nil {
		return fmt.Errorf("create redis store: %w", err)
	}
	defer rs.Close()

	if err := rs.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("redis connected")

	metrics.MustRegister()
	q := queue.New(rs,
		queue.WithLogger(logger),
		queue.WithRetryPolicy(queue.RetryPolicyFromConfig(cfg.Queue)),
	)

	g, gctx := errgroup.WithContext(ctx)

	for i := 1; i <= cfg.Worker.Concurrency; i++ {
		w := newWorker(q, cfg.Worker, logger, fmt.Sprintf("worker-%d", i))
		g.Go(func() error { return w.Run(gctx) })
	}

	if cfg.Worker.MetricsPort > 0 {
		srv := metricsServer(cfg.Worker.MetricsPort)
		g.Go(func() error {
			logger.Info("metrics listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("workers stopped gracefully")
	return nil
}

func newWorker(q worker.JobQueue, cfg config.WorkerConfig, logger *slog.Logger, name string) *worker.Worker {
	return worker.New(q,
		worker.WithExecutor(worker.Simulator{Unit: cfg.TimeUnit}),
		worker.WithIdleWait(cfg.IdleWait),
		worker.WithFinalizeTimeout(cfg.FinalizeTimeout),
		worker.WithLogger(logger),
		worker.WithName(name),
	)
}

func metricsServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
