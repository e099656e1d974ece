package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gh1989/nethub/internal/config"
	"github.com/gh1989/nethub/internal/logging"
	"github.com/gh1989/nethub/internal/queue"
	"github.com/gh1989/nethub/internal/store"
	"github.com/gh1989/nethub/pkg/models"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// jobQueue is the slice of the queue client the commands use.
type jobQueue interface {
	EnqueueJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	GetAllJobs(ctx context.Context) ([]*models.Job, error)
	Stats(ctx context.Context) (*queue.Stats, error)
}

type openFunc func(ctx context.Context, redisURL string) (jobQueue, io.Closer, error)

type app struct {
	redisURL string
	open     openFunc
}

func (a *app) connect(ctx context.Context) (jobQueue, io.Closer, error) {
	if a.redisURL == "" {
		return nil, nil, errors.New("--redis-url or REDIS_URL is required")
	}
	return a.open(ctx, a.redisURL)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "nethubctl",
		Short:        "Inspect and feed the NetHub job queue",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.redisURL, "redis-url", os.Getenv("REDIS_URL"), "Redis connection URL")

	root.AddCommand(enqueueCmd(a))
	root.AddCommand(getCmd(a))
	root.AddCommand(listCmd(a))
	root.AddCommand(statsCmd(a))
	return root
}

// openRedis connects with the REDIS_* settings from the environment and the
// URL from the flag. Queue logs go to stderr at warn level so they do not mix
// with command output.
func openRedis(ctx context.Context, redisURL string) (jobQueue, io.Closer, error) {
	rc := config.RedisFromEnv()
	rc.URL = redisURL

	rs, err := store.NewRedisStore(rc)
	if err != nil {
		return nil, nil, fmt.Errorf("create redis store: %w", err)
	}
	if err := rs.Ping(ctx); err != nil {
		rs.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	logger := logging.New(os.Stderr, config.LogConfig{Level: "warn", Format: "text"})
	return queue.New(rs, queue.WithLogger(logger)), rs, nil
}

