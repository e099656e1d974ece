package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/gh1989/nethub/internal/queue"
	"github.com/gh1989/nethub/internal/store"
	"github.com/gh1989/nethub/pkg/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/sync/errgroup"
)

func newRedisClient(t *testing.T) *queue.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	endpoint, err := container.PortEndpoint(ctx, "6379/tcp", "redis")
	require.NoError(t, err)

	opts, err := redis.ParseURL(endpoint)
	require.NoError(t, err)
	opts.PoolSize = 50
	rs := store.NewRedisStoreFromClient(redis.NewClient(opts))
	t.Cleanup(func() { rs.Close() })
	require.NoError(t, rs.Ping(ctx))

	return queue.New(rs, queue.WithLogger(discardLogger()), queue.WithRetryPolicy(fastRetry()))
}

func TestRedisQueue_Lifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	c := newRedisClient(t)
	ctx := context.Background()

	a := models.NewJob("A", 1)
	b := models.NewJob("B", 2)
	require.NoError(t, c.EnqueueJob(ctx, a))
	require.NoError(t, c.EnqueueJob(ctx, b))

	queued, err := c.GetAllJobs(ctx)
	require.NoError(t, err)
	require.Len(t, queued, 2)
	assert.Equal(t, b.ID, queued[0].ID)
	assert.Equal(t, a.ID, queued[1].ID)

	job, err := c.DequeueJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, a.ID, job.ID)
	assert.Equal(t, models.JobStatusRunning, job.Status)

	require.NoError(t, c.UpdateJobStatus(ctx, a.ID, models.JobStatusFailed))

	st, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, queue.Stats{Queued: 1, Processing: 0, Failed: 1}, *st)

	got, err := c.GetJob(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.ErrorIs(t, c.UpdateJobStatus(ctx, a.ID, models.JobStatusCompleted), queue.ErrInvalidTransition)
}

func TestRedisQueue_ConcurrentDequeueIsDistinct(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	c := newRedisClient(t)
	ctx := context.Background()

	const jobs = 25
	for i := 0; i < jobs; i++ {
		require.NoError(t, c.EnqueueJob(ctx, models.NewJob("Simulation", 1)))
	}

	results := make([]*models.Job, 40)
	var g errgroup.Group
	for i := range results {
		g.Go(func() error {
			j, err := c.DequeueJob(ctx)
			results[i] = j
			return err
		})
	}
	require.NoError(t, g.Wait())

	seen := make(map[string]bool)
	for _, j := range results {
		if j == nil {
			continue
		}
		assert.False(t, seen[j.ID.String()], "job %s handed out twice", j.ID)
		seen[j.ID.String()] = true
	}
	assert.Len(t, seen, jobs)
}
