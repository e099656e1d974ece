package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gh1989/nethub/internal/backoff"
	"github.com/gh1989/nethub/internal/config"
	"github.com/gh1989/nethub/internal/queue"
	"github.com/gh1989/nethub/internal/store"
	"github.com/gh1989/nethub/internal/store/memory"
	"github.com/gh1989/nethub/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlakyClient(t *testing.T, p queue.RetryPolicy) (*queue.Client, *flakyStore, *memory.Store) {
	t.Helper()
	mem := memory.New()
	fs := newFlakyStore(mem)
	return queue.New(fs, queue.WithLogger(discardLogger()), queue.WithRetryPolicy(p)), fs, mem
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	c, fs, _ := newFlakyClient(t, fastRetry())
	fs.failNext("SetString", errTransient, errTransient)

	j := models.NewJob("Training", 1)
	require.NoError(t, c.EnqueueJob(context.Background(), j))
	assert.Equal(t, 3, fs.callCount("SetString"))

	got, err := c.GetJob(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, j.ID, got.ID)
}

func TestRetry_Exhausted(t *testing.T) {
	c, fs, _ := newFlakyClient(t, fastRetry())
	fs.failNext("GetString", errTransient, errTransient, errTransient, errTransient)

	_, err := c.GetJob(context.Background(), uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, queue.ErrQueueFailure)
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.NotErrorIs(t, err, queue.ErrNotFound)

	var opErr *queue.OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "get", opErr.Op)
	assert.Equal(t, 4, opErr.Attempts)
	assert.Equal(t, 4, fs.callCount("GetString"))
}

func TestRetry_NonTransientNotRetried(t *testing.T) {
	c, fs, _ := newFlakyClient(t, fastRetry())
	fs.failNext("ListRange", errors.New("WRONGTYPE Operation against a key holding the wrong kind of value"))

	_, err := c.GetAllJobs(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, queue.ErrQueueFailure)
	assert.Equal(t, 1, fs.callCount("ListRange"))

	var opErr *queue.OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, 1, opErr.Attempts)
}

func TestRetry_NotFoundNotRetried(t *testing.T) {
	c, fs, _ := newFlakyClient(t, fastRetry())

	_, err := c.GetJob(context.Background(), uuid.New())
	assert.ErrorIs(t, err, queue.ErrNotFound)
	assert.Equal(t, 1, fs.callCount("GetString"))
}

func TestRetry_MalformedBodyIsFailure(t *testing.T) {
	c, _, mem := newFlakyClient(t, fastRetry())
	id := uuid.New()
	require.NoError(t, mem.SetString(context.Background(), queue.DataKey(id), "{not json"))

	_, err := c.GetJob(context.Background(), id)
	assert.ErrorIs(t, err, queue.ErrQueueFailure)
	assert.NotErrorIs(t, err, queue.ErrNotFound)
}

func TestRetry_DequeuePopRetriedWithoutLosingJobs(t *testing.T) {
	c, fs, _ := newFlakyClient(t, fastRetry())
	ctx := context.Background()
	a := models.NewJob("A", 1)
	b := models.NewJob("B", 1)
	require.NoError(t, c.EnqueueJob(ctx, a))
	require.NoError(t, c.EnqueueJob(ctx, b))

	fs.failNext("ListPopOtherEnd", errTransient)
	fs.failNext("SetAdd", errTransient)

	job, err := c.DequeueJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, a.ID, job.ID)
	assert.Equal(t, models.JobStatusRunning, job.Status)

	job, err = c.DequeueJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, b.ID, job.ID)
}

func TestRetry_DequeueExhaustedAfterPop(t *testing.T) {
	c, fs, _ := newFlakyClient(t, fastRetry())
	ctx := context.Background()
	j := models.NewJob("A", 1)
	require.NoError(t, c.EnqueueJob(ctx, j))

	fs.failNext("SetAdd", errTransient, errTransient, errTransient, errTransient)

	job, err := c.DequeueJob(ctx)
	assert.Nil(t, job)
	assert.ErrorIs(t, err, queue.ErrQueueFailure)

	// The id already left the queue; it is not handed out again.
	job, err = c.DequeueJob(ctx)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	c, fs, _ := newFlakyClient(t, queue.RetryPolicy{MaxRetries: 3, Backoff: backoff.NewConstant(time.Minute)})
	fs.failNext("ListPushEnd", errTransient, errTransient)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := c.EnqueueJob(ctx, models.NewJob("A", 1))
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.ErrorIs(t, err, queue.ErrQueueFailure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, fs.callCount("ListPushEnd"))
}

func TestRetry_DefaultPolicy(t *testing.T) {
	p := queue.DefaultRetryPolicy()
	assert.Equal(t, 3, p.MaxRetries)
	assert.Equal(t, 200*time.Millisecond, p.Backoff.Delay(1))
	assert.Equal(t, 400*time.Millisecond, p.Backoff.Delay(2))
	assert.Equal(t, 800*time.Millisecond, p.Backoff.Delay(3))
}

func TestOpError_Message(t *testing.T) {
	err := &queue.OpError{Op: "enqueue", Attempts: 4, Err: errTransient}
	assert.Contains(t, err.Error(), "enqueue")
	assert.Contains(t, err.Error(), "4 attempt")
	assert.ErrorIs(t, err, queue.ErrQueueFailure)
}

func TestRetryPolicyFromConfig(t *testing.T) {
	p := queue.RetryPolicyFromConfig(config.QueueConfig{MaxRetries: 5, RetryBackoff: 100 * time.Millisecond})

	assert.Equal(t, 5, p.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, p.Backoff.Delay(1))
	assert.Equal(t, 400*time.Millisecond, p.Backoff.Delay(3))
	assert.Equal(t, 30*time.Second, p.Backoff.Delay(10))
	assert.Equal(t, 30*time.Second, p.Backoff.Delay(100))
}
