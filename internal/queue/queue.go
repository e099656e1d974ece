// Package queue implements the job queue client on top of a store.Store.
//
// Layout on the store:
//
//	jobs:queue       list of pending ids, LPUSH on enqueue, RPOP on dequeue
//	jobs:data:<id>   JSON body of every job ever enqueued
//	jobs:processing  set of ids claimed by a worker and not yet terminal
//	jobs:failed      set of ids whose terminal status is Failed
//
// The RPOP is the only cross-worker synchronization: each id is handed to at
// most one caller. Pop, fetch and mark-running are separate commands, so a
// worker that dies between them loses the job. There is no lease or
// visibility timeout to bring it back.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gh1989/nethub/internal/metrics"
	"github.com/gh1989/nethub/internal/store"
	"github.com/gh1989/nethub/pkg/models"
	"github.com/google/uuid"
)

// Operation names used in logs, metrics and OpError.
const (
	opEnqueue = "enqueue"
	opDequeue = "dequeue"
	opUpdate  = "update_status"
	opGet     = "get"
	opList    = "list"
	opStats   = "stats"
)

// JobQueue is the full set of queue operations.
type JobQueue interface {
	EnqueueJob(ctx context.Context, job *models.Job) error
	DequeueJob(ctx context.Context) (*models.Job, error)
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	GetAllJobs(ctx context.Context) ([]*models.Job, error)
	Stats(ctx context.Context) (*Stats, error)
}

// Stats are the sizes of the queue structures.
type Stats struct {
	Queued     int64 `json:"queued"`
	Processing int64 `json:"processing"`
	Failed     int64 `json:"failed"`
}

// Option configures the Client.
type Option func(*Client)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// Client implements JobQueue. It holds no state besides its store and is
// safe for concurrent use by producers and any number of workers.
type Client struct {
	store  store.Store
	retry  RetryPolicy
	logger *slog.Logger
}

var _ JobQueue = (*Client)(nil)

// New creates a Client. The caller owns the store's lifecycle.
func New(s store.Store, opts ...Option) *Client {
	c := &Client{store: s, retry: DefaultRetryPolicy(), logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// EnqueueJob stores the job body and appends its id to the queue. It does not
// check for duplicates; ids must be fresh.
func (c *Client) EnqueueJob(ctx context.Context, job *models.Job) error {
	if job == nil || job.ID == uuid.Nil {
		return fmt.Errorf("%w: job and job id are required", ErrInvalidJob)
	}
	body, err := json.Marshal(job)
	if err != nil {
		return c.fail(opEnqueue, 1, fmt.Errorf("encode job %s: %w", job.ID, err))
	}

	id := job.ID.String()
	if err := c.do(ctx, opEnqueue, func(ctx context.Context) error {
		return c.store.SetString(ctx, dataKey(id), string(body))
	}); err != nil {
		return err
	}
	if err := c.do(ctx, opEnqueue, func(ctx context.Context) error {
		return c.store.ListPushEnd(ctx, queueKey, id)
	}); err != nil {
		return err
	}

	metrics.IncEnqueued()
	c.logger.Info("job enqueued", "job_id", id, "job_type", job.JobType)
	return nil
}

// DequeueJob claims the oldest queued job, marks it Running and returns it.
// It returns (nil, nil) when the queue is empty, and also when the popped id
// has no body or its job already reached a terminal status; those anomalies
// are logged and the id is dropped.
func (c *Client) DequeueJob(ctx context.Context) (*models.Job, error) {
	var (
		id    string
		found bool
	)
	if err := c.do(ctx, opDequeue, func(ctx context.Context) error {
		var err error
		id, found, err = c.store.ListPopOtherEnd(ctx, queueKey)
		return err
	}); err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	// The id is out of the queue now. Retries below only touch this id.
	var (
		job      *models.Job
		finished bool
	)
	err := c.do(ctx, opDequeue, func(ctx context.Context) error {
		j, err := c.load(ctx, id)
		if err != nil {
			return err
		}
		if !j.Status.CanTransitionTo(models.JobStatusRunning) {
			job, finished = j, true
			return nil
		}
		if err := c.store.SetAdd(ctx, processingKey, id); err != nil {
			return err
		}
		if j.Status != models.JobStatusRunning {
			j.Status = models.JobStatusRunning
			if err := c.save(ctx, j); err != nil {
				return err
			}
		}
		job = j
		return nil
	})
	switch {
	case err == nil:
	case isNotFound(err):
		metrics.IncQueueAnomaly()
		c.logger.Warn("dequeued job id without body, skipping",
			"job_id", id, "error", ErrDataAnomaly)
		return nil, nil
	default:
		c.logger.Error("dequeued job could not be marked running",
			"job_id", id, "error", err)
		return nil, err
	}
	if finished {
		metrics.IncQueueAnomaly()
		c.logger.Warn("dequeued job id is already finished, skipping",
			"job_id", id, "status", job.Status, "error", ErrDataAnomaly)
		return nil, nil
	}

	metrics.IncDequeued()
	c.logger.Info("job dequeued", "job_id", id, "job_type", job.JobType)
	return job, nil
}

// UpdateJobStatus persists a new status. Terminal statuses remove the id from
// the processing set; Failed also records it in the failed set.
func (c *Client) UpdateJobStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}
	key := id.String()

	err := c.do(ctx, opUpdate, func(ctx context.Context) error {
		job, err := c.load(ctx, key)
		if err != nil {
			return err
		}
		if !job.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: job %s is %s, cannot become %s",
				ErrInvalidTransition, key, job.Status, status)
		}
		if job.Status != status {
			job.Status = status
			if err := c.save(ctx, job); err != nil {
				return err
			}
		}
		if !status.IsTerminal() {
			return nil
		}
		if err := c.store.SetRemove(ctx, processingKey, key); err != nil {
			return err
		}
		if status == models.JobStatusFailed {
			return c.store.SetAdd(ctx, failedKey, key)
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.logger.Info("job status updated", "job_id", key, "status", status)
	return nil
}

// GetJob returns the stored job or ErrNotFound.
func (c *Client) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job *models.Job
	err := c.do(ctx, opGet, func(ctx context.Context) error {
		j, err := c.load(ctx, id.String())
		if err != nil {
			return err
		}
		job = j
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// GetAllJobs returns the jobs still waiting in the queue in list order: the
// most recently enqueued job first, the next one to be dequeued last.
// Running and finished jobs are not listed. Ids whose body is missing are
// skipped.
func (c *Client) GetAllJobs(ctx context.Context) ([]*models.Job, error) {
	var jobs []*models.Job
	err := c.do(ctx, opList, func(ctx context.Context) error {
		ids, err := c.store.ListRange(ctx, queueKey)
		if err != nil {
			return err
		}
		jobs = make([]*models.Job, 0, len(ids))
		for _, id := range ids {
			j, err := c.load(ctx, id)
			if isNotFound(err) {
				continue
			}
			if err != nil {
				return err
			}
			jobs = append(jobs, j)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// Stats reports how many ids are queued, processing and failed.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := c.do(ctx, opStats, func(ctx context.Context) error {
		queued, err := c.store.ListLen(ctx, queueKey)
		if err != nil {
			return err
		}
		processing, err := c.store.SetMembers(ctx, processingKey)
		if err != nil {
			return err
		}
		failed, err := c.store.SetMembers(ctx, failedKey)
		if err != nil {
			return err
		}
		st = Stats{Queued: queued, Processing: int64(len(processing)), Failed: int64(len(failed))}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) load(ctx context.Context, id string) (*models.Job, error) {
	raw, found, err := c.store.GetString(ctx, dataKey(id))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	var job models.Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &job, nil
}

func (c *Client) save(ctx context.Context, job *models.Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	return c.store.SetString(ctx, dataKey(job.ID.String()), string(body))
}
