// Package worker runs the consumption loop: dequeue a job, execute it,
// record its terminal status, repeat until the context is cancelled.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gh1989/nethub/internal/metrics"
	"github.com/gh1989/nethub/pkg/models"
	"github.com/google/uuid"
)

const (
	defaultIdleWait        = 5 * time.Second
	defaultFinalizeTimeout = 5 * time.Second
)

// JobQueue is the part of the queue client the loop needs.
type JobQueue interface {
	DequeueJob(ctx context.Context) (*models.Job, error)
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error
}

// Executor runs one job. A nil return marks the job Completed; any error
// marks it Failed.
type Executor interface {
	Execute(ctx context.Context, job *models.Job) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, job *models.Job) error

func (f ExecutorFunc) Execute(ctx context.Context, job *models.Job) error { return f(ctx, job) }

// Simulator stands in for real work by sleeping DurationSeconds units.
type Simulator struct {
	Unit time.Duration
}

func (s Simulator) Execute(ctx context.Context, job *models.Job) error {
	d := job.Duration(s.Unit)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Option configures a Worker.
type Option func(*Worker)

// WithExecutor replaces the default Simulator.
func WithExecutor(e Executor) Option {
	return func(w *Worker) { w.exec = e }
}

// WithIdleWait sets the pause after an empty dequeue or a dequeue error.
func WithIdleWait(d time.Duration) Option {
	return func(w *Worker) { w.idleWait = d }
}

// WithFinalizeTimeout bounds the status write made after cancellation.
// Non-positive values keep the default.
func WithFinalizeTimeout(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.finalizeTimeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Worker) { w.logger = l }
}

// WithName labels the worker's log lines.
func WithName(name string) Option {
	return func(w *Worker) { w.name = name }
}

// Worker is a single consumption loop. Run several against one JobQueue to
// process jobs concurrently.
type Worker struct {
	queue           JobQueue
	exec            Executor
	idleWait        time.Duration
	finalizeTimeout time.Duration
	logger          *slog.Logger
	name            string
}

func New(q JobQueue, opts ...Option) *Worker {
	w := &Worker{
		queue:           q,
		exec:            Simulator{Unit: time.Second},
		idleWait:        defaultIdleWait,
		finalizeTimeout: defaultFinalizeTimeout,
		logger:          slog.Default(),
		name:            "worker",
	}
	for _, o := range opts {
		o(w)
	}
	w.logger = w.logger.With("worker", w.name)
	return w
}

// Run loops until ctx is cancelled and then returns nil. Job and queue
// errors are logged and never stop the loop.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started")
	defer w.logger.Info("worker stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}

		job, err := w.queue.DequeueJob(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error("dequeue failed", "error", err)
			if !w.wait(ctx) {
				return nil
			}
			continue
		}
		if job == nil {
			if !w.wait(ctx) {
				return nil
			}
			continue
		}

		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job *models.Job) {
	log := w.logger.With("job_id", job.ID, "job_type", job.JobType)
	log.Info("job started", "duration_seconds", job.DurationSeconds)

	start := time.Now()
	execErr := w.execute(ctx, job)
	elapsed := time.Since(start)

	status := models.JobStatusCompleted
	if execErr != nil {
		status = models.JobStatusFailed
	}

	// The status write must land even when ctx was cancelled mid-job,
	// otherwise the job stays Running forever.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.finalizeTimeout)
	defer cancel()
	if err := w.queue.UpdateJobStatus(fctx, job.ID, status); err != nil {
		log.Error("job status update failed", "status", status, "error", err)
	}
	metrics.ObserveJob(string(status), elapsed)

	if execErr != nil {
		log.Error("job failed", "elapsed_ms", elapsed.Milliseconds(), "error", execErr)
		return
	}
	log.Info("job completed", "elapsed_ms", elapsed.Milliseconds())
}

func (w *Worker) execute(ctx context.Context, job *models.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("executor panic: %v", r)
		}
	}()
	return w.exec.Execute(ctx, job)
}

// wait pauses for idleWait. It reports false if ctx was cancelled first.
func (w *Worker) wait(ctx context.Context) bool {
	t := time.NewTimer(w.idleWait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
