package queue

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the job id has no stored body.
	ErrNotFound = errors.New("job not found")
	// ErrQueueFailure matches every *OpError: retries were exhausted or the
	// store failed in a way retrying cannot fix.
	ErrQueueFailure = errors.New("queue operation failed")
	// ErrDataAnomaly describes an id present in the queue without a body, or
	// whose job is already Completed or Failed.
	// DequeueJob logs it and reports an empty queue instead of returning it.
	ErrDataAnomaly = errors.New("queued job id has no stored body")
	// ErrInvalidTransition is returned when a status update would move a
	// job backwards or out of a terminal status.
	ErrInvalidTransition = errors.New("invalid job status transition")
	// ErrInvalidJob is returned by EnqueueJob for a nil job or a nil id.
	ErrInvalidJob = errors.New("invalid job")
)

// OpError is the queue-level failure of one operation. It wraps the
// underlying cause and matches ErrQueueFailure via errors.Is.
type OpError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("queue %s failed after %d attempt(s): %v", e.Op, e.Attempts, e.Err)
}

func (e *OpError) Unwrap() []error {
	return []error{ErrQueueFailure, e.Err}
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
