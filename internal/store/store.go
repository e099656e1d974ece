package store

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable marks a store failure caused by connectivity: the backend
// could not be reached, timed out, or asked the client to try again later.
// Errors wrapping it are safe to retry.
var ErrUnavailable = errors.New("store unavailable")

// Store is the key/list/set backend the job queue is built on. Every method
// is atomic on its single key; nothing spans keys.
// Implementations must be safe for concurrent use.
type Store interface {
	Ping(ctx context.Context) error

	SetString(ctx context.Context, key, value string) error
	// GetString reports found=false when the key does not exist.
	GetString(ctx context.Context, key string) (string, bool, error)

	// ListPushEnd inserts value at the head of the list.
	ListPushEnd(ctx context.Context, key, value string) error
	// ListPopOtherEnd removes and returns the tail of the list, so together
	// with ListPushEnd the list behaves as a FIFO. found=false when empty.
	ListPopOtherEnd(ctx context.Context, key string) (string, bool, error)
	// ListRange returns every element, head to tail.
	ListRange(ctx context.Context, key string) ([]string, error)
	ListLen(ctx context.Context, key string) (int64, error)

	SetAdd(ctx context.Context, key, member string) error
	SetRemove(ctx context.Context, key, member string) error
	SetMembers(ctx context.Context, key string) ([]string, error)

	Close() error
}

// Counter is a fixed-window counter, used for rate limiting.
type Counter interface {
	IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error)
}

// IsUnavailable reports whether err is a retryable connectivity failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
