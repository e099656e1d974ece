package queue_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gh1989/nethub/internal/backoff"
	"github.com/gh1989/nethub/internal/queue"
	"github.com/gh1989/nethub/internal/store"
	"github.com/gh1989/nethub/internal/store/memory"
)

var errTransient = fmt.Errorf("%w: %w", store.ErrUnavailable, errors.New("connection reset by peer"))

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastRetry() queue.RetryPolicy {
	return queue.RetryPolicy{MaxRetries: 3, Backoff: backoff.NewConstant(time.Millisecond)}
}

func newClient(t *testing.T) (*queue.Client, *memory.Store) {
	t.Helper()
	mem := memory.New()
	return queue.New(mem, queue.WithLogger(discardLogger()), queue.WithRetryPolicy(fastRetry())), mem
}

// flakyStore wraps a store and returns queued errors from selected methods
// before delegating.
type flakyStore struct {
	store.Store

	mu    sync.Mutex
	fail  map[string][]error
	calls map[string]int
}

func newFlakyStore(inner store.Store) *flakyStore {
	return &flakyStore{Store: inner, fail: map[string][]error{}, calls: map[string]int{}}
}

func (f *flakyStore) failNext(method string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[method] = append(f.fail[method], errs...)
}

func (f *flakyStore) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *flakyStore) next(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	q := f.fail[method]
	if len(q) == 0 {
		return nil
	}
	f.fail[method] = q[1:]
	return q[0]
}

func (f *flakyStore) SetString(ctx context.Context, key, value string) error {
	if err := f.next("SetString"); err != nil {
		return err
	}
	return f.Store.SetString(ctx, key, value)
}

func (f *flakyStore) GetString(ctx context.Context, key string) (string, bool, error) {
	if err := f.next("GetString"); err != nil {
		return "", false, err
	}
	return f.Store.GetString(ctx, key)
}

func (f *flakyStore) ListPushEnd(ctx context.Context, key, value string) error {
	if err := f.next("ListPushEnd"); err != nil {
		return err
	}
	return f.Store.ListPushEnd(ctx, key, value)
}

func (f *flakyStore) ListPopOtherEnd(ctx context.Context, key string) (string, bool, error) {
	if err := f.next("ListPopOtherEnd"); err != nil {
		return "", false, err
	}
	return f.Store.ListPopOtherEnd(ctx, key)
}

func (f *flakyStore) ListRange(ctx context.Context, key string) ([]string, error) {
	if err := f.next("ListRange"); err != nil {
		return nil, err
	}
	return f.Store.ListRange(ctx, key)
}

func (f *flakyStore) SetAdd(ctx context.Context, key, member string) error {
	if err := f.next("SetAdd"); err != nil {
		return err
	}
	return f.Store.SetAdd(ctx, key, member)
}
