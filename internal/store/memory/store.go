// Package memory implements store.Store in process memory. It gives the
// same single-key atomicity as Redis and is used in tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/gh1989/nethub/internal/store"
)

var (
	_ store.Store   = (*Store)(nil)
	_ store.Counter = (*Store)(nil)
)

type counter struct {
	value    int64
	expireAt time.Time
}

// Store is a mutex-guarded map of strings, lists and sets.
type Store struct {
	mu       sync.Mutex
	strings  map[string]string
	lists    map[string][]string // index 0 is the head
	sets     map[string]map[string]struct{}
	counters map[string]*counter
	closed   bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		strings:  make(map[string]string),
		lists:    make(map[string][]string),
		sets:     make(map[string]map[string]struct{}),
		counters: make(map[string]*counter),
	}
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return store.ErrUnavailable
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.check(ctx)
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) SetString(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	s.strings[key] = value
	return nil
}

func (s *Store) GetString(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return "", false, err
	}
	v, ok := s.strings[key]
	return v, ok, nil
}

// Delete removes a string key. It is not part of store.Store; tests use it
// to simulate a body that vanished.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.strings, key)
}

func (s *Store) ListPushEnd(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	s.lists[key] = append([]string{value}, s.lists[key]...)
	return nil
}

func (s *Store) ListPopOtherEnd(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return "", false, err
	}
	l := s.lists[key]
	if len(l) == 0 {
		return "", false, nil
	}
	v := l[len(l)-1]
	s.lists[key] = l[:len(l)-1]
	return v, true, nil
}

func (s *Store) ListRange(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	out := make([]string, len(s.lists[key]))
	copy(out, s.lists[key])
	return out, nil
}

func (s *Store) ListLen(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	return int64(len(s.lists[key])), nil
}

func (s *Store) SetAdd(ctx context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{})
		s.sets[key] = set
	}
	set[member] = struct{}{}
	return nil
}

func (s *Store) SetRemove(ctx context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	delete(s.sets[key], member)
	return nil
}

func (s *Store) SetMembers(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(s.sets[key]))
	for m := range s.sets[key] {
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	now := time.Now()
	c, ok := s.counters[key]
	if !ok || now.After(c.expireAt) {
		c = &counter{}
		s.counters[key] = c
	}
	c.value++
	c.expireAt = now.Add(expiry)
	return c.value, nil
}
