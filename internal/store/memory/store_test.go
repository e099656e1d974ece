package memory_test

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gh1989/nethub/internal/store"
	"github.com/gh1989/nethub/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringRoundtrip(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	require.NoError(t, s.SetString(ctx, "k", "v"))
	v, found, err := s.GetString(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", v)

	_, found, err = s.GetString(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestList_FIFO(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	for _, v := range []string{"a", "b", "c"} {
		require.NoError(t, s.ListPushEnd(ctx, "q", v))
	}

	rng, err := s.ListRange(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, rng, "range is head to tail")

	n, err := s.ListLen(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	for _, want := range []string{"a", "b", "c"} {
		v, found, err := s.ListPopOtherEnd(ctx, "q")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, want, v)
	}

	_, found, err := s.ListPopOtherEnd(ctx, "q")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestList_ConcurrentPopsAreExclusive(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		require.NoError(t, s.ListPushEnd(ctx, "q", strconv.Itoa(i)))
	}

	var (
		mu  sync.Mutex
		got []string
		wg  sync.WaitGroup
	)
	for i := 0; i < 150; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, found, err := s.ListPopOtherEnd(ctx, "q")
			assert.NoError(t, err)
			if found {
				mu.Lock()
				got = append(got, v)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, got, 100)
	uniq := make(map[string]bool)
	for _, v := range got {
		uniq[v] = true
	}
	assert.Len(t, uniq, 100)
}

func TestSets(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	require.NoError(t, s.SetAdd(ctx, "set", "x"))
	require.NoError(t, s.SetAdd(ctx, "set", "y"))
	require.NoError(t, s.SetAdd(ctx, "set", "x"))

	members, err := s.SetMembers(ctx, "set")
	require.NoError(t, err)
	sort.Strings(members)
	assert.Equal(t, []string{"x", "y"}, members)

	require.NoError(t, s.SetRemove(ctx, "set", "x"))
	require.NoError(t, s.SetRemove(ctx, "set", "nope"))
	require.NoError(t, s.SetRemove(ctx, "other", "x"))

	members, err = s.SetMembers(ctx, "set")
	require.NoError(t, err)
	assert.Equal(t, []string{"y"}, members)
}

func TestIncrWithExpiry(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := s.IncrWithExpiry(ctx, "rl", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	_, err := s.IncrWithExpiry(ctx, "short", time.Millisecond)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	n, err := s.IncrWithExpiry(ctx, "short", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestClosed_ReturnsUnavailable(t *testing.T) {
	s := memory.New()
	require.NoError(t, s.Close())

	err := s.SetString(context.Background(), "k", "v")
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.True(t, store.IsUnavailable(s.Ping(context.Background())))
}

func TestCancelledContext(t *testing.T) {
	s := memory.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := s.GetString(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}
