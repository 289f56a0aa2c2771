package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache[V any]() (*Cache[V], *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)}
	c := New[V]()
	c.now = clock.Now
	return c, clock
}

func TestGetSetExpiry(t *testing.T) {
	c, clock := newTestCache[string]()

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", "alpha", time.Minute)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "alpha", v)

	clock.Advance(59 * time.Second)
	_, ok = c.Get("a")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok, "entry must expire exactly at its ttl")
	assert.Equal(t, 1, c.Len(), "expired entries stay until purged")
}

func TestSetNonPositiveTTL(t *testing.T) {
	c, _ := newTestCache[int]()
	c.Set("a", 1, time.Minute)
	c.Set("a", 2, 0)

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestPurgeAndFlush(t *testing.T) {
	c, clock := newTestCache[int]()
	c.Set("short", 1, time.Minute)
	c.Set("long", 2, time.Hour)
	c.Set("gone", 3, time.Hour)
	c.Delete("gone")

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, c.Purge())
	assert.Equal(t, 1, c.Len())

	v, ok := c.Get("long")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	c.Flush()
	assert.Equal(t, 0, c.Len())
}

func TestDoCachesValue(t *testing.T) {
	c, clock := newTestCache[int]()
	var calls int32
	load := func() (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}

	v, hit, err := c.Do(context.Background(), "k", time.Minute, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, v)

	v, hit, err = c.Do(context.Background(), "k", time.Minute, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, v)

	clock.Advance(time.Minute)
	v, hit, err = c.Do(context.Background(), "k", time.Minute, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, v)
}

func TestDoDoesNotCacheErrors(t *testing.T) {
	c, _ := newTestCache[int]()
	boom := errors.New("boom")
	var calls int32

	for i := 0; i < 3; i++ {
		_, _, err := c.Do(context.Background(), "k", time.Minute, func() (int, error) {
			atomic.AddInt32(&calls, 1)
			return 0, boom
		})
		assert.ErrorIs(t, err, boom)
	}
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	assert.Equal(t, 0, c.Len())
}

func TestDoCoalescesConcurrentMisses(t *testing.T) {
	c, _ := newTestCache[string]()
	var calls int32
	release := make(chan struct{})
	started := make(chan struct{})

	load := func() (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		<-release
		return "value", nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _, errs[0] = c.Do(context.Background(), "k", time.Minute, load)
	}()
	<-started

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, errs[i] = c.Do(context.Background(), "k", time.Minute, load)
		}(i)
	}

	// Give the followers time to join the in-flight load.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	for i := 0; i < callers; i++ {
		assert.NoError(t, errs[i])
		assert.Equal(t, "value", results[i])
	}
}

func TestDoContextCanceled(t *testing.T) {
	c, _ := newTestCache[int]()
	release := make(chan struct{})
	done := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := c.Do(ctx, "k", time.Minute, func() (int, error) {
		defer close(done)
		<-release
		return 1, nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	<-done
}

func TestFlushDropsLoadsInFlight(t *testing.T) {
	c, _ := newTestCache[string]()
	started := make(chan struct{})
	release := make(chan struct{})

	type result struct {
		v   string
		err error
	}
	first := make(chan result, 1)
	go func() {
		v, _, err := c.Do(context.Background(), "k", time.Minute, func() (string, error) {
			close(started)
			<-release
			return "old-config", nil
		})
		first <- result{v, err}
	}()
	<-started

	c.Flush()

	// A caller after the flush does not join the old load.
	v, hit, err := c.Do(context.Background(), "k", time.Minute, func() (string, error) {
		return "new-config", nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "new-config", v)

	close(release)
	res := <-first
	require.NoError(t, res.err)
	assert.Equal(t, "old-config", res.v, "callers of the old load still get its result")

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new-config", v)
}

func TestFlushWithoutNewLoadStoresNothing(t *testing.T) {
	c, _ := newTestCache[string]()
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, _, _ = c.Do(context.Background(), "k", time.Minute, func() (string, error) {
			close(started)
			<-release
			return "old-config", nil
		})
	}()
	<-started
	c.Flush()
	close(release)
	<-done

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}
