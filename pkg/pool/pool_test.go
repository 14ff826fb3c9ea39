package pool_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/oganesson/pkg/pool"
	"github.com/ajitpratap0/oganesson/pkg/testutil"
)

type counter struct {
	id    int
	value int
	busy  atomic.Bool
}

func newCounterPool(t *testing.T, size int, policy pool.Policy) *pool.Pool[*counter] {
	t.Helper()

	var next int
	p := pool.New(size, policy, func(c *counter) {
		next++
		c.id = next
	}, pool.WithName(t.Name()), pool.WithLogger(testutil.TestLogger(t)))
	t.Cleanup(p.Close)
	return p
}

func TestNew_ReportsConfiguredSize(t *testing.T) {
	for _, size := range []int{0, 1, 5} {
		var built int
		p := pool.New(size, pool.Static, func(*counter) { built++ })

		assert.Equal(t, size, p.Size())
		assert.Equal(t, 0, p.AcquireCount())
		assert.Equal(t, size, built, "factory runs once per instance")
		assert.Equal(t, pool.Static, p.Policy())
		p.Close()
	}
}

func TestNew_NegativeSizeIsEmpty(t *testing.T) {
	p := newCounterPool(t, -3, pool.Static)

	assert.Equal(t, 0, p.Size())
	_, err := p.Acquire()
	assert.ErrorIs(t, err, pool.ErrDrained)
}

func TestNew_PointerElementsAreDistinct(t *testing.T) {
	p := newCounterPool(t, 3, pool.Static)

	seen := make(map[*counter]bool)
	for i := 0; i < 3; i++ {
		c, err := p.Acquire()
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.False(t, seen[c], "instance handed out twice")
		seen[c] = true
	}
}

func TestNew_WithConstructor(t *testing.T) {
	p := pool.New[*counter](2, pool.Static, nil, pool.WithConstructor(func() *counter {
		return &counter{value: 42}
	}))
	defer p.Close()

	c, err := p.Acquire()
	require.NoError(t, err)
	assert.Equal(t, 42, c.value)
}

func TestNew_WithConstructorTypeMismatchPanics(t *testing.T) {
	assert.Panics(t, func() {
		pool.New[*counter](1, pool.Static, nil, pool.WithConstructor(func() int { return 1 }))
	})
}

func TestStatic_ExhaustsAtConfiguredSize(t *testing.T) {
	const size = 4
	p := newCounterPool(t, size, pool.Static)

	held := make([]*counter, 0, size)
	for i := 0; i < size; i++ {
		c, err := p.Acquire()
		require.NoError(t, err)
		held = append(held, c)
	}

	_, err := p.Acquire()
	require.ErrorIs(t, err, pool.ErrDrained)
	assert.Equal(t, size, p.Size())
	assert.Equal(t, size, p.AcquireCount())

	p.Release(held[2])
	c, err := p.Acquire()
	require.NoError(t, err)
	assert.Same(t, held[2], c)
	assert.Equal(t, size, p.Size())
}

func TestStatic_ReleasedSlotIsReusedInSlotOrder(t *testing.T) {
	p := newCounterPool(t, 2, pool.Static)

	a, err := p.Acquire()
	require.NoError(t, err)
	b, err := p.Acquire()
	require.NoError(t, err)
	assert.NotSame(t, a, b)

	_, err = p.Acquire()
	require.ErrorIs(t, err, pool.ErrDrained)

	p.Release(a)
	d, err := p.Acquire()
	require.NoError(t, err)
	assert.Same(t, a, d)
	assert.Equal(t, 1, d.id)
}

func TestDynamic_GrowsFromEmpty(t *testing.T) {
	p := newCounterPool(t, 0, pool.Dynamic)

	c, err := p.Acquire()
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 1, p.Size())
	assert.Equal(t, 1, c.id, "factory runs for grown instances")

	for i := 0; i < 10; i++ {
		_, err := p.Acquire()
		require.NoError(t, err)
	}
	assert.Equal(t, 11, p.Size())
	assert.Equal(t, uint64(11), p.Stats().Grown)
}

func TestDynamic_PrefersFreeSlotOverGrowth(t *testing.T) {
	p := newCounterPool(t, 1, pool.Dynamic)

	a, err := p.Acquire()
	require.NoError(t, err)
	p.Release(a)

	b, err := p.Acquire()
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, p.Size())
}

func TestRelease_TwiceHasNoFurtherEffect(t *testing.T) {
	p := newCounterPool(t, 2, pool.Static)

	var releases atomic.Int32
	p.OnRelease(func(*counter) { releases.Add(1) })

	c, err := p.Acquire()
	require.NoError(t, err)
	p.Release(c)
	p.Release(c)
	testutil.Settle(t, p)

	assert.Equal(t, int32(1), releases.Load())
	assert.Equal(t, 0, p.AcquireCount())
	assert.Equal(t, uint64(1), p.Stats().Releases)
}

func TestRelease_UnknownInstanceIsIgnored(t *testing.T) {
	p := newCounterPool(t, 1, pool.Static)

	held, err := p.Acquire()
	require.NoError(t, err)

	p.Release(&counter{})
	testutil.Settle(t, p)

	assert.Equal(t, 1, p.AcquireCount())
	_, err = p.Acquire()
	assert.ErrorIs(t, err, pool.ErrDrained)
	p.Release(held)
}

func TestRelease_EqualValuesOnlyFirstSlotMatches(t *testing.T) {
	p := pool.New[int](2, pool.Static, nil)
	defer p.Close()

	var released atomic.Int32
	p.OnRelease(func(int) { released.Add(1) })

	v1, err := p.Acquire()
	require.NoError(t, err)
	v2, err := p.Acquire()
	require.NoError(t, err)
	require.Equal(t, v1, v2)

	p.Release(v1)
	p.Release(v1)
	testutil.Settle(t, p)
	assert.Equal(t, 1, p.AcquireCount(), "second release finds the first slot free and stops")
	assert.Equal(t, int32(1), released.Load())
	assert.Equal(t, uint64(1), p.Stats().Releases)

	// Slot 1 is still checked out; only a lease can return it.
	_, err = p.Acquire()
	require.NoError(t, err)
	_, err = p.Acquire()
	assert.ErrorIs(t, err, pool.ErrDrained)
}

func TestDrain_StaticPoolRejectsAfterwards(t *testing.T) {
	p := newCounterPool(t, 3, pool.Static)

	orphan, err := p.Acquire()
	require.NoError(t, err)

	p.Drain()
	_, err = p.Acquire()
	require.ErrorIs(t, err, pool.ErrDrained)
	assert.Equal(t, 0, p.Size())
	assert.Equal(t, 0, p.AcquireCount())

	p.Release(orphan)
	testutil.Settle(t, p)
	assert.Equal(t, 0, p.Size())
	assert.Equal(t, uint64(0), p.Stats().Releases)
}

func TestDrain_DynamicPoolRepopulates(t *testing.T) {
	p := newCounterPool(t, 3, pool.Dynamic)

	var released atomic.Int32
	p.OnRelease(func(*counter) { released.Add(1) })

	orphan, err := p.Acquire()
	require.NoError(t, err)

	p.Drain()
	c, err := p.Acquire()
	require.NoError(t, err)
	assert.NotSame(t, orphan, c)
	assert.Equal(t, 1, p.Size())

	p.Release(orphan)
	testutil.Settle(t, p)
	assert.Equal(t, int32(0), released.Load(), "orphans do not trigger hooks")
	assert.Equal(t, 1, p.AcquireCount())
}

func TestHooks_RunOncePerOperationWithInstance(t *testing.T) {
	p := newCounterPool(t, 2, pool.Static)

	var (
		mu       sync.Mutex
		acquired []*counter
		released []*counter
	)
	p.OnAcquire(func(c *counter) {
		mu.Lock()
		acquired = append(acquired, c)
		mu.Unlock()
	})
	p.OnRelease(func(c *counter) {
		mu.Lock()
		released = append(released, c)
		mu.Unlock()
	})

	a, err := p.Acquire()
	require.NoError(t, err)
	b, err := p.Acquire()
	require.NoError(t, err)
	_, err = p.Acquire()
	require.ErrorIs(t, err, pool.ErrDrained)

	p.Release(b)
	p.Release(a)
	testutil.Settle(t, p)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []*counter{a, b}, acquired)
	assert.Equal(t, []*counter{b, a}, released)
}

func TestHooks_SetterIsOrderedWithRequests(t *testing.T) {
	p := newCounterPool(t, 2, pool.Static)

	var calls atomic.Int32
	first, err := p.Acquire()
	require.NoError(t, err)

	p.OnAcquire(func(*counter) { calls.Add(1) })
	_, err = p.Acquire()
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	p.OnAcquire(nil)
	p.Release(first)
	_, err = p.Acquire()
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "nil clears the hook")
}

func TestHooks_InitialHooksFromOptions(t *testing.T) {
	var acquired, released atomic.Int32
	p := pool.New[*counter](1, pool.Static, nil,
		pool.WithOnAcquire(func(*counter) { acquired.Add(1) }),
		pool.WithOnRelease(func(*counter) { released.Add(1) }),
	)
	defer p.Close()

	c, err := p.Acquire()
	require.NoError(t, err)
	p.Release(c)
	testutil.Settle(t, p)

	assert.Equal(t, int32(1), acquired.Load())
	assert.Equal(t, int32(1), released.Load())
}

func TestHooks_MayCallBackIntoPool(t *testing.T) {
	p := newCounterPool(t, 2, pool.Static)

	p.OnAcquire(func(c *counter) {
		// Observers and queued operations are safe inside hooks.
		_ = p.Size()
		_ = p.AcquireCount()
		p.Release(c)
	})
	p.OnRelease(func(*counter) {
		p.OnAcquire(nil)
	})

	_, err := p.Acquire()
	require.NoError(t, err)
	testutil.Settle(t, p)

	assert.Equal(t, 0, p.AcquireCount())
	_, err = p.Acquire()
	require.NoError(t, err)
	testutil.Settle(t, p)
	assert.Equal(t, 1, p.AcquireCount(), "hook was cleared by the release hook")
}

func TestHooks_PanicPropagatesToCaller(t *testing.T) {
	p := newCounterPool(t, 2, pool.Static)

	p.OnAcquire(func(*counter) { panic("boom") })
	assert.PanicsWithValue(t, "boom", func() {
		_, _ = p.Acquire()
	})

	p.OnAcquire(nil)
	_, err := p.Acquire()
	assert.NoError(t, err, "pool keeps serving after a hook panic")
}

func TestAcquireContext_AbandonedRequestLeavesStateUntouched(t *testing.T) {
	p := newCounterPool(t, 2, pool.Static)

	entered := make(chan struct{})
	unblock := make(chan struct{})
	p.OnAcquire(func(*counter) {
		close(entered)
		<-unblock
	})

	done := make(chan error, 1)
	go func() {
		_, err := p.Acquire()
		done <- err
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.AcquireContext(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(unblock)
	require.NoError(t, <-done)
	testutil.Settle(t, p)
	assert.Equal(t, 1, p.AcquireCount())
}

func TestClose_RejectsLaterAcquires(t *testing.T) {
	p := pool.New(2, pool.Dynamic, func(*counter) {})

	c, err := p.Acquire()
	require.NoError(t, err)

	p.Close()
	p.Close()

	_, err = p.Acquire()
	assert.ErrorIs(t, err, pool.ErrClosed)
	assert.ErrorIs(t, p.Flush(context.Background()), pool.ErrClosed)

	// Queued operations after Close are dropped silently.
	p.Release(c)
	p.Drain()
	assert.Equal(t, 1, p.AcquireCount())
}

func TestStats_Snapshot(t *testing.T) {
	p := newCounterPool(t, 1, pool.Dynamic)

	a, err := p.Acquire()
	require.NoError(t, err)
	_, err = p.Acquire()
	require.NoError(t, err)
	p.Release(a)
	p.Drain()
	testutil.Settle(t, p)

	want := pool.Stats{
		Size:     0,
		InUse:    0,
		Acquires: 2,
		Releases: 1,
		Grown:    1,
		Rejected: 0,
		Drains:   1,
	}
	if diff := cmp.Diff(want, p.Stats()); diff != "" {
		t.Errorf("Stats() mismatch (-want +got):\n%s", diff)
	}
}

func TestConcurrentAcquireRelease_ExclusiveCheckout(t *testing.T) {
	const (
		size       = 4
		workers    = 8
		iterations = 200
	)
	p := newCounterPool(t, size, pool.Static)

	var (
		wg       sync.WaitGroup
		overlaps atomic.Int32
		served   atomic.Int32
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				c, err := p.Acquire()
				if errors.Is(err, pool.ErrDrained) {
					continue
				}
				if err != nil {
					t.Errorf("acquire: %v", err)
					return
				}
				if !c.busy.CompareAndSwap(false, true) {
					overlaps.Add(1)
				}
				c.value++
				served.Add(1)
				c.busy.Store(false)
				p.Release(c)
			}
		}()
	}
	wg.Wait()
	testutil.Settle(t, p)

	assert.Equal(t, int32(0), overlaps.Load(), "an instance was held by two goroutines")
	assert.Greater(t, served.Load(), int32(0))
	assert.Equal(t, size, p.Size())
	assert.Equal(t, 0, p.AcquireCount())
}
