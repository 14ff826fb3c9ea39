package serial

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	q := New("test", zaptest.NewLogger(t))
	t.Cleanup(func() {
		q.Close()
		<-q.Done()
	})
	return q
}

func TestQueue_FIFO(t *testing.T) {
	q := newTestQueue(t)

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		require.True(t, q.Async(func() { got = append(got, i) }))
	}

	var snapshot []int
	require.NoError(t, q.Sync(context.Background(), func() {
		snapshot = append(snapshot, got...)
	}))

	require.Len(t, snapshot, 100)
	for i, v := range snapshot {
		assert.Equal(t, i, v)
	}
}

func TestQueue_SyncSerializesConcurrentCallers(t *testing.T) {
	q := newTestQueue(t)

	var (
		counter int
		wg      sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Sync(context.Background(), func() { counter++ })
		}()
	}
	wg.Wait()

	require.NoError(t, q.Sync(context.Background(), func() {}))
	assert.Equal(t, 50, counter)
}

func TestQueue_SyncPropagatesPanic(t *testing.T) {
	q := newTestQueue(t)

	assert.PanicsWithValue(t, "boom", func() {
		_ = q.Sync(context.Background(), func() { panic("boom") })
	})

	ran := false
	require.NoError(t, q.Sync(context.Background(), func() { ran = true }))
	assert.True(t, ran, "worker survives a panicking task")
}

func TestQueue_AsyncPanicIsDropped(t *testing.T) {
	q := newTestQueue(t)

	q.Async(func() { panic("ignored") })

	ran := false
	require.NoError(t, q.Sync(context.Background(), func() { ran = true }))
	assert.True(t, ran)
}

func TestQueue_SyncAbandonedBeforeStart(t *testing.T) {
	q := newTestQueue(t)

	block := make(chan struct{})
	started := make(chan struct{})
	q.Async(func() {
		close(started)
		<-block
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	ran := false
	err := q.Sync(ctx, func() { ran = true })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, q.Len())

	close(block)
	require.NoError(t, q.Sync(context.Background(), func() {}))
	assert.False(t, ran, "abandoned task never runs")
	assert.Equal(t, 0, q.Len())
}

func TestQueue_SyncWaitsOnceStarted(t *testing.T) {
	q := newTestQueue(t)

	ctx, cancel := context.WithCancel(context.Background())
	finished := false
	err := q.Sync(ctx, func() {
		cancel()
		time.Sleep(10 * time.Millisecond)
		finished = true
	})
	require.NoError(t, err)
	assert.True(t, finished)
}

func TestQueue_Close(t *testing.T) {
	q := New("closing", zaptest.NewLogger(t))

	ran := 0
	for i := 0; i < 10; i++ {
		q.Async(func() { ran++ })
	}
	q.Close()
	q.Close()

	select {
	case <-q.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}

	assert.Equal(t, 10, ran, "queued tasks run before the worker exits")
	assert.False(t, q.Async(func() {}))
	assert.ErrorIs(t, q.Sync(context.Background(), func() {}), ErrClosed)
}
