// Package serial provides a single-worker FIFO task queue.
//
// A Queue owns one goroutine that runs submitted tasks one at a time, in
// submission order. Callers either wait for their task (Sync) or hand it off
// and continue (Async). All state touched only from inside tasks is therefore
// free of data races without further locking.
//
//	q := serial.New("slots", logger)
//	defer q.Close()
//
//	q.Async(func() { counter++ })
//	_ = q.Sync(ctx, func() { fmt.Println(counter) })
package serial

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ErrClosed is returned by Sync when the queue no longer accepts tasks.
var ErrClosed = errors.New("serial: queue is closed")

const (
	taskPending int32 = iota
	taskRunning
	taskAbandoned
)

type task struct {
	fn    func()
	state atomic.Int32
	done  chan struct{} // nil for async tasks
	panic any
}

// Queue runs tasks sequentially on a dedicated worker goroutine.
type Queue struct {
	name   string
	logger *zap.Logger

	mu      sync.Mutex
	tasks   []*task
	closed  bool
	notify  chan struct{}
	stopped chan struct{}
	pending atomic.Int64
}

// New creates a queue and starts its worker. A nil logger disables logging.
func New(name string, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &Queue{
		name:    name,
		logger:  logger.With(zap.String("queue", name)),
		notify:  make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go q.run()
	return q
}

// Async enqueues fn without waiting for it to run. The queue is unbounded, so
// Async never blocks on a busy worker. It reports false if the queue is closed.
func (q *Queue) Async(fn func()) bool {
	return q.enqueue(&task{fn: fn})
}

// Sync enqueues fn and waits until it has run.
//
// If ctx ends before the worker picks the task up, the task is abandoned and
// ctx.Err() is returned; fn will never run. Once fn has started, Sync waits for
// it regardless of ctx. A panic inside fn is re-raised in the caller.
func (q *Queue) Sync(ctx context.Context, fn func()) error {
	t := &task{fn: fn, done: make(chan struct{})}
	if !q.enqueue(t) {
		return ErrClosed
	}

	select {
	case <-t.done:
	case <-ctx.Done():
		if t.state.CompareAndSwap(taskPending, taskAbandoned) {
			return ctx.Err()
		}
		<-t.done
	}

	if t.panic != nil {
		panic(t.panic)
	}
	return nil
}

// Len returns the number of tasks waiting to run.
func (q *Queue) Len() int {
	return int(q.pending.Load())
}

// Close stops accepting tasks. Tasks already queued still run, after which
// the worker exits. Close does not wait; use Done for that.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

// Done is closed once the worker has exited.
func (q *Queue) Done() <-chan struct{} {
	return q.stopped
}

func (q *Queue) enqueue(t *task) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.tasks = append(q.tasks, t)
	q.pending.Add(1)
	q.mu.Unlock()
	q.signal()
	return true
}

func (q *Queue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *Queue) run() {
	defer close(q.stopped)

	for {
		q.mu.Lock()
		batch := q.tasks
		q.tasks = nil
		closed := q.closed
		q.mu.Unlock()

		for _, t := range batch {
			q.pending.Add(-1)
			q.execute(t)
		}

		if len(batch) > 0 {
			continue
		}
		if closed {
			q.logger.Debug("queue worker stopped")
			return
		}
		<-q.notify
	}
}

func (q *Queue) execute(t *task) {
	if !t.state.CompareAndSwap(taskPending, taskRunning) {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("task panicked", zap.String("panic", fmt.Sprint(r)))
			t.panic = r
		}
		if t.done != nil {
			close(t.done)
		}
	}()
	t.fn()
}
