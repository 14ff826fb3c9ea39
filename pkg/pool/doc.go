// Package pool implements a generic, thread-safe object pool: a fixed or
// growable set of pre-constructed instances that callers check out with
// Acquire and hand back with Release, so construction cost is paid once.
//
// Architecture
//
// A Pool[T] keeps its instances in insertion order together with a parallel
// table of availability flags. The slot index is the position in that order.
// Every mutating operation runs on a single worker goroutine owned by the
// pool, one at a time and in submission order:
//
//   - Acquire blocks until the worker has served it and returns the instance
//     or an error.
//   - Release and Drain are queued and return immediately. A released
//     instance is not guaranteed to be visible as free until the worker
//     reaches the request.
//
// Policies
//
// When no slot is free, Static pools fail with ErrDrained and Dynamic pools
// create one more instance, which then stays in the pool.
//
//	p := pool.New(2, pool.Static, func(c *Conn) { c.Dial() })
//	defer p.Close()
//
//	conn, err := p.Acquire()
//	if errors.Is(err, pool.ErrDrained) {
//		// all connections are busy
//	}
//	defer p.Release(conn)
//
// Hooks
//
// The factory passed to New runs once for every instance the pool creates.
// OnAcquire and OnRelease hooks run for every successful checkout and return.
// Hooks run on the worker goroutine, serialized by a lock of their own. A hook
// may call Release, Drain, the hook setters and the observers; it must not call
// Acquire, which would wait on the very worker that is running the hook.
//
// Leases
//
// Release finds the slot by comparing values, which is ambiguous when two
// slots hold equal values. AcquireLease returns a Lease that remembers its slot
// and releases exactly that slot, at most once:
//
//	err := p.Do(ctx, func(c *Conn) error {
//		return c.Send(msg)
//	})
//
// Observability
//
// Pools accept a zap logger (WithLogger), Prometheus collectors
// (WithMetrics) and an OpenTelemetry tracer (WithTracer). Size, AcquireCount
// and Stats read counters published by the worker and never block.
package pool
