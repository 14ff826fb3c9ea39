package pool

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/oganesson/internal/serial"
)

var (
	// ErrDrained is returned by Acquire when a Static pool has no free instance.
	ErrDrained = errors.New("pool: drained")
	// ErrClosed is returned by Acquire after the pool has been closed.
	ErrClosed = errors.New("pool: closed")
)

const tracerName = "github.com/ajitpratap0/oganesson/pkg/pool"

// Pool is a set of reusable instances of T. The zero value is not usable;
// create pools with New.
//
// Slots are identified by their index in insertion order. Release locates a
// slot by comparing values with ==, so pointer element types (compared by
// address) give each instance a distinct identity.
type Pool[T comparable] struct {
	name    string
	policy  Policy
	queue   *serial.Queue
	logger  *zap.Logger
	metrics *Metrics
	tracer  trace.Tracer

	construct func() T
	factory   func(T)

	// Worker-owned state. Only touched from tasks running on queue, or from
	// New before the queue exists.
	instances  []T
	available  []bool
	generation uint64
	onAcquire  func(T)
	onRelease  func(T)

	// hookMu excludes user callbacks from each other. It is never held while
	// waiting on the queue.
	hookMu sync.Mutex

	// Published by the worker for lock-free observers.
	size     atomic.Int64
	inUse    atomic.Int64
	acquires atomic.Uint64
	releases atomic.Uint64
	grown    atomic.Uint64
	rejected atomic.Uint64
	drains   atomic.Uint64
	closed   atomic.Bool
}

// Stats is a snapshot of pool counters.
type Stats struct {
	Size     int    `json:"size"`
	InUse    int    `json:"in_use"`
	Acquires uint64 `json:"acquires"`
	Releases uint64 `json:"releases"`
	Grown    uint64 `json:"grown"`
	Rejected uint64 `json:"rejected"`
	Drains   uint64 `json:"drains"`
}

// checkout is what the worker hands back for a successful acquire.
type checkout[T comparable] struct {
	value      T
	slot       int
	generation uint64
}

// New creates a pool holding size instances. Each instance is built with the
// zero-argument constructor and then passed to factory, if non-nil. A size of
// zero or less yields an empty pool.
//
// The constructor defaults to the zero value of T, or a newly allocated
// element when T is a pointer type; WithConstructor overrides it.
//
// Example:
//
//	type Counter struct{ n int }
//
//	p := pool.New(2, pool.Static, func(c *Counter) { c.n = 10 },
//		pool.WithName("counters"),
//		pool.WithLogger(logger),
//	)
//	defer p.Close()
func New[T comparable](size int, policy Policy, factory func(T), opts ...Option) *Pool[T] {
	s := settings{name: "default"}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}

	p := &Pool[T]{
		name:      s.name,
		policy:    policy,
		logger:    s.logger.With(zap.String("pool", s.name)),
		metrics:   s.metrics,
		tracer:    s.tracer,
		construct: defaultConstructor[T](),
		factory:   factory,
	}
	if s.constructor != nil {
		p.construct = typedOption[func() T](s.constructor, "WithConstructor")
	}
	if s.onAcquire != nil {
		p.onAcquire = typedOption[func(T)](s.onAcquire, "WithOnAcquire")
	}
	if s.onRelease != nil {
		p.onRelease = typedOption[func(T)](s.onRelease, "WithOnRelease")
	}

	if size > 0 {
		p.instances = make([]T, 0, size)
		p.available = make([]bool, 0, size)
		for i := 0; i < size; i++ {
			p.instances = append(p.instances, p.create())
			p.available = append(p.available, true)
		}
	}
	p.publish()

	p.queue = serial.New("pool."+s.name, p.logger)
	p.logger.Debug("pool created",
		zap.Int("size", len(p.instances)),
		zap.Stringer("policy", policy))
	return p
}

// Name returns the pool's label.
func (p *Pool[T]) Name() string {
	return p.name
}

// Policy returns the overflow policy fixed at construction.
func (p *Pool[T]) Policy() Policy {
	return p.policy
}

// Acquire checks out the first free instance in slot order. It blocks until
// the pool's worker has served every earlier request. A Static pool with no
// free instance returns ErrDrained; a Dynamic pool creates a new instance.
func (p *Pool[T]) Acquire() (T, error) {
	return p.AcquireContext(context.Background())
}

// AcquireContext is Acquire with a bound on the wait for the worker. If ctx
// ends before the request is served, nothing is checked out and ctx.Err() is
// returned.
func (p *Pool[T]) AcquireContext(ctx context.Context) (T, error) {
	c, err := p.acquire(ctx)
	return c.value, err
}

// AcquireLease checks out an instance like Acquire and returns a Lease that
// releases exactly that slot.
func (p *Pool[T]) AcquireLease() (*Lease[T], error) {
	return p.AcquireLeaseContext(context.Background())
}

// AcquireLeaseContext is AcquireLease bounded by ctx.
func (p *Pool[T]) AcquireLeaseContext(ctx context.Context) (*Lease[T], error) {
	c, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &Lease[T]{pool: p, value: c.value, slot: c.slot, generation: c.generation}, nil
}

// Do runs fn with a leased instance and releases it when fn returns or
// panics.
func (p *Pool[T]) Do(ctx context.Context, fn func(T) error) error {
	lease, err := p.AcquireLeaseContext(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()
	return fn(lease.Value())
}

// Release hands instance back to the pool. It returns immediately; the slot
// is freed when the worker reaches the request. Instances the pool does not
// know about, or that are already free, are ignored.
func (p *Pool[T]) Release(instance T) {
	p.queue.Async(func() {
		p.checkin(instance)
	})
}

// Drain removes every instance from the pool. Instances still checked out
// become orphans: releasing them later is a no-op. No hooks run for removed
// instances. Like Release, Drain returns before the worker has run it.
func (p *Pool[T]) Drain() {
	p.queue.Async(p.drain)
}

// OnAcquire replaces the hook run after every successful checkout. A nil
// hook clears it. The change is queued and applies to requests submitted
// after it.
func (p *Pool[T]) OnAcquire(hook func(T)) {
	p.queue.Async(func() {
		p.onAcquire = hook
	})
}

// OnRelease replaces the hook run after every effective release.
func (p *Pool[T]) OnRelease(hook func(T)) {
	p.queue.Async(func() {
		p.onRelease = hook
	})
}

// Flush waits until every request submitted before it has been served.
func (p *Pool[T]) Flush(ctx context.Context) error {
	if err := p.queue.Sync(ctx, func() {}); err != nil {
		if errors.Is(err, serial.ErrClosed) {
			return ErrClosed
		}
		return err
	}
	return nil
}

// Close runs the requests already queued, then stops the pool's worker and
// waits for it to exit. Later Acquire calls fail with ErrClosed and Release,
// Drain and the hook setters become no-ops. Close is idempotent. It must not
// be called from a hook.
func (p *Pool[T]) Close() {
	if p.closed.Swap(true) {
		<-p.queue.Done()
		return
	}
	p.queue.Close()
	<-p.queue.Done()
	p.logger.Debug("pool closed")
}

// Size returns the number of instances in the pool, free or checked out.
func (p *Pool[T]) Size() int {
	return int(p.size.Load())
}

// AcquireCount returns the number of instances currently checked out.
func (p *Pool[T]) AcquireCount() int {
	return int(p.inUse.Load())
}

// Stats returns the pool counters as of the last completed request.
func (p *Pool[T]) Stats() Stats {
	return Stats{
		Size:     int(p.size.Load()),
		InUse:    int(p.inUse.Load()),
		Acquires: p.acquires.Load(),
		Releases: p.releases.Load(),
		Grown:    p.grown.Load(),
		Rejected: p.rejected.Load(),
		Drains:   p.drains.Load(),
	}
}

func (p *Pool[T]) acquire(ctx context.Context) (checkout[T], error) {
	ctx, span := p.tracer.Start(ctx, "pool.acquire",
		trace.WithAttributes(
			attribute.String("pool.name", p.name),
			attribute.String("pool.policy", p.policy.String()),
		))
	defer span.End()

	start := time.Now()
	var (
		result checkout[T]
		err    error
	)
	if qerr := p.queue.Sync(ctx, func() {
		result, err = p.checkout()
	}); qerr != nil {
		if errors.Is(qerr, serial.ErrClosed) {
			qerr = ErrClosed
		}
		err = qerr
	}
	p.metrics.observeWait(p.name, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return checkout[T]{}, err
	}
	span.SetAttributes(attribute.Int("pool.slot", result.slot))
	return result, nil
}

// checkout runs on the worker.
func (p *Pool[T]) checkout() (checkout[T], error) {
	for i, free := range p.available {
		if free {
			p.available[i] = false
			return p.handOut(i), nil
		}
	}

	if p.policy != Dynamic {
		p.rejected.Add(1)
		p.metrics.rejectedAcquire(p.name)
		p.logger.Debug("acquire rejected", zap.Int("size", len(p.instances)))
		return checkout[T]{}, ErrDrained
	}

	p.instances = append(p.instances, p.create())
	p.available = append(p.available, false)
	p.grown.Add(1)
	p.metrics.grew(p.name)
	p.logger.Debug("pool grown", zap.Int("size", len(p.instances)))
	return p.handOut(len(p.instances) - 1), nil
}

// handOut completes a checkout of slot i, which must already be marked
// unavailable.
func (p *Pool[T]) handOut(i int) checkout[T] {
	obj := p.instances[i]
	p.acquires.Add(1)
	p.metrics.acquired(p.name)
	p.publish()
	p.invoke(p.onAcquire, obj)
	return checkout[T]{value: obj, slot: i, generation: p.generation}
}

// checkin runs on the worker. Only the first slot holding an equal value is
// considered; if that slot is already free the release is ignored, even when
// a later slot with an equal value is checked out. Leases avoid this.
func (p *Pool[T]) checkin(instance T) {
	for i, v := range p.instances {
		if v != instance {
			continue
		}
		if p.available[i] {
			p.logger.Debug("release ignored: instance already free", zap.Int("slot", i))
			return
		}
		p.free(i)
		return
	}
	p.logger.Debug("release ignored: unknown instance")
}

// checkinSlot runs on the worker and frees a slot taken by a lease.
func (p *Pool[T]) checkinSlot(slot int, generation uint64) {
	if generation != p.generation || slot >= len(p.available) || p.available[slot] {
		p.logger.Debug("lease release ignored",
			zap.Int("slot", slot),
			zap.Uint64("lease_generation", generation),
			zap.Uint64("generation", p.generation))
		return
	}
	p.free(slot)
}

func (p *Pool[T]) free(i int) {
	p.available[i] = true
	p.releases.Add(1)
	p.metrics.released(p.name)
	p.publish()
	p.invoke(p.onRelease, p.instances[i])
}

func (p *Pool[T]) drain() {
	removed := len(p.instances)
	p.instances = nil
	p.available = nil
	p.generation++
	p.drains.Add(1)
	p.metrics.drained(p.name)
	p.publish()
	p.logger.Debug("pool drained", zap.Int("removed", removed))
}

// create builds one instance and runs the factory on it.
func (p *Pool[T]) create() T {
	obj := p.construct()
	p.invoke(p.factory, obj)
	return obj
}

func (p *Pool[T]) invoke(hook func(T), obj T) {
	if hook == nil {
		return
	}
	p.hookMu.Lock()
	defer p.hookMu.Unlock()
	hook(obj)
}

// publish copies worker-owned counts into the atomics read by observers.
func (p *Pool[T]) publish() {
	size := len(p.instances)
	inUse := 0
	for _, free := range p.available {
		if !free {
			inUse++
		}
	}
	p.size.Store(int64(size))
	p.inUse.Store(int64(inUse))
	p.metrics.setGauges(p.name, size, inUse)
}

func defaultConstructor[T comparable]() func() T {
	typ := reflect.TypeFor[T]()
	if typ.Kind() == reflect.Pointer {
		elem := typ.Elem()
		return func() T {
			return reflect.New(elem).Interface().(T)
		}
	}
	return func() T {
		var zero T
		return zero
	}
}

func typedOption[F any](v any, option string) F {
	fn, ok := v.(F)
	if !ok {
		var want F
		panic(fmt.Sprintf("pool: %s given %T, pool expects %T", option, v, want))
	}
	return fn
}
