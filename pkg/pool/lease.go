package pool

import "sync/atomic"

// Lease is a checked-out instance bound to the slot it came from. Release
// frees that slot and nothing else, so leases are unaffected by duplicate
// values in the pool. A lease taken before a Drain is orphaned by it and its
// Release does nothing.
//
//	lease, err := p.AcquireLease()
//	if err != nil {
//		return err
//	}
//	defer lease.Release()
//	use(lease.Value())
type Lease[T comparable] struct {
	pool       *Pool[T]
	value      T
	slot       int
	generation uint64
	released   atomic.Bool
}

// Value returns the leased instance.
func (l *Lease[T]) Value() T {
	return l.value
}

// Slot returns the index of the leased slot.
func (l *Lease[T]) Slot() int {
	return l.slot
}

// Release returns the instance to its slot. Only the first call has an
// effect, and like Pool.Release it does not wait for the pool's worker.
func (l *Lease[T]) Release() {
	if l == nil || !l.released.CompareAndSwap(false, true) {
		return
	}
	p, slot, generation := l.pool, l.slot, l.generation
	p.queue.Async(func() {
		p.checkinSlot(slot, generation)
	})
}

// Released reports whether Release has been called.
func (l *Lease[T]) Released() bool {
	return l.released.Load()
}
