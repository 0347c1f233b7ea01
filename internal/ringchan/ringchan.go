// Package ringchan is a bounded, never-blocking event queue.
//
// The scan delegator emits source events from its reactor goroutine, which
// must never wait on a slow terminal. Producers Send into a Ring; when the
// buffer is full the oldest event is dropped and counted.
package ringchan

import (
	"sync"
	"sync/atomic"
)

// Ring is a buffered channel with overwrite-oldest semantics.
type Ring[T any] struct {
	ch chan T

	// serializes producers so the drop-then-send pair cannot interleave
	mu     sync.Mutex
	closed bool

	sent    atomic.Int64
	dropped atomic.Int64
}

// New returns a ring holding at most capacity items.
func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("ringchan: capacity must be > 0")
	}
	return &Ring[T]{ch: make(chan T, capacity)}
}

// C returns the receive side. It is closed by Close.
func (r *Ring[T]) C() <-chan T {
	return r.ch
}

// Send queues v, discarding the oldest item if the ring is full. It reports
// whether an item was discarded. Sending on a closed ring is a no-op.
func (r *Ring[T]) Send(v T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}

	dropped := false
	for {
		select {
		case r.ch <- v:
			r.sent.Add(1)
			return dropped
		default:
		}
		select {
		case <-r.ch:
			r.dropped.Add(1)
			dropped = true
		default:
		}
	}
}

// Len is the number of queued items.
func (r *Ring[T]) Len() int {
	return len(r.ch)
}

// Cap is the ring capacity.
func (r *Ring[T]) Cap() int {
	return cap(r.ch)
}

// Sent counts accepted items, dropped ones included.
func (r *Ring[T]) Sent() int64 {
	return r.sent.Load()
}

// Dropped counts items discarded to make room.
func (r *Ring[T]) Dropped() int64 {
	return r.dropped.Load()
}

// Close closes the receive side. Further sends are ignored.
func (r *Ring[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.ch)
	}
}
