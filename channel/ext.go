package channel

import "github.com/dcreager/gocsp/kernel"

// ExtReader holds the value received by Reader.ExtInput and the peer
// writer (if any) awaiting release. Callers must call Close exactly
// once, typically via defer, once the extended action is finished.
type ExtReader[T any] struct {
	ch     *Channel[T]
	value  T
	peer   *kernel.Process
	shared *kernel.QueuedMutex // held since ExtInput on Any-reader channels
}

// Value returns the value received at the start of the extended input.
func (e *ExtReader[T]) Value() T { return e.value }

// Close releases the peer writer parked awaiting this extended input's
// completion, and releases the shared reader mutex on Any-reader
// channels. Safe to call even if the channel was poisoned mid-action
// (poison never reaches a writer that already delivered its value and
// is merely awaiting release); waking is a no-op if no writer is
// pending (the value came from a buffer). Idempotent.
func (e *ExtReader[T]) Close(ctx *kernel.Context) {
	if e.peer != nil {
		kernel.Wake(e.peer, ctx)
		e.peer = nil
	}
	if e.shared != nil {
		e.shared.Unlock(ctx)
		e.shared = nil
	}
}
