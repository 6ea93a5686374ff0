package channel

import "github.com/dcreager/gocsp/kernel"

// EnableAlt registers p as alting on this channel's input guard. It
// returns true if data is already
// available (a parked writer, a non-empty buffer, or the channel is
// poisoned) without registering anything; a later DisableAlt then finds
// no registration to clear and only re-reports readiness.
//
// fire is invoked by a writer that later arrives while p is still
// registered; it must perform the Alting-Waiting -> Ready (or
// Enabling -> Enabling-Fired) transition on p's process state and wake
// it if the latter CAS wins. It is supplied by the alt package so this
// package never needs to know about alt's state machine.
func (r *Reader[T]) EnableAlt(p *kernel.Process, fire func()) bool {
	ch := r.ch
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.poisoned.Load() {
		return true
	}
	if ch.pendingWriterLocked() {
		return true
	}
	if ch.buf != nil && ch.buf.InputWouldSucceed() {
		return true
	}

	ch.altProc = p
	ch.altFire = fire
	return false
}

// DisableAlt unregisters p from this channel's guard and reports
// whether a read would not block right now — a writer with an
// undelivered value is parked, the buffer is non-empty, or the channel
// is poisoned. Readiness is re-derived from the channel state rather
// than inferred from the registration having been cleared: the same
// Reader may occupy several guard positions in one Alt as repeated
// guards, and only the first Disable finds the registration —
// the rest must still answer for the data, not for the bookkeeping.
func (r *Reader[T]) DisableAlt(p *kernel.Process) bool {
	ch := r.ch
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.altProc == p {
		ch.altProc = nil
		ch.altFire = nil
	}

	if ch.poisoned.Load() {
		return true
	}
	if ch.pendingWriterLocked() {
		return true
	}
	if ch.buf != nil && ch.buf.InputWouldSucceed() {
		return true
	}
	return false
}
