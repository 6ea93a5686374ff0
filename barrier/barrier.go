// Package barrier implements multi-party synchronizers: Barrier (an
// enrolled group that must all arrive before any proceeds) and Bucket (a
// barrier with no fixed membership, released explicitly by Flush).
//
// The parked-process bookkeeping reuses kernel.RunQueue and
// kernel.WakeChain, and the mutex is held only
// across count/queue updates, never across a suspension.
package barrier

import (
	"errors"
	"sync"

	"github.com/dcreager/gocsp/kernel"
)

// ErrNotEnrolled is returned by Sync when called on an End that has
// Resigned (or was HalfEnroll'd but never CompleteEnroll'd).
var ErrNotEnrolled = errors.New("gocsp: barrier end is not enrolled")

// ErrAlreadyEnrolled is returned by Enroll/CompleteEnroll when called
// on an End that is already active, leaving the panic-or-not choice on
// misuse to the caller.
var ErrAlreadyEnrolled = errors.New("gocsp: barrier end is already enrolled")

// Barrier is a multi-party synchronizer: enrolled
// parties each call Sync once per round; the last to do so releases
// every other parked party and resets for the next round.
type Barrier struct {
	mu         sync.Mutex
	enrolled   int
	leftToSync int
	parked     kernel.RunQueue
}

// New constructs an empty Barrier (no parties enrolled).
func New() *Barrier {
	return &Barrier{}
}

// End is the linear handle one enrolled party uses to Sync, Resign, and
// re-Enroll. Hand an *End to exactly one goroutine/process at a time;
// MobileEnrolledEnd enforces that transfer when it matters.
type End struct {
	b      *Barrier
	active bool
}

// EnrolledEnd constructs a fully-enrolled End in one step: the returned
// End immediately counts toward both enrolled and the current round's
// leftToSync.
func (b *Barrier) EnrolledEnd() *End {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enrolled++
	b.leftToSync++
	return &End{b: b, active: true}
}

// MobileEnrolledEnd wraps a fresh enrolled End in a linear
// kernel.Mobile handle, for handing to a child process without
// aliasing: the parent transfers ownership with Take exactly once, and
// a second Take panics instead of silently sharing the End.
func (b *Barrier) MobileEnrolledEnd() *kernel.Mobile[*End] {
	m := kernel.NewMobile(b.EnrolledEnd())
	return &m
}

// HalfEnroll constructs an End that counts toward enrolled (so other
// parties' Sync calls already expect it) but does not yet participate in
// the current round; CompleteEnroll must be called — typically by the
// child process the End is handed to — before its first Sync. This lets
// a parent enroll on a not-yet-started child's behalf without a
// enroll-vs-first-sync race.
func (b *Barrier) HalfEnroll() *End {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enrolled++
	return &End{b: b, active: false}
}

// CompleteEnroll finishes a HalfEnroll, making e participate in the
// current round's leftToSync count. Returns ErrAlreadyEnrolled if e is
// already active.
func (e *End) CompleteEnroll() error {
	b := e.b
	b.mu.Lock()
	if e.active {
		b.mu.Unlock()
		return ErrAlreadyEnrolled
	}
	e.active = true
	b.leftToSync++
	b.maybeReleaseLocked(nil)
	return nil
}

// Enroll re-joins the barrier after a prior Resign, counting toward both
// enrolled and leftToSync. Returns ErrAlreadyEnrolled if e is already
// active.
func (e *End) Enroll() error {
	b := e.b
	b.mu.Lock()
	if e.active {
		b.mu.Unlock()
		return ErrAlreadyEnrolled
	}
	e.active = true
	b.enrolled++
	b.leftToSync++
	b.maybeReleaseLocked(nil)
	return nil
}

// Resign leaves the barrier: enrolled and leftToSync both decrement. If
// this was the last outstanding sync for the current round, it completes
// the round and releases any parked parties. A no-op if already
// inactive.
func (e *End) Resign() {
	b := e.b
	b.mu.Lock()
	if !e.active {
		b.mu.Unlock()
		return
	}
	e.active = false
	b.enrolled--
	b.leftToSync--
	b.maybeReleaseLocked(nil)
}

// Sync decrements leftToSync; if other parties are still outstanding for
// this round, the caller parks until the round completes. The last
// caller to Sync releases every other parked party (in insertion order
// per home thread) and resets leftToSync to enrolled for the next round.
func (e *End) Sync(ctx *kernel.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b := e.b
	b.mu.Lock()
	if !e.active {
		b.mu.Unlock()
		return ErrNotEnrolled
	}

	b.leftToSync--
	if b.leftToSync > 0 {
		b.parked.PushBack(ctx.Process())
		b.mu.Unlock()
		ctx.Block("barrier.sync")
		return nil
	}

	b.releaseLocked(ctx)
	return nil
}

// maybeReleaseLocked releases the round if leftToSync has reached zero
// (possible via Resign/CompleteEnroll as well as Sync). Must be called
// with b.mu held; always unlocks.
func (b *Barrier) maybeReleaseLocked(ctx *kernel.Context) {
	if b.leftToSync > 0 {
		b.mu.Unlock()
		return
	}
	b.releaseLocked(ctx)
}

// releaseLocked wakes every parked party and resets for the next round.
// Must be called with b.mu held; always unlocks before waking, since
// waking may synchronously touch a run queue. The whole batch goes out
// through WakeChain, which splices per-home-thread sub-chains onto the
// local run queue or the remote atomic queues in one push each.
func (b *Barrier) releaseLocked(ctx *kernel.Context) {
	head, _, _ := b.parked.TakeAll()
	b.leftToSync = b.enrolled
	b.mu.Unlock()

	kernel.WakeChain(head, ctx)
}

// Enrolled reports the current number of active parties.
func (b *Barrier) Enrolled() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enrolled
}

// LeftToSync reports how many active parties have not yet called Sync
// in the current round.
func (b *Barrier) LeftToSync() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.leftToSync
}
