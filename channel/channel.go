// Package channel implements gocsp's synchronous rendezvous channels: the
// four sharing variants (one/any reader × one/any writer), each with an
// unbuffered and a buffered form, extended input, poison propagation,
// and the enable/disable hooks the alt package builds ALT guards on top
// of.
//
// The rendezvous protocol maintains three invariants: at most one party
// is parked on a channel at a time, src and dst are exclusive, and
// poison arriving after a successful communication never converts that
// communication into a failure. Suspend/resume mechanics reuse
// kernel.Context.Block and kernel.Wake.
package channel

import (
	"sync"
	"sync/atomic"

	"github.com/dcreager/gocsp/kernel"
)

type role int

const (
	roleNone role = iota
	roleReader
	roleWriter
)

// rendezvousOutcome is a per-parking-attempt cell the blocked goroutine
// owns on its own stack; the party that wakes it writes into the cell
// before calling kernel.Wake, and the happens-before edge established by
// the turn-token handoff (see kernel.Context.Block) makes the write
// visible to the resuming reader/writer without any lock or atomic.
type rendezvousOutcome struct {
	poisoned bool
}

// Channel is the shared rendezvous object behind a Reader/Writer pair.
// It is never constructed directly by users;
// use one of the New*/New*Buffered constructors.
type Channel[T any] struct {
	name string
	mu   sync.Mutex

	waiting     *kernel.Process
	waitingRole role
	// waitingExt marks a parked reader as having arrived via ExtInput
	// rather than Read: a writer that delivers to it must park itself
	// awaiting release instead of returning immediately.
	waitingExt bool
	// waitingIsExtRelease marks a parked writer as already having
	// delivered its value and now merely awaiting an extended-input
	// release signal; Poison must not treat this as a pending
	// rendezvous to fail (late-poison immunity covers this window too).
	waitingIsExtRelease bool
	outcome             *rendezvousOutcome

	src *T
	dst *T

	// altProc/altFire implement the ALT enable/disable contract: a
	// reader-side guard registration, distinct from an
	// ordinary parked reader, since the alter does not supply a dst
	// until it performs its own Read after winning selection.
	altProc *kernel.Process
	altFire func()

	poisoned atomic.Bool
	buf      Buffer[T]
}

// Option configures a channel at construction.
type Option func(*channelConfig)

type channelConfig struct {
	name string
}

// WithName attaches a debug name to a channel, surfaced in PoisonError
// and deadlock reports.
func WithName(name string) Option {
	return func(c *channelConfig) { c.name = name }
}

func buildConfig(opts []Option) channelConfig {
	var c channelConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func newChannel[T any](opts []Option) *Channel[T] {
	c := buildConfig(opts)
	return &Channel[T]{name: c.name}
}

// Reader is the receiving end of a channel.
//
// The shared mutex (present on Any-reader variants) is a
// kernel.QueuedMutex, not a sync.Mutex: it is held across the entire
// read including any parked wait, and a blocked OS-level mutex would
// stall the holder's whole kernel thread rather than just the process.
type Reader[T any] struct {
	ch     *Channel[T]
	shared *kernel.QueuedMutex // non-nil for Any-reader variants
}

// Writer is the sending end of a channel.
type Writer[T any] struct {
	ch     *Channel[T]
	shared *kernel.QueuedMutex // non-nil for Any-writer variants
}

// New1to1 constructs an unbuffered one-reader/one-writer channel.
func New1to1[T any](opts ...Option) (*Reader[T], *Writer[T]) {
	ch := newChannel[T](opts)
	return &Reader[T]{ch: ch}, &Writer[T]{ch: ch}
}

// New1toAny constructs an unbuffered one-reader/any-writer channel: any
// number of writer handles may call Write concurrently, serialized by a
// shared writer-side mutex held across the entire write, including any
// parked wait.
func New1toAny[T any](opts ...Option) (*Reader[T], *Writer[T]) {
	ch := newChannel[T](opts)
	return &Reader[T]{ch: ch}, &Writer[T]{ch: ch, shared: &kernel.QueuedMutex{}}
}

// NewAnyTo1 constructs an unbuffered any-reader/one-writer channel.
func NewAnyTo1[T any](opts ...Option) (*Reader[T], *Writer[T]) {
	ch := newChannel[T](opts)
	return &Reader[T]{ch: ch, shared: &kernel.QueuedMutex{}}, &Writer[T]{ch: ch}
}

// NewAnyToAny constructs an unbuffered any-reader/any-writer channel.
func NewAnyToAny[T any](opts ...Option) (*Reader[T], *Writer[T]) {
	ch := newChannel[T](opts)
	return &Reader[T]{ch: ch, shared: &kernel.QueuedMutex{}}, &Writer[T]{ch: ch, shared: &kernel.QueuedMutex{}}
}

// pendingWriterLocked reports whether a writer is parked with an
// undelivered value. A writer in the ext-release state already handed
// its value to the extended reader; it is awaiting release, not offering
// data, so it must not count.
func (ch *Channel[T]) pendingWriterLocked() bool {
	return ch.waiting != nil && ch.waitingRole == roleWriter && !ch.waitingIsExtRelease
}

func (ch *Channel[T]) clearWaiting() {
	ch.waiting = nil
	ch.waitingRole = roleNone
	ch.waitingExt = false
	ch.waitingIsExtRelease = false
	ch.outcome = nil
	ch.src = nil
	ch.dst = nil
}

// Read receives a value, blocking until a writer (or buffered value) is
// available. Returns a *PoisonError if the channel is or becomes
// poisoned before a value arrives.
func (r *Reader[T]) Read(ctx *kernel.Context) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	if r.shared != nil {
		r.shared.Lock(ctx)
		defer r.shared.Unlock(ctx)
	}
	return r.ch.read(ctx)
}

// Pending reports whether a Read would not block right now: true if a
// writer is parked, a buffered value is
// available, or the channel is poisoned.
func (r *Reader[T]) Pending() bool {
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
	return false
}

// Poisoned reports whether the channel has been poisoned. Inspection
// only; a Read may still succeed afterward if buffered values remain.
func (r *Reader[T]) Poisoned() bool { return r.ch.poisoned.Load() }

// Poison marks the channel poisoned, waking any parked party of the
// opposite role (or firing a registered ALT guard).
func (r *Reader[T]) Poison() { r.ch.poison() }

// Write sends a value, blocking until a reader (or buffer capacity) is
// available. Returns a *PoisonError if the channel is or becomes
// poisoned before the value is accepted.
func (w *Writer[T]) Write(ctx *kernel.Context, v T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.shared != nil {
		w.shared.Lock(ctx)
		defer w.shared.Unlock(ctx)
	}
	return w.ch.write(ctx, v)
}

// Poisoned reports whether the channel has been poisoned.
func (w *Writer[T]) Poisoned() bool { return w.ch.poisoned.Load() }

// Poison marks the channel poisoned, waking any parked party of the
// opposite role.
func (w *Writer[T]) Poison() { w.ch.poison() }

func (ch *Channel[T]) poison() {
	ch.mu.Lock()
	ch.poisoned.Store(true)

	if ch.waiting != nil && !ch.waitingIsExtRelease {
		if ch.outcome != nil {
			ch.outcome.poisoned = true
		}
		p := ch.waiting
		ch.clearWaiting()
		ch.mu.Unlock()
		kernel.Wake(p, nil)
		return
	}

	if ch.altProc != nil {
		fire := ch.altFire
		ch.altProc = nil
		ch.altFire = nil
		ch.mu.Unlock()
		fire()
		return
	}

	ch.mu.Unlock()
}

func (ch *Channel[T]) poisonErr() error {
	return &PoisonError{Name: ch.name}
}

func (ch *Channel[T]) read(ctx *kernel.Context) (T, error) {
	var zero T

	ch.mu.Lock()

	if ch.buf != nil {
		return ch.readBuffered(ctx)
	}

	if ch.poisoned.Load() {
		ch.mu.Unlock()
		return zero, ch.poisonErr()
	}

	if ch.pendingWriterLocked() {
		v := *ch.src
		p := ch.waiting
		ch.clearWaiting()
		ch.mu.Unlock()
		kernel.Wake(p, ctx)
		return v, nil
	}

	var dst T
	var oc rendezvousOutcome
	ch.dst = &dst
	ch.waiting = ctx.Process()
	ch.waitingRole = roleReader
	ch.outcome = &oc
	ch.mu.Unlock()

	ctx.Block("channel.read")

	if oc.poisoned {
		return zero, ch.poisonErr()
	}
	return dst, nil
}

func (ch *Channel[T]) write(ctx *kernel.Context, v T) error {
	ch.mu.Lock()

	if ch.buf != nil {
		return ch.writeBuffered(ctx, v)
	}

	if ch.poisoned.Load() {
		ch.mu.Unlock()
		return ch.poisonErr()
	}

	if ch.waiting != nil && ch.waitingRole == roleReader {
		if !ch.waitingExt {
			*ch.dst = v
			p := ch.waiting
			ch.clearWaiting()
			ch.mu.Unlock()
			kernel.Wake(p, ctx)
			return nil
		}

		// Extended input: deliver the value, but park ourselves
		// awaiting release instead of returning immediately.
		*ch.dst = v
		readerP := ch.waiting
		var oc rendezvousOutcome
		ch.dst = nil
		ch.waiting = ctx.Process()
		ch.waitingRole = roleWriter
		ch.waitingExt = false
		ch.waitingIsExtRelease = true
		ch.outcome = &oc
		ch.mu.Unlock()

		kernel.Wake(readerP, ctx)
		ctx.Block("channel.write.extrelease")

		if oc.poisoned {
			return ch.poisonErr()
		}
		return nil
	}

	if ch.altProc != nil {
		fire := ch.altFire
		ch.altProc = nil
		ch.altFire = nil

		var oc rendezvousOutcome
		ch.src = &v
		ch.waiting = ctx.Process()
		ch.waitingRole = roleWriter
		ch.outcome = &oc
		ch.mu.Unlock()

		fire()
		ctx.Block("channel.write")

		if oc.poisoned {
			return ch.poisonErr()
		}
		return nil
	}

	var oc rendezvousOutcome
	ch.src = &v
	ch.waiting = ctx.Process()
	ch.waitingRole = roleWriter
	ch.outcome = &oc
	ch.mu.Unlock()

	ctx.Block("channel.write")

	if oc.poisoned {
		return ch.poisonErr()
	}
	return nil
}

// ExtInput begins an extended read: the returned ExtReader carries the
// received value, but the peer writer is not woken until Close is
// called. Callers must `defer ext.Close(ctx)` unconditionally, so a
// panic in the extended
// action still releases the writer without poisoning the channel.
//
// On an Any-reader channel the shared reader mutex is held until Close:
// the extended action runs under the peer's synchronization, so the
// read does not complete — and another reader must not start — until
// the extended input ends.
func (r *Reader[T]) ExtInput(ctx *kernel.Context) (*ExtReader[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.shared != nil {
		r.shared.Lock(ctx)
	}
	ext, err := r.ch.extInput(ctx)
	if err != nil {
		if r.shared != nil {
			r.shared.Unlock(ctx)
		}
		return nil, err
	}
	ext.shared = r.shared
	return ext, nil
}

func (ch *Channel[T]) extInput(ctx *kernel.Context) (*ExtReader[T], error) {
	ch.mu.Lock()

	if ch.buf != nil {
		v, err := ch.readBuffered(ctx)
		if err != nil {
			return nil, err
		}
		return &ExtReader[T]{ch: ch, value: v}, nil
	}

	if ch.poisoned.Load() {
		ch.mu.Unlock()
		return nil, ch.poisonErr()
	}

	if ch.pendingWriterLocked() {
		v := *ch.src
		p := ch.waiting
		ch.clearWaiting()
		ch.mu.Unlock()
		return &ExtReader[T]{ch: ch, value: v, peer: p}, nil
	}

	var dst T
	var oc rendezvousOutcome
	ch.dst = &dst
	ch.waiting = ctx.Process()
	ch.waitingRole = roleReader
	ch.waitingExt = true
	ch.outcome = &oc
	ch.mu.Unlock()

	ctx.Block("channel.extinput")

	if oc.poisoned {
		return nil, ch.poisonErr()
	}

	ch.mu.Lock()
	peer := ch.waiting
	ch.clearWaiting()
	ch.mu.Unlock()

	return &ExtReader[T]{ch: ch, value: dst, peer: peer}, nil
}
