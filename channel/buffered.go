package channel

import (
	"github.com/dcreager/gocsp/kernel"
)

// New1to1Buffered constructs a buffered one-reader/one-writer channel.
func New1to1Buffered[T any](policy BufferPolicy, opts ...Option) (*Reader[T], *Writer[T]) {
	ch := newChannel[T](opts)
	ch.buf = newBuffer[T](policy)
	return &Reader[T]{ch: ch}, &Writer[T]{ch: ch}
}

// New1toAnyBuffered constructs a buffered one-reader/any-writer channel.
func New1toAnyBuffered[T any](policy BufferPolicy, opts ...Option) (*Reader[T], *Writer[T]) {
	ch := newChannel[T](opts)
	ch.buf = newBuffer[T](policy)
	return &Reader[T]{ch: ch}, &Writer[T]{ch: ch, shared: &kernel.QueuedMutex{}}
}

// NewAnyTo1Buffered constructs a buffered any-reader/one-writer channel.
func NewAnyTo1Buffered[T any](policy BufferPolicy, opts ...Option) (*Reader[T], *Writer[T]) {
	ch := newChannel[T](opts)
	ch.buf = newBuffer[T](policy)
	return &Reader[T]{ch: ch, shared: &kernel.QueuedMutex{}}, &Writer[T]{ch: ch}
}

// NewAnyToAnyBuffered constructs a buffered any-reader/any-writer channel.
func NewAnyToAnyBuffered[T any](policy BufferPolicy, opts ...Option) (*Reader[T], *Writer[T]) {
	ch := newChannel[T](opts)
	ch.buf = newBuffer[T](policy)
	return &Reader[T]{ch: ch, shared: &kernel.QueuedMutex{}}, &Writer[T]{ch: ch, shared: &kernel.QueuedMutex{}}
}

// readBuffered is called with ch.mu already held; it always unlocks
// before returning.
func (ch *Channel[T]) readBuffered(ctx *kernel.Context) (T, error) {
	var zero T

	if ch.buf.InputWouldSucceed() {
		v := ch.buf.Get()

		if ch.waiting != nil && ch.waitingRole == roleWriter {
			pendingVal := *ch.src
			ch.buf.Put(pendingVal)
			p := ch.waiting
			ch.clearWaiting()
			ch.mu.Unlock()
			kernel.Wake(p, ctx)
			return v, nil
		}

		ch.mu.Unlock()
		return v, nil
	}

	if ch.poisoned.Load() {
		ch.mu.Unlock()
		return zero, ch.poisonErr()
	}

	var oc rendezvousOutcome
	ch.waiting = ctx.Process()
	ch.waitingRole = roleReader
	ch.outcome = &oc
	ch.mu.Unlock()

	ctx.Block("channel.read.buffered")

	if oc.poisoned {
		return zero, ch.poisonErr()
	}

	ch.mu.Lock()
	v := ch.buf.Get()
	ch.mu.Unlock()
	return v, nil
}

// writeBuffered is called with ch.mu already held; it always unlocks
// before returning.
func (ch *Channel[T]) writeBuffered(ctx *kernel.Context, v T) error {
	if ch.poisoned.Load() {
		ch.mu.Unlock()
		return ch.poisonErr()
	}

	if ch.buf.OutputWouldSucceed(&v) {
		ch.buf.Put(v)

		if ch.waiting != nil && ch.waitingRole == roleReader {
			p := ch.waiting
			ch.clearWaiting()
			ch.mu.Unlock()
			kernel.Wake(p, ctx)
			return nil
		}

		if ch.altProc != nil && ch.buf.InputWouldSucceed() {
			fire := ch.altFire
			ch.altProc = nil
			ch.altFire = nil
			ch.mu.Unlock()
			fire()
			return nil
		}

		ch.mu.Unlock()
		return nil
	}

	var oc rendezvousOutcome
	ch.src = &v
	ch.waiting = ctx.Process()
	ch.waitingRole = roleWriter
	ch.outcome = &oc
	ch.mu.Unlock()

	ctx.Block("channel.write.buffered")

	if oc.poisoned {
		return ch.poisonErr()
	}
	return nil
}
