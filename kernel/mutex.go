package kernel

import "sync"

// QueuedMutex is a mutex whose Lock parks the calling *process* rather
// than its OS thread. A plain sync.Mutex is
// unusable for anything held across a CSP suspension point: the blocked
// goroutine would hold its kernel thread's turn forever, stalling every
// other process homed there. QueuedMutex instead queues waiters on an
// intrusive RunQueue and hands ownership directly to the head waiter at
// Unlock, so contention costs one rendezvous-style park, FIFO-fair.
//
// The channel package's shared ends (the shared mutex of an Any-writer
// Writer or an Any-reader Reader) are the primary users: those are held
// across the entire write/read including any parked wait.
type QueuedMutex struct {
	mu      sync.Mutex
	held    bool
	waiters RunQueue
}

// Lock acquires the mutex, parking the calling process until it is
// granted ownership.
func (m *QueuedMutex) Lock(ctx *Context) {
	m.mu.Lock()
	if !m.held {
		m.held = true
		m.mu.Unlock()
		return
	}
	m.waiters.PushBack(ctx.Process())
	m.mu.Unlock()
	ctx.Block("mutex.lock")
}

// Unlock releases the mutex. If any process is queued, ownership
// transfers directly to the head waiter, which is woken; held never
// drops to false while waiters remain, so a barging Lock cannot
// overtake the queue.
func (m *QueuedMutex) Unlock(ctx *Context) {
	m.mu.Lock()
	if p := m.waiters.PopFront(); p != nil {
		m.mu.Unlock()
		Wake(p, ctx)
		return
	}
	m.held = false
	m.mu.Unlock()
}

// Held reports whether the mutex is currently owned. Inspection only:
// the answer may be stale by the time the caller acts on it.
func (m *QueuedMutex) Held() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held
}
