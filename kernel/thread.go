package kernel

import (
	"context"
	"runtime"
	"sync/atomic"

	"github.com/dcreager/gocsp/csptime"
)

// Thread is one kernel (OS) thread: a single goroutine pinned with
// runtime.LockOSThread, running a cooperative FIFO scheduling loop over
// the Processes whose home is this Thread. Multiple Threads run in
// parallel across a Scheduler; Processes never migrate between them
// once spawned.
//
// Each tick drains the inbound queue, fires due timers, then runs
// exactly one Process through the turn/backCh handshake — a Process's
// body is a suspendable goroutine rather than a plain function call.
type Thread struct {
	id      uint64
	sched   *Scheduler
	local   RunQueue
	inbound *AtomicProcessQueue
	timers  *timerQueue
	extCtx  context.Context

	// idle is the thread's quiescence signal for the deadlock watchdog:
	// set by the owning goroutine (only) just before parking with no
	// local work and no pending timers, cleared as soon as it resumes.
	// The watchdog must not touch local or timers directly — both are
	// owner-only, lock-free structures.
	idle atomic.Bool

	stopCh chan struct{}
	doneCh chan struct{}
}

func newThread(id uint64, sched *Scheduler, extCtx context.Context) *Thread {
	return &Thread{
		id:      id,
		sched:   sched,
		inbound: NewAtomicProcessQueue(),
		timers:  newTimerQueue(),
		extCtx:  extCtx,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// ID returns the thread's stable identity, used in logging and Stats.
func (t *Thread) ID() uint64 { return t.id }

// spawn creates a new Process homed on this thread, running fn, and
// appends it to the local run queue. Must be called from t's own
// goroutine (the fast, same-thread path); cross-thread spawns go through
// Scheduler.Fork instead.
func (t *Thread) spawn(fn Task) *Process {
	p := &Process{
		id:     t.sched.nextProcessID(),
		fn:     fn,
		state:  newProcState(StateReady),
		home:   t,
		turnCh: make(chan struct{}, 1),
		backCh: make(chan turnSignal, 1),
		done:   make(chan struct{}),
	}
	t.sched.register(p)
	t.local.PushBack(p)
	return p
}

// scheduleTimer registers a timer entry on this thread's timer queue.
// Must be called from t's own goroutine.
func (t *Thread) scheduleTimer(when csptime.Time, fire func()) {
	t.timers.Schedule(when, fire)
}

// run is the thread's main loop. It must be started in its own
// goroutine; it returns once stop is called and both queues have
// drained.
func (t *Thread) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(t.doneCh)

	for {
		select {
		case <-t.stopCh:
			if t.local.Empty() && t.inbound.Len() == 0 {
				return
			}
		default:
		}

		t.inbound.DrainInto(&t.local)
		t.timers.FireDue(csptime.CurrentTime())

		p := t.local.PopFront()
		if p == nil {
			select {
			case <-t.stopCh:
				if t.local.Empty() && t.inbound.Len() == 0 {
					return
				}
			default:
			}
			if when, ok := t.timers.NextDeadline(); ok {
				// A pending timer will wake this thread on its own;
				// not a deadlock candidate.
				t.inbound.WaitForWork(when.Sub(csptime.CurrentTime()))
			} else {
				t.idle.Store(true)
				t.inbound.WaitForWork(-1)
				t.idle.Store(false)
			}
			continue
		}

		t.runOne(p)
	}
}

// runOne hands p its turn and processes the result.
func (t *Thread) runOne(p *Process) {
	if p.started.CompareAndSwap(false, true) {
		go p.runGoroutine(t.extCtx)
	}
	p.turnCh <- struct{}{}
	sig := <-p.backCh

	switch sig {
	case signalYielded:
		t.local.PushBack(p)
	case signalBlocked:
		// p registered itself on some other wait list; nothing to do.
	case signalFinished:
		t.sched.processFinished(p)
		t.sched.logger().Debug().Uint64(`processId`, p.id).Log(`gocsp: process finished`)
	}
}

// stop signals the thread to return once its queues drain, and blocks
// until it does.
func (t *Thread) stop() {
	close(t.stopCh)
	t.inbound.Close()
	<-t.doneCh
}

// Wake makes p runnable again after it previously called Context.Block.
// from, if non-nil, is the Context of whichever process is doing the
// waking; when from's home thread is p's home thread, p is appended
// directly to the local run queue without any locking. Otherwise it is
// pushed onto p's home thread's AtomicProcessQueue.
func Wake(p *Process, from *Context) {
	p.state.Store(StateReady)
	if from != nil && from.proc.home == p.home {
		p.home.local.PushBack(p)
		return
	}
	p.home.inbound.Push(p)
}

// WakeChain wakes every process in an externally-built next-linked
// chain, used by barrier release and bucket flush: the chain is
// partitioned into per-home-thread sub-chains, preserving insertion
// order within each; the waking process's own thread (if from is
// non-nil) gets its sub-chain spliced straight onto the local run queue,
// every other thread gets one PushChain onto its atomic queue.
func WakeChain(head *Process, from *Context) {
	type subChain struct {
		home       *Thread
		head, tail *Process
		n          int
	}
	var chains []*subChain
	byHome := make(map[*Thread]*subChain)

	for p := head; p != nil; {
		next := p.getNext()
		p.setNext(nil)
		p.state.Store(StateReady)

		c := byHome[p.home]
		if c == nil {
			c = &subChain{home: p.home}
			byHome[p.home] = c
			chains = append(chains, c)
		}
		if c.tail == nil {
			c.head, c.tail = p, p
		} else {
			c.tail.setNext(p)
			c.tail = p
		}
		c.n++
		p = next
	}

	for _, c := range chains {
		if from != nil && from.proc.home == c.home {
			c.home.local.PushChain(c.head, c.tail, c.n)
			continue
		}
		c.home.inbound.PushChain(c.head, c.tail, c.n)
	}
}
