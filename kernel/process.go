package kernel

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dcreager/gocsp/csptime"
)

// turnSignal is what a Process reports back to its home Thread when it
// gives up its turn: why it stopped running, so the Thread knows whether
// to requeue it.
type turnSignal int

const (
	// signalYielded means the process called Context.Yield: it wants to
	// run again and must be appended to the tail of its home thread's
	// run queue.
	signalYielded turnSignal = iota
	// signalBlocked means the process called Context.Block, having
	// already registered itself on some other wait list (a channel, a
	// barrier, a bucket, an ALT). The thread must NOT requeue it; some
	// other code path will call Wake when it is time to resume.
	signalBlocked
	// signalFinished means the process body returned.
	signalFinished
)

// Task is the body of a process: a function accepting the scheduling
// handle it was given at spawn time.
type Task func(ctx *Context)

// Process is the unit of scheduling.
//
// Every Process runs on its own goroutine (a real, OS-managed stack),
// but that goroutine only executes while holding a one-shot "turn"
// token handed to it by its home Thread's run loop. The goroutine is a
// resumable execution state; scheduling — FIFO order, explicit
// suspension points, no preemption — stays entirely under gocsp's
// control rather than the Go runtime's.
type Process struct {
	id    uint64
	fn    Task
	state *procState

	// next links this Process onto whichever list currently holds it —
	// a run queue or a wait list. A Process appears on at most one list
	// at any time, so a single pointer suffices.
	next *Process

	home *Thread

	// turnCh grants the process its turn to run; backCh reports why it
	// gave the turn back. Both are capacity 1, so the handoff never
	// blocks regardless of send/receive ordering.
	turnCh  chan struct{}
	backCh  chan turnSignal
	started atomic.Bool
	done    chan struct{}

	// joinWaiter, if set, is woken (via Wake) when this process finishes.
	// Used by RunInThisThread to implement its join.
	joinWaiter *Process

	// blockSite records the name of the last suspension point this
	// process parked at, for deadlock reporting.
	blockSite atomic.Value // string

	// StackHint is advisory only: Go manages goroutine stacks itself,
	// so this is accepted at spawn but never consulted by the
	// scheduler.
	StackHint int
}

// Context is the handle a running Process uses to interact with the
// scheduler: to yield, to block having already registered itself
// elsewhere, and to read the external cancellation signal threaded
// through Run/Fork.
type Context struct {
	proc *Process
	ctx  context.Context
}

// Process returns the Process this Context belongs to.
func (c *Context) Process() *Process { return c.proc }

// Done returns the external cancellation channel supplied at spawn time.
// It does not cancel in-flight blocking operations (poison is the sole
// cross-process cancellation mechanism) — it is checked only at the
// entry of blocking operations, so a cancelled context prevents a *new*
// block but does not abort one already in progress.
func (c *Context) Done() <-chan struct{} {
	if c.ctx == nil {
		return nil
	}
	return c.ctx.Done()
}

// Err returns the external context's error, if any.
func (c *Context) Err() error {
	if c.ctx == nil {
		return nil
	}
	return c.ctx.Err()
}

// Yield moves the calling process to the tail of its home thread's run
// queue, then resumes the head of that queue.
func (c *Context) Yield() {
	p := c.proc
	p.state.Store(StateReady)
	p.backCh <- signalYielded
	<-p.turnCh
	p.state.Store(StateRunning)
}

// Block suspends the calling process without requeuing it. The caller
// must have already registered itself on
// some wait list — a channel's waiting field, a barrier's sync queue, a
// bucket, or an ALT guard — before calling Block, since nothing else
// will make it runnable again otherwise. site names the suspension
// point, for deadlock reporting.
func (c *Context) Block(site string) {
	p := c.proc
	p.state.Store(StateBlocked)
	p.blockSite.Store(site)
	p.backCh <- signalBlocked
	<-p.turnCh
	p.state.Store(StateRunning)
	p.blockSite.Store("")
}

// Park suspends like Block but leaves the scheduler state exactly as the
// caller staged it. The ALT protocol needs this: the alter CASes itself
// into StateAltingWaiting before parking, and that state must remain
// CAS-able by a firing guard (Waiting -> Ready) the whole time the
// process is parked — Block's unconditional StateBlocked store would
// make the guard's transition fail and strand the alter forever.
func (c *Context) Park(site string) {
	p := c.proc
	p.blockSite.Store(site)
	p.backCh <- signalBlocked
	<-p.turnCh
	p.blockSite.Store("")
}

// SleepFor parks the calling process for at least d. Cooperative: the
// home thread keeps running other processes while this one sleeps.
func (c *Context) SleepFor(d time.Duration) {
	c.SleepUntil(csptime.CurrentTime().Add(d))
}

// SleepUntil parks the calling process until the monotonic instant t.
// A deadline already in the past degrades to a plain Yield, so a
// zero-length sleep still cedes the thread to the next ready process.
func (c *Context) SleepUntil(t csptime.Time) {
	if !t.After(csptime.CurrentTime()) {
		c.Yield()
		return
	}
	p := c.proc
	p.home.scheduleTimer(t, func() { Wake(p, nil) })
	c.Block("sleep")
}

// BlockSite returns the name of the suspension point this process is
// currently (or was most recently) parked at.
func (p *Process) BlockSite() string {
	v, _ := p.blockSite.Load().(string)
	return v
}

// ID returns the process's stable identity.
func (p *Process) ID() uint64 { return p.id }

// State returns the process's current scheduler state.
func (p *Process) State() ProcState { return p.state.Load() }

// TryTransitionState attempts the CAS from->to on this process's
// scheduler state, exposed for the alt package's enable/disable
// protocol, whose Enabling->Enabling-Fired and Waiting->Ready
// transitions are this runtime's central synchronization point.
func (p *Process) TryTransitionState(from, to ProcState) bool {
	return p.state.TryTransition(from, to)
}

// StoreState sets this process's scheduler state unconditionally, for
// states that do not need CAS (e.g. entering StateAltingEnabling at the
// start of an ALT's enable phase, before any guard can race it).
func (p *Process) StoreState(s ProcState) {
	p.state.Store(s)
}

// Home returns the kernel thread this process's stack lives on.
func (p *Process) Home() *Thread { return p.home }

// ScheduleTimer arms fire to run when deadline elapses, for use by ALT
// timeout guards and sleeps. Safe to call only from the process's own
// goroutine while it holds its turn: the same same-thread invariant that
// lets Wake touch a home thread's run queue directly applies here, since
// the owning Thread's loop is guaranteed parked on backCh for the
// duration of this call and will not itself touch the timer queue
// concurrently.
func (p *Process) ScheduleTimer(deadline csptime.Time, fire func()) {
	p.home.scheduleTimer(deadline, fire)
}

// setNext / getNext implement the single intrusive link used by every
// list a Process may be a member of.
func (p *Process) setNext(n *Process) { p.next = n }
func (p *Process) getNext() *Process  { return p.next }

// runGoroutine is the body of the real goroutine backing a Process. It
// waits for its first turn, runs the task, then reports completion and
// wakes anything joined on it.
func (p *Process) runGoroutine(extCtx context.Context) {
	<-p.turnCh
	p.state.Store(StateRunning)

	c := &Context{proc: p, ctx: extCtx}

	func() {
		defer func() {
			if r := recover(); r != nil {
				p.home.sched.logger().Err().Any(`panic`, r).Log(`gocsp: process panicked`)
			}
		}()
		p.fn(c)
	}()

	p.state.Store(StateFinished)
	close(p.done)
	if p.joinWaiter != nil {
		Wake(p.joinWaiter, c)
	}
	p.backCh <- signalFinished
}

// Done returns a channel closed when the process has finished running.
func (p *Process) Done() <-chan struct{} { return p.done }
