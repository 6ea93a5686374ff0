package kernel

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"

	"github.com/dcreager/gocsp/internal/klog"
)

// Logger is the structured logger type gocsp logs through: the logiface
// facade over the stumpy JSON encoder, the same pairing the embedding
// application configures via WithLogger or klog's process-wide default.
type Logger = logiface.Logger[*stumpy.Event]

var (
	// ErrSchedulerStopped is returned by Fork when called after
	// Shutdown has been called.
	ErrSchedulerStopped = errors.New("gocsp: scheduler is stopped")
)

// Config configures a Scheduler.
type Config struct {
	// Threads is the number of kernel (OS) threads to run processes on
	// in parallel. Zero selects available cores minus one, minimum one.
	Threads int
	// DeadlockGrace is how long the watchdog waits, after observing
	// every run queue and timer queue empty with at least one process
	// blocked, before reporting a deadlock. Zero selects a default of
	// 200ms.
	DeadlockGrace time.Duration
	// OnDeadlock is called from the watchdog's own goroutine when a
	// deadlock is detected. If nil, the report is only logged.
	OnDeadlock func(DeadlockReport)
	// Logger overrides the process-wide default logger for this
	// scheduler's own logging (process lifecycle, watchdog).
	Logger *Logger
}

// Option configures a Scheduler at construction.
type Option func(*Config)

// WithThreads sets the number of kernel threads.
func WithThreads(n int) Option {
	return func(c *Config) { c.Threads = n }
}

// WithDeadlockGrace sets the watchdog's grace period.
func WithDeadlockGrace(d time.Duration) Option {
	return func(c *Config) { c.DeadlockGrace = d }
}

// WithOnDeadlock registers a deadlock callback.
func WithOnDeadlock(fn func(DeadlockReport)) Option {
	return func(c *Config) { c.OnDeadlock = fn }
}

// WithLogger sets the scheduler's logger.
func WithLogger(l *Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// Stats is a point-in-time snapshot of scheduler load, maintained with
// plain atomic counters.
type Stats struct {
	Threads          int
	ProcessesSpawned uint64
	ProcessesAlive   int64
}

// Scheduler owns a fixed set of kernel Threads and the process-ID
// counter shared across them.
type Scheduler struct {
	threads []*Thread

	procIDCounter atomic.Uint64
	aliveCount    atomic.Int64

	extCtx     context.Context
	extCancel  context.CancelFunc
	nextThread atomic.Uint64

	stopOnce sync.Once
	stopped  atomic.Bool

	// procMu guards procs, the registry backing deadlock reports. One
	// map write per spawn and one per finish; rendezvous paths never
	// touch it.
	procMu sync.Mutex
	procs  map[uint64]*Process

	watchdogDone chan struct{}
	cfg          Config
}

func (s *Scheduler) logger() *klog.Logger {
	if s.cfg.Logger != nil {
		return s.cfg.Logger
	}
	return klog.Default()
}

// register adds a newly spawned process to the deadlock registry and
// the live count. Every spawn path (Fork and Thread.spawn) goes through
// here exactly once, so processFinished's decrement always has a
// matching increment.
func (s *Scheduler) register(p *Process) {
	s.aliveCount.Add(1)
	s.procMu.Lock()
	s.procs[p.id] = p
	s.procMu.Unlock()
}

// New constructs and starts a Scheduler: every kernel thread's loop
// goroutine is running by the time New returns, so there is no window
// in which a Fork could land on a not-yet-started thread.
func New(ctx context.Context, opts ...Option) (*Scheduler, error) {
	cfg := Config{
		Threads:       defaultThreadCount(),
		DeadlockGrace: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Threads == 0 {
		cfg.Threads = defaultThreadCount()
	}
	if cfg.DeadlockGrace == 0 {
		cfg.DeadlockGrace = 200 * time.Millisecond
	}
	if cfg.Threads < 1 {
		return nil, &ResourceError{Cause: fmt.Errorf("invalid thread count %d", cfg.Threads)}
	}

	extCtx, cancel := context.WithCancel(ctx)
	s := &Scheduler{
		extCtx:       extCtx,
		extCancel:    cancel,
		cfg:          cfg,
		procs:        make(map[uint64]*Process),
		watchdogDone: make(chan struct{}),
	}

	s.threads = make([]*Thread, cfg.Threads)
	for i := range s.threads {
		t := newThread(uint64(i), s, extCtx)
		s.threads[i] = t
		go t.run()
	}

	go s.watchdog()

	return s, nil
}

func (s *Scheduler) nextProcessID() uint64 {
	s.procIDCounter.Add(1)
	return s.procIDCounter.Load()
}

// pickThread returns the next thread in round-robin order, used to
// place a Fork'd process.
func (s *Scheduler) pickThread() *Thread {
	n := s.nextThread.Add(1) - 1
	return s.threads[int(n)%len(s.threads)]
}

// Fork starts a new process on a round-robin-selected thread, running
// in parallel with the caller. Usable from any goroutine, including
// from outside the scheduler to seed the very first process of a run.
func (s *Scheduler) Fork(fn Task) (*Process, error) {
	if s.stopped.Load() {
		return nil, ErrSchedulerStopped
	}
	t := s.pickThread()
	p := &Process{
		id:     s.nextProcessID(),
		fn:     fn,
		state:  newProcState(StateReady),
		home:   t,
		turnCh: make(chan struct{}, 1),
		backCh: make(chan turnSignal, 1),
		done:   make(chan struct{}),
	}
	s.register(p)
	t.inbound.Push(p)
	return p, nil
}

// ForkInThisThread starts a new process homed on the same thread as
// from, appended to the tail of that thread's local run queue. Must be
// called from a Process's own body.
func (s *Scheduler) ForkInThisThread(from *Context, fn Task) *Process {
	return from.proc.home.spawn(fn)
}

// RunInThisThread starts a child on from's home thread and blocks the
// caller until it finishes.
func (s *Scheduler) RunInThisThread(from *Context, fn Task) {
	child := from.proc.home.spawn(fn)
	child.joinWaiter = from.proc
	from.Block("runInThisThread")
}

// processFinished decrements the live count and drops the process from
// the deadlock registry; called from a Thread's own loop goroutine once
// a process reports signalFinished.
func (s *Scheduler) processFinished(p *Process) {
	s.aliveCount.Add(-1)
	s.procMu.Lock()
	delete(s.procs, p.id)
	s.procMu.Unlock()
}

// Stats returns a point-in-time snapshot of scheduler load.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Threads:          len(s.threads),
		ProcessesSpawned: s.procIDCounter.Load(),
		ProcessesAlive:   s.aliveCount.Load(),
	}
}

// Shutdown stops every kernel thread once its queues drain, and cancels
// the external context threaded into every Process's Context.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		s.extCancel()

		done := make(chan struct{})
		go func() {
			for _, t := range s.threads {
				t.stop()
			}
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			err = ctx.Err()
		}
		<-s.watchdogDone
	})
	return err
}

// watchdog detects deadlock: it periodically checks whether every
// thread's run queue and timer queue are empty while processes remain
// alive and blocked, and if that holds for longer than
// cfg.DeadlockGrace, reports it.
func (s *Scheduler) watchdog() {
	defer close(s.watchdogDone)
	ticker := time.NewTicker(s.cfg.DeadlockGrace / 2)
	defer ticker.Stop()

	var suspectSince time.Time

	for {
		select {
		case <-s.extCtx.Done():
			return
		case <-ticker.C:
		}
		if s.stopped.Load() {
			return
		}

		alive := s.aliveCount.Load()
		if alive <= 0 {
			suspectSince = time.Time{}
			continue
		}

		// Only the atomic idle flag and the mutex-guarded inbound length
		// are read here; the thread's local run queue and timer heap are
		// owner-only and must never be touched from this goroutine.
		quiet := true
		for _, t := range s.threads {
			if !t.idle.Load() || t.inbound.Len() > 0 {
				quiet = false
				break
			}
		}
		if !quiet {
			suspectSince = time.Time{}
			continue
		}

		if suspectSince.IsZero() {
			suspectSince = time.Now()
			continue
		}
		if time.Since(suspectSince) < s.cfg.DeadlockGrace {
			continue
		}

		report := s.buildDeadlockReport()
		s.logger().Warning().Int(`blocked`, len(report.BlockSites)).Log(`gocsp: deadlock suspected`)
		if s.cfg.OnDeadlock != nil {
			s.cfg.OnDeadlock(report)
		}
		suspectSince = time.Now()
	}
}

// buildDeadlockReport snapshots every registered process still parked at
// a suspension point, with the site it last recorded. Registry
// maintenance costs one map write per spawn and per finish; nothing on
// the rendezvous path touches it.
func (s *Scheduler) buildDeadlockReport() DeadlockReport {
	s.procMu.Lock()
	defer s.procMu.Unlock()
	var sites []BlockSite
	for _, p := range s.procs {
		switch p.State() {
		case StateBlocked, StateAltingWaiting:
			sites = append(sites, BlockSite{ProcessID: p.id, Site: p.BlockSite()})
		}
	}
	return DeadlockReport{BlockSites: sites}
}

func defaultThreadCount() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		return 1
	}
	return n
}
