package csp

import (
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dcreager/gocsp/kernel"
)

// Task is the body of a CSP process forked through a ScopedForking
// scope: it receives a *kernel.Context for blocking operations and may
// return an error, which the scope aggregates (first non-nil error
// wins, matching errgroup.Group's own semantics).
type Task func(ctx *kernel.Context) error

// ScopedForking is a structured-concurrency scope: every
// process Fork'd or ForkInThisThread'd through a scope is joined by the
// next Wait call, even if one of them panics.
type ScopedForking struct {
	sched *kernel.Scheduler
	eg    *errgroup.Group

	// panicMu guards panicVal, the first panic recovered from a child;
	// Wait re-raises it on the caller's goroutine after the join.
	panicMu  sync.Mutex
	panicVal any
}

// NewScopedForking opens a forking scope over sched. The scope does not
// own the scheduler; callers remain responsible for the scheduler's own
// lifecycle (see Run for a helper that manages both together).
func NewScopedForking(sched *kernel.Scheduler) *ScopedForking {
	return &ScopedForking{sched: sched, eg: &errgroup.Group{}}
}

// WithLimit bounds the number of children of this scope running
// concurrently, backed by errgroup.Group.SetLimit. Go has no manual
// process stacks to budget, so bounding concurrently in-flight forks is
// the resource knob this scope offers instead.
func (s *ScopedForking) WithLimit(n int) *ScopedForking {
	s.eg.SetLimit(n)
	return s
}

// Fork starts fn as a new process, homed round-robin across the
// scheduler's threads. The child is joined by the
// next Wait call on this scope.
func (s *ScopedForking) Fork(fn Task) error {
	return s.fork(func(t kernel.Task) (*kernel.Process, error) {
		return s.sched.Fork(t)
	}, fn)
}

// ForkInThisThread starts fn on parent's home kernel thread, appended
// to that thread's local run queue. Must
// be called with a Context belonging to the same scheduler this scope
// was opened over.
func (s *ScopedForking) ForkInThisThread(parent *kernel.Context, fn Task) error {
	return s.fork(func(t kernel.Task) (*kernel.Process, error) {
		return s.sched.ForkInThisThread(parent, t), nil
	}, fn)
}

func (s *ScopedForking) fork(start func(kernel.Task) (*kernel.Process, error), fn Task) error {
	var (
		mu       sync.Mutex
		result   error
		panicVal any
	)
	task := func(ctx *kernel.Context) {
		defer func() {
			if r := recover(); r != nil {
				mu.Lock()
				panicVal = r
				mu.Unlock()
			}
		}()
		if err := fn(ctx); err != nil {
			mu.Lock()
			result = err
			mu.Unlock()
		}
	}

	p, err := start(task)
	if err != nil {
		return err
	}

	s.eg.Go(func() error {
		<-p.Done()
		mu.Lock()
		defer mu.Unlock()
		if panicVal != nil {
			s.panicMu.Lock()
			if s.panicVal == nil {
				s.panicVal = panicVal
			}
			s.panicMu.Unlock()
			return nil
		}
		return result
	})
	return nil
}

// Wait blocks until every process forked within this scope has
// finished, returning the first non-nil error any of them returned. If
// a child panicked, Wait re-panics with that value only after every
// other child has been joined.
func (s *ScopedForking) Wait() error {
	err := s.eg.Wait()
	s.panicMu.Lock()
	pv := s.panicVal
	s.panicMu.Unlock()
	if pv != nil {
		panic(pv)
	}
	return err
}
