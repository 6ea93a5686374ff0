package csp

import (
	"context"

	"github.com/dcreager/gocsp/kernel"
)

// Run constructs a Scheduler, forks fn as a root process inside a fresh
// ScopedForking scope, waits for it and every process it (transitively)
// forks within that scope to finish, then shuts the scheduler down. This
// is the entry point a small program (e.g. cmd/commstime) uses instead
// of managing a Scheduler's lifecycle by hand.
func Run(ctx context.Context, fn func(ctx *Context, scope *ScopedForking) error, opts ...kernel.Option) error {
	sched, err := kernel.New(ctx, opts...)
	if err != nil {
		return err
	}
	defer sched.Shutdown(ctx)

	scope := NewScopedForking(sched)
	if err := scope.Fork(func(c *Context) error {
		return fn(c, scope)
	}); err != nil {
		return err
	}
	return scope.Wait()
}
