// Package csp is the facade: Run/Fork entry points and ScopedForking,
// the structured-concurrency scope that owns every process it forks —
// on scope exit the spawner waits for all children.
//
// Built on golang.org/x/sync/errgroup so a child's error or panic
// surfaces through Wait instead of being silently dropped or crashing
// the process outright.
package csp

import "github.com/dcreager/gocsp/kernel"

// Process re-exports kernel.Process, so callers that only need the
// facade don't also need to import kernel.
type Process = kernel.Process

// Context re-exports kernel.Context.
type Context = kernel.Context
