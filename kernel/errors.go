// Package kernel provides the scheduler, run queues, and timer machinery
// underneath every other gocsp package. Error types are plain sentinels
// for expected conditions plus structs implementing Unwrap for causes,
// nothing fancier.
package kernel

import (
	"errors"
	"fmt"
)

// ErrOutOfResources is returned, wrapped in a ResourceError, by New when
// the configured thread count is negative. Fork does not return it: a
// failure to start a goroutine or allocate a process is not detected.
// Use errors.As to recover the Cause.
var ErrOutOfResources = errors.New("gocsp: out of resources")

// ResourceError wraps ErrOutOfResources with the underlying cause.
type ResourceError struct {
	Cause error
}

func (e *ResourceError) Error() string {
	if e.Cause == nil {
		return ErrOutOfResources.Error()
	}
	return fmt.Sprintf("%s: %s", ErrOutOfResources.Error(), e.Cause)
}

func (e *ResourceError) Unwrap() error { return ErrOutOfResources }

func (e *ResourceError) Is(target error) bool {
	return target == ErrOutOfResources
}

// BlockSite is a snapshot of a single parked process's last suspension
// point, used in deadlock reports.
type BlockSite struct {
	ProcessID uint64
	Site      string
}

// DeadlockReport describes the scheduler's run-level state at the
// moment the deadlock watchdog fired: every currently-blocked process
// together with the suspension point it last registered.
type DeadlockReport struct {
	BlockSites []BlockSite
}

// DeadlockError wraps a DeadlockReport as an error value. The watchdog
// itself passes the bare DeadlockReport to Config.OnDeadlock when it
// observes every run queue and timer queue empty while processes remain
// parked, for longer than the configured grace period; no operation
// returns a DeadlockError.
type DeadlockError struct {
	Report DeadlockReport
}

func (e *DeadlockError) Error() string {
	return fmt.Sprintf("gocsp: deadlock detected: %d process(es) blocked with no runnable work", len(e.Report.BlockSites))
}
