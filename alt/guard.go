// Package alt implements the ALT (alternative/select) construct: an
// ordered list of Guards, enabled, waited on, and disabled according to
// the three-phase enable/wait/disable protocol, with priSelect (lowest-index)
// and fairSelect (rotating) resolution policies.
package alt

import (
	"time"

	"github.com/dcreager/gocsp/csptime"
	"github.com/dcreager/gocsp/kernel"
)

// Guard is a polymorphic ALT event source.
//
// Enable is called once per guard, in order, during the enable phase; it
// returns true if the guard is already ready (data pending, or a
// timeout already elapsed), otherwise it registers the alter and
// returns false. Disable is called once per guard, in order, during the
// disable phase, unregistering it and reporting whether it fired
// between enable and disable. Activate is called on the winning guard
// only, after the selection is made.
type Guard interface {
	Enable(p *kernel.Process) bool
	Disable(p *kernel.Process) bool
	Activate()
}

// fireAlter performs the guard-firing side of the ALT state machine:
// it is called by whichever party makes a registered guard
// ready, from a different goroutine than the alter's own. It must fire
// at most once per enable/disable cycle; both a racing Enabling state
// and a parked Waiting state are handled since the caller cannot know
// which phase the alter is in.
func fireAlter(p *kernel.Process) {
	if p.TryTransitionState(kernel.StateAltingEnabling, kernel.StateAltingEnablingFired) {
		return
	}
	if p.TryTransitionState(kernel.StateAltingWaiting, kernel.StateAltingReady) {
		kernel.Wake(p, nil)
	}
}

// Skip is always ready; it never blocks a select and is typically used
// as a default/non-blocking fallback guard.
func Skip() Guard { return skipGuard{} }

type skipGuard struct{}

func (skipGuard) Enable(*kernel.Process) bool  { return true }
func (skipGuard) Disable(*kernel.Process) bool { return true }
func (skipGuard) Activate()                    {}

// TimeoutRelative constructs a guard that becomes ready once d has
// elapsed since the enclosing Select call's enable phase reached it.
// Each Select recomputes the deadline fresh from the current time, so
// repeated use of the same guard across iterations waits the full
// relative delay again.
func TimeoutRelative(d time.Duration) Guard {
	return &timeoutGuard{delta: d}
}

// TimeoutAbsolute constructs a guard that becomes ready once
// csptime.CurrentTime() reaches deadline.
func TimeoutAbsolute(deadline csptime.Time) Guard {
	return &timeoutGuard{absolute: true, deadline: deadline}
}

type timeoutGuard struct {
	absolute bool
	delta    time.Duration
	deadline csptime.Time
	gen      uint64
	fired    bool
}

func (g *timeoutGuard) Enable(p *kernel.Process) bool {
	g.gen++
	myGen := g.gen
	g.fired = false

	if !g.absolute {
		g.deadline = csptime.CurrentTime().Add(g.delta)
	}

	if !g.deadline.After(csptime.CurrentTime()) {
		g.fired = true
		return true
	}

	p.ScheduleTimer(g.deadline, func() {
		if g.gen != myGen {
			return
		}
		g.fired = true
		fireAlter(p)
	})
	return false
}

func (g *timeoutGuard) Disable(*kernel.Process) bool {
	// Invalidate any still-pending timer: once disable has run, a late
	// firing belongs to a select that is already over and must not leak
	// into the alter's next enable/wait cycle.
	g.gen++
	return g.fired
}

func (g *timeoutGuard) Activate() {}
