package alt

import (
	"errors"

	"github.com/dcreager/gocsp/kernel"
)

// ErrNoGuards is returned by PriSelect and FairSelect when an Alt has
// zero guards.
var ErrNoGuards = errors.New("gocsp: alt has no guards")

// Alt is an ALT over an ordered, fixed list of guards. The
// zero value is not usable; construct with New.
type Alt struct {
	guards []Guard
	fair   int // fairSelect's rotation offset, advanced after each select
}

// New constructs an Alt over guards, in the given priority order (index
// 0 is highest priority for PriSelect).
func New(guards ...Guard) *Alt {
	return &Alt{guards: guards}
}

// PriSelect runs the enable/wait/disable protocol and returns the
// lowest-indexed ready guard's index.
func (a *Alt) PriSelect(ctx *kernel.Context) (int, error) {
	return a.selectFrom(ctx, 0)
}

// FairSelect runs the same protocol, but resolves ties starting from a
// rotating offset that advances by one guard after every select, so
// that repeatedly-ready guards are chosen at the
// same asymptotic rate. A fresh Alt starts its rotation at index 0.
func (a *Alt) FairSelect(ctx *kernel.Context) (int, error) {
	start := a.fair
	idx, err := a.selectFrom(ctx, start)
	if err != nil {
		return idx, err
	}
	if n := len(a.guards); n > 0 {
		a.fair = (start + 1) % n
	}
	return idx, nil
}

func (a *Alt) selectFrom(ctx *kernel.Context, scanStart int) (int, error) {
	n := len(a.guards)
	if n == 0 {
		return -1, ErrNoGuards
	}
	if err := ctx.Err(); err != nil {
		return -1, err
	}

	p := ctx.Process()

	// --- Enable phase ---
	p.StoreState(kernel.StateAltingEnabling)

	firstReady := -1
	for i, g := range a.guards {
		if g.Enable(p) {
			if firstReady == -1 {
				firstReady = i
			}
			// Keep enabling remaining guards so Disable can run
			// symmetrically and FairSelect sees the full ready set.
		}
	}

	// --- Wait phase ---
	if firstReady == -1 {
		// Park, not Block: the staged AltingWaiting state must stay
		// CAS-able so a firing guard's Waiting->Ready transition can win
		// and requeue this process.
		if p.TryTransitionState(kernel.StateAltingEnabling, kernel.StateAltingWaiting) {
			ctx.Park("alt.wait")
		}
		// Either the above CAS lost to a guard's Enabling->Enabling-Fired
		// transition (a guard fired mid-enable-completion race) or Park
		// returned after a guard fired during Waiting; either way a
		// guard is now ready.
	}

	// --- Disable phase ---
	p.StoreState(kernel.StateAltingDisabling)

	chosen := -1
	for i := 0; i < n; i++ {
		idx := (scanStart + i) % n
		fired := a.guards[idx].Disable(p)
		if fired && chosen == -1 {
			chosen = idx
		}
	}

	p.StoreState(kernel.StateRunning)

	if chosen == -1 && firstReady != -1 {
		// On an Any-reader channel another reader may have drained the
		// data between enable and disable; fall back to the guard that
		// was ready at enable time, matching the protocol's guarantee
		// ("the guard was ready at selection") rather than failing.
		chosen = firstReady
	}
	if chosen == -1 {
		return -1, errors.New("gocsp: alt selected no guard")
	}

	a.guards[chosen].Activate()
	return chosen, nil
}
