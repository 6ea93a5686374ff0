package kernel

import "sync/atomic"

// ProcState is the scheduler state of a Process: an atomic word mutated
// only via TryTransition for contended states and Store for
// uncontended ones. The ALT enable/disable protocol is built on exactly
// this primitive: the Enabling→Enabling-Fired and Waiting→Ready
// transitions are the central synchronization point of the whole
// runtime.
type ProcState uint64

const (
	// StateReady indicates the process is enqueued on a run queue.
	StateReady ProcState = iota
	// StateRunning indicates the process currently holds its thread.
	StateRunning
	// StateBlocked indicates the process has parked itself on some wait
	// list (a channel, a barrier, a bucket) pending a wake-up.
	StateBlocked
	// StateAltingEnabling indicates the process is running the ALT enable
	// phase.
	StateAltingEnabling
	// StateAltingEnablingFired indicates a guard fired while the process
	// was still in StateAltingEnabling; the process must skip the wait.
	StateAltingEnablingFired
	// StateAltingWaiting indicates the process parked after an enable pass
	// that found no ready guard.
	StateAltingWaiting
	// StateAltingReady indicates a guard fired while the process was
	// parked in StateAltingWaiting; the process has been (or is about to
	// be) rescheduled.
	StateAltingReady
	// StateAltingDisabling indicates the process is running the ALT
	// disable phase.
	StateAltingDisabling
	// StateFinished indicates the process body has returned.
	StateFinished
)

// String implements fmt.Stringer for debug logging.
func (s ProcState) String() string {
	switch s {
	case StateReady:
		return "Ready"
	case StateRunning:
		return "Running"
	case StateBlocked:
		return "Blocked"
	case StateAltingEnabling:
		return "AltingEnabling"
	case StateAltingEnablingFired:
		return "AltingEnablingFired"
	case StateAltingWaiting:
		return "AltingWaiting"
	case StateAltingReady:
		return "AltingReady"
	case StateAltingDisabling:
		return "AltingDisabling"
	case StateFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// procState is a lock-free state machine for a single Process: pure
// atomic CAS, no mutex, no transition validation (callers are trusted).
type procState struct {
	v atomic.Uint64
}

func newProcState(initial ProcState) *procState {
	s := &procState{}
	s.v.Store(uint64(initial))
	return s
}

func (s *procState) Load() ProcState {
	return ProcState(s.v.Load())
}

func (s *procState) Store(state ProcState) {
	s.v.Store(uint64(state))
}

func (s *procState) TryTransition(from, to ProcState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}
