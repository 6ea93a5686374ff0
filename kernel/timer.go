package kernel

import (
	"container/heap"

	"github.com/dcreager/gocsp/csptime"
)

// timerEntry is a scheduled wake-up: fire calls back into the owning
// Thread when when elapses. A bare callback lets the same heap serve
// both ALT timeout guards and sleeps without the timer machinery
// knowing about Process or Alt at all.
type timerEntry struct {
	when csptime.Time
	seq  uint64
	fire func()
}

// timerHeap is a min-heap of pending timers, ordered by when; seq breaks
// ties so FIFO order holds among timers scheduled for the same instant.
type timerHeap []timerEntry

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].when == h[j].when {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) {
	*h = append(*h, x.(timerEntry))
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// timerQueue wraps timerHeap with the sequence counter and exposes the
// operations a Thread's tick loop needs.
type timerQueue struct {
	h       timerHeap
	nextSeq uint64
}

func newTimerQueue() *timerQueue {
	return &timerQueue{h: make(timerHeap, 0)}
}

// Schedule adds a timer that calls fire once when elapses.
func (q *timerQueue) Schedule(when csptime.Time, fire func()) {
	q.nextSeq++
	heap.Push(&q.h, timerEntry{when: when, seq: q.nextSeq, fire: fire})
}

// Empty reports whether any timers are pending.
func (q *timerQueue) Empty() bool { return q.h.Len() == 0 }

// NextDeadline returns the when of the earliest pending timer and true,
// or the zero value and false if none are pending.
func (q *timerQueue) NextDeadline() (csptime.Time, bool) {
	if q.h.Len() == 0 {
		return 0, false
	}
	return q.h[0].when, true
}

// FireDue pops and fires every timer whose deadline has elapsed as of
// now, returning how many fired.
func (q *timerQueue) FireDue(now csptime.Time) int {
	n := 0
	for q.h.Len() > 0 && !q.h[0].when.After(now) {
		t := heap.Pop(&q.h).(timerEntry)
		t.fire()
		n++
	}
	return n
}
