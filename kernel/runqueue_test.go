package kernel

import "testing"

func newTestProcess(id uint64) *Process {
	return &Process{
		id:     id,
		state:  newProcState(StateReady),
		turnCh: make(chan struct{}, 1),
		backCh: make(chan turnSignal, 1),
		done:   make(chan struct{}),
	}
}

func TestRunQueueFIFOOrder(t *testing.T) {
	var q RunQueue
	p1, p2, p3 := newTestProcess(1), newTestProcess(2), newTestProcess(3)
	q.PushBack(p1)
	q.PushBack(p2)
	q.PushBack(p3)

	if q.Len() != 3 {
		t.Fatalf("expected len 3, got %d", q.Len())
	}
	for _, want := range []*Process{p1, p2, p3} {
		got := q.PopFront()
		if got != want {
			t.Fatalf("expected process %d, got %v", want.id, got)
		}
	}
	if !q.Empty() {
		t.Fatal("expected queue to be empty")
	}
	if q.PopFront() != nil {
		t.Fatal("expected nil from empty queue")
	}
}

func TestRunQueuePushChain(t *testing.T) {
	var q RunQueue
	head := newTestProcess(1)
	mid := newTestProcess(2)
	tail := newTestProcess(3)
	head.setNext(mid)
	mid.setNext(tail)

	existing := newTestProcess(0)
	q.PushBack(existing)
	q.PushChain(head, tail, 3)

	if q.Len() != 4 {
		t.Fatalf("expected len 4, got %d", q.Len())
	}
	order := []uint64{0, 1, 2, 3}
	for _, want := range order {
		got := q.PopFront()
		if got.id != want {
			t.Fatalf("expected process %d, got %d", want, got.id)
		}
	}
}
