package kernel

import (
	"testing"
	"time"
)

func TestAtomicProcessQueuePushDrain(t *testing.T) {
	q := NewAtomicProcessQueue()
	p1, p2 := newTestProcess(1), newTestProcess(2)
	q.Push(p1)
	q.Push(p2)

	var rq RunQueue
	q.DrainInto(&rq)
	if rq.Len() != 2 {
		t.Fatalf("expected 2, got %d", rq.Len())
	}
	if got := rq.PopFront(); got != p1 {
		t.Fatalf("expected p1 first, got %v", got)
	}
}

func TestAtomicProcessQueueWaitForWorkWakesOnPush(t *testing.T) {
	q := NewAtomicProcessQueue()
	resultCh := make(chan bool, 1)
	go func() {
		resultCh <- q.WaitForWork(5 * time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	q.Push(newTestProcess(1))

	select {
	case ok := <-resultCh:
		if !ok {
			t.Fatal("expected true from WaitForWork after push")
		}
	case <-time.After(time.Second):
		t.Fatal("WaitForWork did not return after push")
	}
}

func TestAtomicProcessQueueWaitForWorkTimesOut(t *testing.T) {
	q := NewAtomicProcessQueue()
	start := time.Now()
	ok := q.WaitForWork(10 * time.Millisecond)
	if !ok {
		t.Fatal("expected true (not closed) on plain timeout")
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatal("returned before timeout elapsed")
	}
}

func TestAtomicProcessQueueCloseWakesWaiters(t *testing.T) {
	q := NewAtomicProcessQueue()
	resultCh := make(chan bool, 1)
	go func() {
		resultCh <- q.WaitForWork(-1)
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case ok := <-resultCh:
		if ok {
			t.Fatal("expected false after Close")
		}
	case <-time.After(time.Second):
		t.Fatal("WaitForWork did not return after Close")
	}
}
