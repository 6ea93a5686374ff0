package kernel

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestForkRunsProcessToCompletion(t *testing.T) {
	sched, err := New(context.Background(), WithThreads(2))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sched.Shutdown(context.Background())

	var ran atomic.Bool
	p, err := sched.Fork(func(ctx *Context) {
		ran.Store(true)
	})
	if err != nil {
		t.Fatalf("Fork: %v", err)
	}

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("process did not finish")
	}
	if !ran.Load() {
		t.Fatal("process body did not run")
	}
}

func TestYieldPreservesFIFOOrder(t *testing.T) {
	sched, err := New(context.Background(), WithThreads(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sched.Shutdown(context.Background())

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(3)

	for i := 0; i < 3; i++ {
		i := i
		_, err := sched.Fork(func(ctx *Context) {
			defer wg.Done()
			ctx.Yield()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
		if err != nil {
			t.Fatalf("Fork: %v", err)
		}
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("processes did not finish")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 {
		t.Fatalf("expected 3 entries, got %v", order)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("expected FIFO order 0,1,2; got %v", order)
		}
	}
}

func TestRunInThisThreadBlocksCaller(t *testing.T) {
	sched, err := New(context.Background(), WithThreads(2))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sched.Shutdown(context.Background())

	var childRan atomic.Bool
	done := make(chan struct{})
	_, err = sched.Fork(func(ctx *Context) {
		sched.RunInThisThread(ctx, func(ctx *Context) {
			childRan.Store(true)
		})
		if !childRan.Load() {
			t.Error("parent resumed before child finished")
		}
		close(done)
	})
	if err != nil {
		t.Fatalf("Fork: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("parent did not resume")
	}
}

func TestForkInThisThreadDoesNotBlockCaller(t *testing.T) {
	sched, err := New(context.Background(), WithThreads(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sched.Shutdown(context.Background())

	var childRan atomic.Bool
	parentDone := make(chan struct{})
	childDone := make(chan struct{})

	_, err = sched.Fork(func(ctx *Context) {
		sched.ForkInThisThread(ctx, func(ctx *Context) {
			childRan.Store(true)
			close(childDone)
		})
		close(parentDone)
	})
	if err != nil {
		t.Fatalf("Fork: %v", err)
	}

	select {
	case <-parentDone:
	case <-time.After(2 * time.Second):
		t.Fatal("parent did not finish")
	}
	select {
	case <-childDone:
	case <-time.After(2 * time.Second):
		t.Fatal("child did not finish")
	}
	if !childRan.Load() {
		t.Fatal("child body did not run")
	}
}

func TestStatsReportsAliveCount(t *testing.T) {
	sched, err := New(context.Background(), WithThreads(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sched.Shutdown(context.Background())

	release := make(chan struct{})
	_, err = sched.Fork(func(ctx *Context) {
		<-release
	})
	if err != nil {
		t.Fatalf("Fork: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if sched.Stats().ProcessesAlive == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if got := sched.Stats().ProcessesAlive; got != 1 {
		t.Fatalf("expected 1 alive process, got %d", got)
	}
	close(release)
}

func TestStatsCountsSpawnedChildrenExactlyOnce(t *testing.T) {
	sched, err := New(context.Background(), WithThreads(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sched.Shutdown(context.Background())

	done := make(chan struct{})
	_, err = sched.Fork(func(ctx *Context) {
		sched.ForkInThisThread(ctx, func(ctx *Context) {})
		sched.RunInThisThread(ctx, func(ctx *Context) {})
		close(done)
	})
	if err != nil {
		t.Fatalf("Fork: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("parent did not finish")
	}

	// Every spawn path must balance processFinished's decrement; a
	// negative count here means a child was never counted alive.
	deadline := time.Now().Add(2 * time.Second)
	for sched.Stats().ProcessesAlive != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := sched.Stats().ProcessesAlive; got != 0 {
		t.Fatalf("expected 0 alive after all processes finished, got %d", got)
	}
}

func TestForkAfterShutdownFails(t *testing.T) {
	sched, err := New(context.Background(), WithThreads(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sched.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if _, err := sched.Fork(func(ctx *Context) {}); err != ErrSchedulerStopped {
		t.Fatalf("expected ErrSchedulerStopped, got %v", err)
	}
}
