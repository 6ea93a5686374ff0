package alt_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dcreager/gocsp/alt"
	"github.com/dcreager/gocsp/channel"
	"github.com/dcreager/gocsp/csptime"
	"github.com/dcreager/gocsp/kernel"
)

func newScheduler(t *testing.T) *kernel.Scheduler {
	t.Helper()
	sched, err := kernel.New(context.Background(), kernel.WithThreads(2))
	if err != nil {
		t.Fatalf("kernel.New: %v", err)
	}
	t.Cleanup(func() { sched.Shutdown(context.Background()) })
	return sched
}

func waitClosed(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for process to finish")
	}
}

func TestPriSelectChoosesLowestReadyIndex(t *testing.T) {
	sched := newScheduler(t)

	r0, w0 := channel.New1to1[int]()
	r1, w1 := channel.New1to1[int]()
	r2, w2 := channel.New1to1[int]()
	r3, w3 := channel.New1to1[int]()
	_, _, _ = w0, w1, w2

	var chosen int
	done := make(chan struct{})
	sched.Fork(func(ctx *kernel.Context) {
		a := alt.New(
			alt.ChannelInput(r0),
			alt.ChannelInput(r1),
			alt.ChannelInput(r2),
			alt.ChannelInput(r3),
		)
		idx, err := a.PriSelect(ctx)
		if err != nil {
			t.Errorf("PriSelect: %v", err)
		}
		chosen = idx
		close(done)
	})

	sched.Fork(func(ctx *kernel.Context) {
		w3.Write(ctx, 1)
	})

	waitClosed(t, done)
	if chosen != 3 {
		t.Fatalf("expected index 3, got %d", chosen)
	}

	// Drain the value so the writer process can finish.
	sched.Fork(func(ctx *kernel.Context) {
		r3.Read(ctx)
	})
}

func TestPriSelectEnableRaceNoticesEarlierGuard(t *testing.T) {
	sched := newScheduler(t)

	r0, w0 := channel.New1to1[int]()
	r1, w1 := channel.New1to1[int]()
	r2, w2 := channel.New1to1[int]()
	_ = w1
	_ = w2

	var chosen int
	done := make(chan struct{})
	sched.Fork(func(ctx *kernel.Context) {
		a := alt.New(
			alt.ChannelInput(r0),
			alt.ChannelInput(r1),
			alt.ChannelInput(r2),
		)
		idx, err := a.PriSelect(ctx)
		if err != nil {
			t.Errorf("PriSelect: %v", err)
		}
		chosen = idx
		close(done)
	})

	// Writer for guard 0 arrives while the alt is still mid-enable; since
	// a real test can't reliably win that race deterministically, assert
	// the weaker, always-true property: g0 is ready before the select
	// resolves at all (it is written before the select process is even
	// forked in program order is not guaranteed either — so instead we
	// assert that when g0 fires, priSelect must prefer it over any other
	// ready guard).
	sched.Fork(func(ctx *kernel.Context) {
		w0.Write(ctx, 7)
	})

	waitClosed(t, done)
	if chosen != 0 {
		t.Fatalf("expected index 0 (lowest ready), got %d", chosen)
	}

	sched.Fork(func(ctx *kernel.Context) {
		r0.Read(ctx)
	})
}

func TestFairSelectRotatesAcrossAlwaysReadyGuards(t *testing.T) {
	sched := newScheduler(t)

	results := make(chan []int, 1)
	sched.Fork(func(ctx *kernel.Context) {
		a := alt.New(alt.Skip(), alt.Skip(), alt.Skip())
		var got []int
		for i := 0; i < 6; i++ {
			idx, err := a.FairSelect(ctx)
			if err != nil {
				t.Errorf("FairSelect: %v", err)
			}
			got = append(got, idx)
		}
		results <- got
	})

	select {
	case got := <-results:
		want := []int{0, 1, 2, 0, 1, 2}
		if len(got) != len(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
		for i, v := range want {
			if got[i] != v {
				t.Fatalf("expected rotation %v, got %v", want, got)
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
}

func TestSelectTimeoutGuardFiresAfterDelay(t *testing.T) {
	sched := newScheduler(t)

	r, _ := channel.New1to1[int]()

	var chosen int
	var elapsed time.Duration
	done := make(chan struct{})
	sched.Fork(func(ctx *kernel.Context) {
		a := alt.New(alt.ChannelInput(r), alt.TimeoutRelative(20*time.Millisecond))
		start := time.Now()
		idx, err := a.PriSelect(ctx)
		elapsed = time.Since(start)
		if err != nil {
			t.Errorf("PriSelect: %v", err)
		}
		chosen = idx
		close(done)
	})

	waitClosed(t, done)
	if chosen != 1 {
		t.Fatalf("expected timeout guard (index 1), got %d", chosen)
	}
	if elapsed < 20*time.Millisecond {
		t.Fatalf("expected to wait at least 20ms, waited %v", elapsed)
	}
}

func TestRepeatedGuardPicksLowestPositionWithData(t *testing.T) {
	sched := newScheduler(t)

	r0, w0 := channel.New1to1[int]()

	var chosen int
	done := make(chan struct{})
	sched.Fork(func(ctx *kernel.Context) {
		a := alt.New(alt.ChannelInput(r0), alt.ChannelInput(r0))
		idx, err := a.PriSelect(ctx)
		if err != nil {
			t.Errorf("PriSelect: %v", err)
		}
		chosen = idx
		close(done)
	})

	sched.Fork(func(ctx *kernel.Context) {
		w0.Write(ctx, 1)
	})

	waitClosed(t, done)
	if chosen != 0 {
		t.Fatalf("expected repeated guard position 0, got %d", chosen)
	}
	sched.Fork(func(ctx *kernel.Context) {
		r0.Read(ctx)
	})
}

func TestRepeatedGuardWithoutDataDoesNotMisfire(t *testing.T) {
	sched := newScheduler(t)

	r0, _ := channel.New1to1[int]()

	var chosen int
	done := make(chan struct{})
	sched.Fork(func(ctx *kernel.Context) {
		// Both positions of r0 stay empty; only the skip guard can fire.
		// The second r0 position must not report fired merely because
		// the first position's disable already cleared the registration.
		a := alt.New(alt.ChannelInput(r0), alt.ChannelInput(r0), alt.Skip())
		idx, err := a.PriSelect(ctx)
		if err != nil {
			t.Errorf("PriSelect: %v", err)
		}
		chosen = idx
		close(done)
	})

	waitClosed(t, done)
	if chosen != 2 {
		t.Fatalf("expected skip guard (index 2), got %d", chosen)
	}
}

func TestTimeoutAbsoluteGuardFires(t *testing.T) {
	sched := newScheduler(t)

	r, _ := channel.New1to1[int]()

	var chosen int
	var elapsed time.Duration
	done := make(chan struct{})
	sched.Fork(func(ctx *kernel.Context) {
		deadline := csptime.CurrentTime().Add(25 * time.Millisecond)
		a := alt.New(alt.ChannelInput(r), alt.TimeoutAbsolute(deadline))
		start := time.Now()
		idx, err := a.PriSelect(ctx)
		elapsed = time.Since(start)
		if err != nil {
			t.Errorf("PriSelect: %v", err)
		}
		chosen = idx
		close(done)
	})

	waitClosed(t, done)
	if chosen != 1 {
		t.Fatalf("expected absolute timeout guard (index 1), got %d", chosen)
	}
	if elapsed < 25*time.Millisecond {
		t.Fatalf("expected to wait until the deadline, waited %v", elapsed)
	}
}

func TestRelativeTimeoutWaitsFullDelayOnEachReuse(t *testing.T) {
	sched := newScheduler(t)

	done := make(chan struct{})
	sched.Fork(func(ctx *kernel.Context) {
		defer close(done)
		a := alt.New(alt.TimeoutRelative(15 * time.Millisecond))
		for i := 0; i < 3; i++ {
			start := time.Now()
			idx, err := a.PriSelect(ctx)
			if err != nil {
				t.Errorf("PriSelect: %v", err)
				return
			}
			if idx != 0 {
				t.Errorf("expected index 0, got %d", idx)
				return
			}
			if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
				t.Errorf("iteration %d: deadline not recomputed on reuse, waited only %v", i, elapsed)
				return
			}
		}
	})
	waitClosed(t, done)
}

func TestChannelGuardReadyOnBufferedData(t *testing.T) {
	sched := newScheduler(t)

	r, w := channel.New1to1Buffered[int](channel.FIFO(1))

	var chosen int
	var got int
	done := make(chan struct{})
	sched.Fork(func(ctx *kernel.Context) {
		defer close(done)
		if err := w.Write(ctx, 77); err != nil {
			t.Errorf("Write: %v", err)
			return
		}
		a := alt.New(alt.ChannelInput(r), alt.TimeoutRelative(time.Second))
		idx, err := a.PriSelect(ctx)
		if err != nil {
			t.Errorf("PriSelect: %v", err)
			return
		}
		chosen = idx
		got, err = r.Read(ctx)
		if err != nil {
			t.Errorf("Read: %v", err)
		}
	})

	waitClosed(t, done)
	if chosen != 0 {
		t.Fatalf("expected buffered channel guard (index 0), got %d", chosen)
	}
	if got != 77 {
		t.Fatalf("expected 77, got %d", got)
	}
}

func TestPriSelectPoisonPrecedence(t *testing.T) {
	sched := newScheduler(t)

	r0, _ := channel.New1to1[int]()
	r1, w1 := channel.New1to1[int]()
	w1.Poison()

	var chosen int
	var readErr error
	done := make(chan struct{})
	sched.Fork(func(ctx *kernel.Context) {
		a := alt.New(alt.ChannelInput(r0), alt.ChannelInput(r1))
		idx, err := a.PriSelect(ctx)
		if err != nil {
			t.Errorf("PriSelect: %v", err)
			close(done)
			return
		}
		chosen = idx
		if idx == 1 {
			_, readErr = r1.Read(ctx)
		}
		close(done)
	})

	waitClosed(t, done)
	if chosen != 1 {
		t.Fatalf("expected poisoned guard 1 to be selected, got %d", chosen)
	}
	if !errors.Is(readErr, new(channel.PoisonError)) {
		t.Fatalf("expected PoisonError from reading poisoned channel, got %v", readErr)
	}
}
