// Command commstime runs the classic commstime benchmark: a 4-process
// CSP ring — Prefix(0), SeqDelta, Successor, and a tap reader — wired
// together with unbuffered channels across a multi-threaded scheduler.
// After N iterations the tap observes the sequence 0, 1, 2, ..., N-1,
// and the ring shuts down cleanly.
//
// Run with: go run ./cmd/commstime
package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dcreager/gocsp/channel"
	"github.com/dcreager/gocsp/csp"
	"github.com/dcreager/gocsp/kernel"
	"github.com/dcreager/gocsp/plumbing"
)

const ringIterations = 10_000

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	start := time.Now()
	tap, err := runRing(ctx, ringIterations)
	if err != nil {
		fmt.Printf("commstime exited with error: %v\n", err)
		return
	}
	elapsed := time.Since(start)

	fmt.Printf("commstime: %d iterations in %s (%.0f ns/iteration)\n",
		ringIterations, elapsed, float64(elapsed.Nanoseconds())/float64(ringIterations))
	fmt.Printf("tap observed: %d, %d, %d, ... %d\n", tap[0], tap[1], tap[2], tap[len(tap)-1])
}

// runRing builds the ring, runs it for n iterations, and returns the
// values the tap observed.
func runRing(ctx context.Context, n int) ([]int64, error) {
	tap := make([]int64, n)

	err := csp.Run(ctx, func(rootCtx *csp.Context, scope *csp.ScopedForking) error {
		// Ring topology: Prefix -> Delta -> {Successor, tap} -> Successor -> Prefix.
		prefixIn, successorOut := channel.New1to1[int64](channel.WithName("successor->prefix"))
		deltaIn, prefixOut := channel.New1to1[int64](channel.WithName("prefix->delta"))
		successorIn, deltaOut0 := channel.New1to1[int64](channel.WithName("delta->successor"))
		tapR, deltaOut1 := channel.New1to1[int64](channel.WithName("delta->tap"))

		if err := scope.Fork(func(c *kernel.Context) error {
			return ignorePoison(plumbing.Prefix(c, prefixIn, prefixOut, 0))
		}); err != nil {
			return err
		}
		if err := scope.Fork(func(c *kernel.Context) error {
			return ignorePoison(plumbing.SeqDelta(c, deltaIn, deltaOut0, deltaOut1))
		}); err != nil {
			return err
		}
		if err := scope.Fork(func(c *kernel.Context) error {
			return ignorePoison(plumbing.Successor(c, successorIn, successorOut))
		}); err != nil {
			return err
		}

		if err := plumbing.RecordingReader(rootCtx, tapR, tap); err != nil {
			return err
		}

		// The ring's three processes loop forever; poisoning the tap
		// channel propagates through SeqDelta, then Prefix and
		// Successor, unwinding the whole ring cleanly.
		tapR.Poison()
		return nil
	}, kernel.WithThreads(4))

	return tap, err
}

// ignorePoison maps the ring's deliberate poison unwind to a clean
// exit; every other error still surfaces.
func ignorePoison(err error) error {
	if errors.Is(err, new(channel.PoisonError)) {
		return nil
	}
	return err
}
