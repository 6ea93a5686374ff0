// Package csptime provides the monotonic time primitive used by timeout
// guards, sleeps, and the scheduler's timer queue.
//
// The clock is process-wide rather than per-thread: gocsp processes are
// spawned across kernel threads, so no single thread's notion of "now"
// can be authoritative.
package csptime

import (
	"context"
	"math"
	"time"
)

// Time is a monotonic instant, expressed as nanoseconds since an
// unspecified process-wide epoch. It is comparable and totally ordered.
//
// Do not compare a Time obtained from CurrentTime to a wall-clock value;
// Time values are only meaningful relative to each other.
type Time int64

// epoch anchors Time(0) to package initialization, using the
// monotonic component of time.Now (time.Since on a stored time.Time reads
// the monotonic reading transparently, per the time package docs).
var epoch = time.Now()

// CurrentTime returns the current monotonic time.
func CurrentTime() Time {
	return Time(time.Since(epoch))
}

// Add returns t+d, saturating at the representable bounds instead of
// overflowing.
func (t Time) Add(d time.Duration) Time {
	sum := int64(t) + int64(d)
	if d > 0 && sum < int64(t) {
		return Time(math.MaxInt64)
	}
	if d < 0 && sum > int64(t) {
		return Time(math.MinInt64)
	}
	return Time(sum)
}

// Sub returns the duration t-u, saturating at the representable bounds.
func (t Time) Sub(u Time) time.Duration {
	diff := int64(t) - int64(u)
	if u < 0 && diff < int64(t) {
		return time.Duration(math.MaxInt64)
	}
	if u > 0 && diff > int64(t) {
		return time.Duration(math.MinInt64)
	}
	return time.Duration(diff)
}

// Before reports whether t occurs before u.
func (t Time) Before(u Time) bool { return t < u }

// After reports whether t occurs after u.
func (t Time) After(u Time) bool { return t > u }

// SleepFor blocks the calling goroutine for d, or until ctx is done.
func SleepFor(ctx context.Context, d time.Duration) error {
	return SleepUntil(ctx, CurrentTime().Add(d))
}

// SleepUntil blocks the calling goroutine until t, or until ctx is done.
func SleepUntil(ctx context.Context, t Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := t.Sub(CurrentTime())
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
