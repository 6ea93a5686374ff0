// Package klog is the structured-logging facade shared by every gocsp
// package: a single swappable package-level logger, safe to read
// concurrently, defaulting to a low-overhead implementation.
package klog

import (
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Event is the concrete event type backing every gocsp logger.
type Event = stumpy.Event

// Logger is the type embedders configure via SetDefault.
type Logger = logiface.Logger[*Event]

var (
	mu      sync.RWMutex
	current *Logger = stumpy.L.New(
		stumpy.L.WithStumpy(),
	)
)

// Default returns the current package-wide logger. Never nil.
func Default() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// SetDefault replaces the package-wide logger. A nil logger resets to a
// disabled logger. Intended to be called once, at process start, by the
// embedding application — not from within a running scheduler.
func SetDefault(l *Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = logiface.New[*Event]()
	}
	current = l
}
