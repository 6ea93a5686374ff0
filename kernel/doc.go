// Package kernel implements gocsp's scheduler: kernel threads, run
// queues, the cross-thread process hand-off queue, the monotonic timer
// queue, and the Process/Context types every other gocsp package
// (channel, alt, barrier) builds its suspension points on top of.
//
// Nothing in this package is specific to channels, ALTs, or barriers —
// it only knows how to run, suspend, and resume Processes. The
// synchronization logic specific to rendezvous, selection, and
// multi-party barriers lives in the sibling packages, each of which
// calls back into kernel via Context.Block/Yield and kernel.Wake.
package kernel
