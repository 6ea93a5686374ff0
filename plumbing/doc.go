// Package plumbing supplies a handful of convenience CSP processes —
// identity, prefix, sequenced delta, successor, and fixed-count channel
// drivers — deliberately kept outside the runtime core, but enough to
// build the commstime ring (cmd/commstime) and similar small networks.
//
// Identity, Prefix, SeqDelta and Successor are each a loop reading from
// a channel.Reader, doing its one job, writing to a channel.Writer,
// poisoning its remaining ends and returning on the first poison (or
// other error) it observes. The fixed-count drivers (Writer, Reader,
// RecordingReader) return the error without poisoning anything.
package plumbing
