// Package channel's sharing variants all share one Channel[T]; Reader
// and Writer are thin handles that add a shared *kernel.QueuedMutex on
// the Any- side. See channel.go for the rendezvous protocol, buffer.go and
// buffered.go for the buffered variants, ext.go for extended input, and
// altsupport.go for the hooks the alt package's ChannelInput guard is
// built on.
package channel
