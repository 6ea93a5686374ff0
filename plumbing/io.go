package plumbing

import (
	"github.com/dcreager/gocsp/channel"
	"github.com/dcreager/gocsp/kernel"
)

// Writer writes value to out exactly times times, then returns; useful
// for injecting a fixed input sequence into a network under test.
// times <= 0 is a no-op.
func Writer[T any](ctx *kernel.Context, out *channel.Writer[T], value T, times int) error {
	for i := 0; i < times; i++ {
		if err := out.Write(ctx, value); err != nil {
			return err
		}
	}
	return nil
}

// Reader reads from in exactly times times, discarding every value;
// useful for draining a tap channel without caring about its contents.
// times <= 0 is a no-op. Reader does not poison in on completion;
// callers that want the channel poisoned afterward do so explicitly.
func Reader[T any](ctx *kernel.Context, in *channel.Reader[T], times int) error {
	for i := 0; i < times; i++ {
		if _, err := in.Read(ctx); err != nil {
			return err
		}
	}
	return nil
}

// RecordingReader reads exactly len(into) values from in, storing them
// in order, then returns; the recording variant of Reader for callers
// that assert on the observed sequence.
func RecordingReader[T any](ctx *kernel.Context, in *channel.Reader[T], into []T) error {
	for i := range into {
		v, err := in.Read(ctx)
		if err != nil {
			return err
		}
		into[i] = v
	}
	return nil
}
