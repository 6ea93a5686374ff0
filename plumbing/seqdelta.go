package plumbing

import (
	"github.com/dcreager/gocsp/channel"
	"github.com/dcreager/gocsp/kernel"
)

// SeqDelta forever reads one value from in and writes it, in sequence,
// to out0 then out1. The sequential ordering of the two writes can
// deadlock a network that assumes parallel delivery; wire out0 to the
// consumer that is always ready first.
func SeqDelta[T any](ctx *kernel.Context, in *channel.Reader[T], out0, out1 *channel.Writer[T]) error {
	for {
		v, err := in.Read(ctx)
		if err != nil {
			out0.Poison()
			out1.Poison()
			return err
		}
		if err := out0.Write(ctx, v); err != nil {
			in.Poison()
			out1.Poison()
			return err
		}
		if err := out1.Write(ctx, v); err != nil {
			in.Poison()
			out0.Poison()
			return err
		}
	}
}
