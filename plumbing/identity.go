package plumbing

import (
	"github.com/dcreager/gocsp/channel"
	"github.com/dcreager/gocsp/kernel"
)

// Identity forever forwards one value at a time from in to out. Two
// channels joined by Identity are not equivalent to a
// single channel: Identity's own parked-write-then-park-read cycle
// introduces one rendezvous' worth of buffering.
func Identity[T any](ctx *kernel.Context, in *channel.Reader[T], out *channel.Writer[T]) error {
	for {
		v, err := in.Read(ctx)
		if err != nil {
			out.Poison()
			return err
		}
		if err := out.Write(ctx, v); err != nil {
			in.Poison()
			return err
		}
	}
}
