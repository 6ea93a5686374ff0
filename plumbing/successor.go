package plumbing

import (
	"github.com/dcreager/gocsp/channel"
	"github.com/dcreager/gocsp/kernel"
)

// Successor forever reads an int64 from in, increments it, and writes
// the result to out. Kept concrete on int64 rather than generic:
// incrementing would need an explicit numeric type set, and int64 is
// the only element type the commstime ring exercises.
func Successor(ctx *kernel.Context, in *channel.Reader[int64], out *channel.Writer[int64]) error {
	for {
		v, err := in.Read(ctx)
		if err != nil {
			out.Poison()
			return err
		}
		v++
		if err := out.Write(ctx, v); err != nil {
			in.Poison()
			return err
		}
	}
}
