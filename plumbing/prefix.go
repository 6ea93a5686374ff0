package plumbing

import (
	"github.com/dcreager/gocsp/channel"
	"github.com/dcreager/gocsp/kernel"
)

// Prefix sends initial on out once, then behaves as Identity. In the
// commstime ring it seeds the loop with its first value so the delta
// and successor stages have something to consume.
func Prefix[T any](ctx *kernel.Context, in *channel.Reader[T], out *channel.Writer[T], initial T) error {
	if err := out.Write(ctx, initial); err != nil {
		in.Poison()
		return err
	}
	return Identity(ctx, in, out)
}
