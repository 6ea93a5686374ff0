package alt

import (
	"github.com/dcreager/gocsp/channel"
	"github.com/dcreager/gocsp/kernel"
)

// channelReader is the subset of channel.Reader[T] a guard needs; it
// lets ChannelInput stay generic over T without the alt package
// depending on anything beyond these two methods.
type channelReader interface {
	EnableAlt(p *kernel.Process, fire func()) bool
	DisableAlt(p *kernel.Process) bool
}

// ChannelInput constructs a guard that is ready whenever a read from r
// would not block. The same Reader
// may be passed more than once to New to register repeated, independent
// guard positions.
//
// Selecting this guard does not itself consume a value: after Select
// returns the guard's index, the caller performs its own r.Read(ctx),
// which is guaranteed not to block.
func ChannelInput[T any](r *channel.Reader[T]) Guard {
	return &channelInputGuard{r: r}
}

type channelInputGuard struct {
	r channelReader
}

func (g *channelInputGuard) Enable(p *kernel.Process) bool {
	return g.r.EnableAlt(p, func() { fireAlter(p) })
}

func (g *channelInputGuard) Disable(p *kernel.Process) bool {
	return g.r.DisableAlt(p)
}

func (g *channelInputGuard) Activate() {}
