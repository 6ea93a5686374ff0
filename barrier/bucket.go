package barrier

import (
	"sync"

	"github.com/dcreager/gocsp/kernel"
)

// Bucket is a barrier with no fixed membership: any process
// may FallInto it and park; a separate Flush releases everyone parked at
// that moment in one batch.
type Bucket struct {
	mu     sync.Mutex
	parked kernel.RunQueue
}

// NewBucket constructs an empty Bucket.
func NewBucket() *Bucket {
	return &Bucket{}
}

// FallInto parks the calling process until the next Flush.
func (b *Bucket) FallInto(ctx *kernel.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	b.parked.PushBack(ctx.Process())
	b.mu.Unlock()

	ctx.Block("bucket.fallinto")
	return nil
}

// Flush releases every process currently parked in the bucket, as one
// chain per home thread.
func (b *Bucket) Flush() {
	b.mu.Lock()
	head, _, _ := b.parked.TakeAll()
	b.mu.Unlock()

	kernel.WakeChain(head, nil)
}

// Holding reports how many processes are currently parked.
func (b *Bucket) Holding() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.parked.Len()
}
