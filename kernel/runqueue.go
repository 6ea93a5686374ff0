package kernel

// RunQueue is an intrusive FIFO list of ready Processes, owned by exactly
// one Thread and touched only from that thread's own goroutine, so
// append and pop need no synchronization. The Process struct itself
// supplies the link field: no allocation per enqueue, since the node is
// the process.
type RunQueue struct {
	head, tail *Process
	len        int
}

// PushBack appends p to the tail of the queue.
func (q *RunQueue) PushBack(p *Process) {
	p.setNext(nil)
	if q.tail == nil {
		q.head, q.tail = p, p
	} else {
		q.tail.setNext(p)
		q.tail = p
	}
	q.len++
}

// PopFront removes and returns the head of the queue, or nil if empty.
func (q *RunQueue) PopFront() *Process {
	p := q.head
	if p == nil {
		return nil
	}
	q.head = p.getNext()
	if q.head == nil {
		q.tail = nil
	}
	p.setNext(nil)
	q.len--
	return p
}

// Len reports the number of processes currently queued.
func (q *RunQueue) Len() int { return q.len }

// Empty reports whether the queue holds no processes.
func (q *RunQueue) Empty() bool { return q.head == nil }

// TakeAll empties the queue and returns its contents as a next-linked
// chain (head..tail) plus the count, for handing a whole batch to
// WakeChain without per-process pops.
func (q *RunQueue) TakeAll() (head, tail *Process, count int) {
	head, tail, count = q.head, q.tail, q.len
	q.head, q.tail, q.len = nil, nil, 0
	return head, tail, count
}

// PushChain appends an externally-built next-linked chain of processes
// (head..tail) to the queue tail in O(1), used when draining a batch of
// woken processes (barrier release, bucket flush) onto a run queue.
func (q *RunQueue) PushChain(head, tail *Process, count int) {
	if head == nil {
		return
	}
	if q.tail == nil {
		q.head = head
	} else {
		q.tail.setNext(head)
	}
	q.tail = tail
	q.len += count
}
