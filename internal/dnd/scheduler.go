package dnd

// Scheduler runs fn after the current event dispatch has finished.
type Scheduler interface {
	Defer(fn func())
}

// Queue is a FIFO Scheduler drained explicitly by its host.
type Queue struct {
	pending []func()
}

// Defer appends fn to the queue.
func (q *Queue) Defer(fn func()) {
	if fn == nil {
		return
	}
	q.pending = append(q.pending, fn)
}

// Len reports the number of pending funcs.
func (q *Queue) Len() int {
	return len(q.pending)
}

// Flush runs pending funcs in order, including any deferred while
// flushing, and returns how many ran.
func (q *Queue) Flush() int {
	ran := 0
	for len(q.pending) > 0 {
		batch := q.pending
		q.pending = nil
		for _, fn := range batch {
			fn()
			ran++
		}
	}
	return ran
}

// ImmediateScheduler runs deferred funcs synchronously. Use it only where
// the host already calls drag-end after every drop has been dispatched.
type ImmediateScheduler struct{}

// Defer runs fn immediately.
func (ImmediateScheduler) Defer(fn func()) {
	if fn != nil {
		fn()
	}
}
