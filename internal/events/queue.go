package events

// Queue is a FIFO of deferred work. Completions schedule their continuations
// here rather than running them inline, so a chain of moves never recurses.
type Queue struct {
	pending []func()
	running bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Defer appends fn to the queue.
func (q *Queue) Defer(fn func()) {
	q.pending = append(q.pending, fn)
}

// Pending returns the number of queued functions.
func (q *Queue) Pending() int {
	return len(q.pending)
}

// Run drains the queue in FIFO order, including work queued while draining,
// and returns how many functions ran. A nested call returns 0 and leaves the
// draining to the outer call.
func (q *Queue) Run() int {
	if q.running {
		return 0
	}
	q.running = true
	defer func() { q.running = false }()

	n := 0
	for len(q.pending) > 0 {
		fn := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		fn()
		n++
	}
	q.pending = nil
	return n
}

// Completion marks the end of a presented transition. Continuations attached
// with Then run on the queue after Resolve, in attachment order.
type Completion struct {
	q     *Queue
	done  bool
	conts []func()
}

// NewCompletion returns an unresolved completion bound to q.
func (q *Queue) NewCompletion() *Completion {
	return &Completion{q: q}
}

// Resolved returns an already resolved completion.
func (q *Queue) Resolved() *Completion {
	return &Completion{q: q, done: true}
}

// Done reports whether Resolve has been called.
func (c *Completion) Done() bool {
	return c.done
}

// Resolve marks the completion done and schedules its continuations.
// Calling it again has no effect.
func (c *Completion) Resolve() {
	if c.done {
		return
	}
	c.done = true
	conts := c.conts
	c.conts = nil
	for _, fn := range conts {
		c.q.Defer(fn)
	}
}

// Then attaches fn and returns a completion that resolves after fn has run.
// If c is already resolved, fn is scheduled immediately.
func (c *Completion) Then(fn func()) *Completion {
	next := c.q.NewCompletion()
	run := func() {
		fn()
		next.Resolve()
	}
	if c.done {
		c.q.Defer(run)
	} else {
		c.conts = append(c.conts, run)
	}
	return next
}

// All returns a completion that resolves once every input has resolved.
func (q *Queue) All(cs ...*Completion) *Completion {
	out := q.NewCompletion()
	remaining := len(cs)
	if remaining == 0 {
		out.Resolve()
		return out
	}
	for _, c := range cs {
		c.Then(func() {
			remaining--
			if remaining == 0 {
				out.Resolve()
			}
		})
	}
	return out
}
