package uthreads

// context stands in for the saved machine state a native coroutine
// implementation would keep (registers, stack pointer, program counter,
// signal mask). Go gives every goroutine its own growable stack and
// preserves its program counter across a blocking receive for free, so
// there is nothing to "save" by hand: parking on resume is itself the
// save, and a send on resume is itself the restore. What the library
// still has to provide is the invariant that matters - that at most one
// uthread's goroutine is ever runnable at a time, and that every switch
// re-enables preemption (unblocks the critical section) - done by the
// outgoing side before it parks, see park below.
//
// This is a channel-baton rendezvous, one dedicated resume channel per
// thread instead of one shared parking structure, because the scheduler
// already owns the ready/blocked/sleeping ordering and only needs a
// single-slot handoff to wake a specific thread.
//
// This only ever hands control to a goroutine that is already parked and
// waiting for it - it cannot reach into a goroutine that is currently
// running arbitrary code and force it to stop. That is a cooperative
// handoff, not the forced, signal-handler-driven interruption a native
// preemptive scheduler performs; see scheduler.go's onPreemptSignal for
// where that gap actually bites.
type context struct {
	resume chan struct{}
}

func newContext() *context {
	return &context{resume: make(chan struct{})}
}

// park blocks the calling goroutine until ready is called on this same
// context from elsewhere. By the time park returns, this thread has been
// chosen to run again.
//
// The critical section is released by the outgoing side before park is
// called (scheduler.go's switchAway), not by the incoming side after it
// wakes - a real sync.Mutex cannot be handed from a parked goroutine to
// its eventual waker, since nothing would ever be left to unlock it. The
// net effect is preserved regardless: exactly one thread is ever outside
// the critical section and runnable at a time.
func (c *context) park() {
	<-c.resume
}

// ready hands control to the goroutine blocked in park. The send is
// unbuffered, so it returns once that goroutine has received it; the
// caller does not park here. The caller (the scheduler's dispatch
// logic) always pairs a ready() of the incoming thread with a park() of
// whichever thread is stepping aside - see scheduler.go's switchAway.
func (c *context) ready() {
	c.resume <- struct{}{}
}
