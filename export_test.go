package uthreads

// ForcePreemptTick drives exactly one preemption tick synchronously from
// the calling goroutine, bypassing the real timer entirely. It performs
// the same two steps a delivered SIGVTALRM would: raise the pending-tick
// flag, then run the checkpoint that consumes it. Only built into test
// binaries (the _test.go suffix), so scenario tests can pin the exact
// quantum at which a switch happens instead of racing a real interval
// timer.
func (s *scheduler) ForcePreemptTick() {
	s.preemptRequested.Store(true)
	s.checkpoint()
}
