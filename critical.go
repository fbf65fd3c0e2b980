package uthreads

import (
	"sync"
	"sync/atomic"
)

// criticalSection is the mutual-exclusion discipline every public API
// entry and every preemption tick must hold before touching scheduler
// state. A native implementation would mask/unmask the preemption
// signal; here it is a plain mutex, which gives the same guarantee for
// the reason explained at scheduler.go's onPreemptSignal/checkpoint - a
// delivered SIGVTALRM only raises a flag, and the checkpoint that acts on
// it must acquire this same lock before it can touch any scheduler state,
// so an API call already holding the lock is, in effect, immune to
// preemption for as long as it needs to be.
//
// block/unblock are named for the role this type plays - standing in for
// the process signal mask - rather than for sync.Mutex's own vocabulary.
// unblock is idempotent: switchAway releases the section itself partway
// through a handoff, before the outgoing thread parks, so the same
// release must also be safe to invoke again through enter()'s deferred
// guard without double-unlocking.
type criticalSection struct {
	mu   sync.Mutex
	held atomic.Bool
}

func (cs *criticalSection) block() {
	cs.mu.Lock()
	cs.held.Store(true)
}

func (cs *criticalSection) unblock() {
	if cs.held.CompareAndSwap(true, false) {
		cs.mu.Unlock()
	}
}

// enter is an RAII-style guard: it enters the critical section and
// returns a closure that leaves it, so every public API wrapper can
// write `defer cs.enter()()` and never forget to unblock on an early
// return. The returned closure is just unblock, so it is always safe to
// call even on a path that already released the section by hand earlier
// in the same call.
func (cs *criticalSection) enter() func() {
	cs.block()
	return cs.unblock
}
