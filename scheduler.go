package uthreads

import "sync/atomic"

// MaxThreads and StackSize bound how many logical threads can exist at
// once and how large each one's accounted-for stack is. They are exported
// package variables rather than constants or an Init argument so a
// process can tune them before calling Init, favoring a plain exported
// var over a config struct or file.
var (
	MaxThreads = 100
	StackSize  = 8192
)

// scheduler is the single process-wide singleton: the authoritative owner
// of every thread and the ready/blocked/sleeping structures. Every field
// is only ever touched with cs held, with one exception: preemptRequested
// is set from the timer's own watcher goroutine and is therefore a
// sync/atomic.Bool rather than a plain bool - see checkpoint and
// timer_linux.go/timer_portable.go.
type scheduler struct {
	cs       criticalSection
	table    *threadTable
	ready    *readyQueue
	blocked  map[int]struct{}
	sleeping *sleepQueue

	runningTid    int
	globalQuantum uint64
	quantumUsecs  int64

	timer *vtimer
	trace *tracer

	preemptRequested atomic.Bool
}

func newScheduler(quantumUsecs int64) *scheduler {
	s := &scheduler{
		table:         newThreadTable(MaxThreads),
		ready:         newReadyQueue(),
		blocked:       make(map[int]struct{}),
		sleeping:      newSleepQueue(),
		globalQuantum: 1,
		quantumUsecs:  quantumUsecs,
		trace:         newTracer(),
	}
	s.timer = newVTimer(quantumUsecs, s.onPreemptSignal)
	return s
}

// onPreemptSignal runs on the timer's dedicated watcher goroutine, never
// on a uthread's own goroutine, and never performs the switch itself: it
// only raises a flag. This is a real, disclosed narrowing of a
// signal-driven preemption tick, not a faithful realization of one under
// a different name - see doc.go's "Known limitations" for the full
// consequence (a thread that never calls into this package is never
// preempted). Go gives no supported way for a signal handler, or any
// other goroutine, to force an arbitrary currently-running goroutine to
// stop and resume elsewhere; even the runtime-internals tricks examined
// while designing this package only ever operate on the calling goroutine
// or one already parked, never a third party's mid-execution. The running
// thread's own goroutine carries out the actual tick the next time it
// passes through checkpoint, which every public API wrapper and the
// exported Checkpoint helper call. See DESIGN.md for the full rationale.
func (s *scheduler) onPreemptSignal() {
	s.preemptRequested.Store(true)
}

// checkpoint performs a pending preemption tick cooperatively, on the
// calling (i.e. currently RUNNING) goroutine: mask, move the running
// thread to READY, dispatch the next one (switchAway advances the global
// quantum as part of that), rearm the timer, unmask - triggered by the
// next safe point the running thread happens to reach, not asynchronously
// by the signal itself. See onPreemptSignal for why this cannot be made
// asynchronous in Go.
func (s *scheduler) checkpoint() {
	if !s.preemptRequested.CompareAndSwap(true, false) {
		return
	}
	s.cs.block()
	running, ok := s.table.get(s.runningTid)
	if !ok {
		// Thread already gone (e.g. raced with a self-terminate that beat
		// us to the critical section); nothing to preempt.
		s.cs.unblock()
		return
	}
	s.trace.event("preempt", s.globalQuantum, running.id)
	running.state = stateReady
	s.ready.enqueue(running.id)
	s.switchAway(running)
}

// wakeExpired moves every sleeper whose wake quantum has arrived out of
// sleeping and, unless it is also BLOCKED, appends it to ready.
func (s *scheduler) wakeExpired() {
	for _, id := range s.sleeping.popExpired(s.globalQuantum) {
		if _, blocked := s.blocked[id]; !blocked {
			s.ready.enqueue(id)
		}
		s.trace.event("wake", s.globalQuantum, id)
	}
}

// pickNext is the non-blocking half of dispatch(): it runs wakeExpired,
// pops the head of ready, promotes it to RUNNING, bumps its quantum count
// and rearms the timer for a fresh quantum. Must be called with cs held;
// the caller is responsible for the actual context handoff (switchAway).
func (s *scheduler) pickNext() *thread {
	s.wakeExpired()
	id, ok := s.ready.dequeue()
	if !ok {
		// Every thread is either RUNNING, BLOCKED or asleep with nothing
		// left to hand the OS thread to - a programmer error. Genuinely
		// unreachable as long as thread 0 (which never blocks or sleeps)
		// is always a member of the thread table.
		panic("uthreads: no runnable thread")
	}
	next, _ := s.table.get(id)
	next.state = stateRunning
	s.runningTid = id
	next.quantumCount++
	if err := s.timer.rearm(); err != nil {
		reportSystemError(err)
	}
	s.trace.event("dispatch", s.globalQuantum, id)
	return next
}

// switchAway performs the actual context switch: it selects and activates
// the next thread, then hands control to it. cs must be held on entry.
//
// The global quantum counter advances exactly once per call here, whether
// the switch was triggered by a preemption tick or a voluntary
// block/sleep/terminate - every context switch counts, not just
// timer-driven ones.
//
// The critical section is released here, before the outgoing thread
// parks, rather than by the incoming thread after it resumes - see
// context.go's park for why a real sync.Mutex cannot be handed off the
// other way around. outgoing is nil when the caller has no context to
// return to (terminate of self, via terminateRunning).
func (s *scheduler) switchAway(outgoing *thread) {
	s.globalQuantum++
	next := s.pickNext()
	s.cs.unblock()
	if outgoing != nil && next.id == outgoing.id {
		// No other thread was runnable, so pickNext re-selected the very
		// thread being preempted (the "ready is empty and the current
		// thread is still runnable" case). There is
		// nothing to hand off - this goroutine already is that thread -
		// so sending on next.context and then receiving on the same
		// context's channel, sequentially, on this one goroutine, would
		// be a send with no concurrent receiver: a deadlock. Just
		// continue; quantumCount has already been bumped by pickNext.
		return
	}
	next.context.ready()
	if outgoing != nil {
		outgoing.context.park()
	}
}

// spawn allocates the smallest free id, builds a thread with its own
// context, enqueues it READY and launches the goroutine that will run
// entry once first dispatched. Spawning never yields.
func (s *scheduler) spawn(entry func()) (int, *libraryError) {
	if entry == nil {
		return 0, userError("spawn: entry function must not be nil")
	}
	id, ok := s.table.allocID()
	if !ok {
		return 0, userError("spawn: thread limit of %d exceeded", MaxThreads)
	}
	th := newThread(id, entry, StackSize)
	s.table.insert(th)
	s.ready.enqueue(id)
	s.trace.event("spawn", s.globalQuantum, id)

	go func() {
		th.context.park()
		entry()
		s.cs.block()
		s.terminateRunning(th)
	}()
	return id, nil
}

// terminateRunning tears down th (which must be the current running
// thread) and switches away without parking, since there is no saved
// context left to resume into. cs must be held on entry; it is released
// inside switchAway. Shared by the implicit terminate a thread performs
// on falling off the end of its entry function (spawn's goroutine, above)
// and an explicit Terminate(self) call from api.go.
func (s *scheduler) terminateRunning(th *thread) {
	s.removeFromQueues(th.id)
	s.table.remove(th.id)
	s.trace.event("terminate", s.globalQuantum, th.id)
	s.switchAway(nil)
	// switchAway(nil) does not park this goroutine - there is no context
	// left to resume it into - so without this, the goroutine that just
	// terminated its own thread would fall straight through back into its
	// caller and keep executing ordinary Go code while a different thread
	// is simultaneously RUNNING, breaking the one-thread-at-a-time
	// invariant. Block forever instead: nothing will ever ready() this
	// goroutine again once its thread has been dropped from the table.
	select {}
}

// terminate destroys tid's thread, freeing its table slot and purging it
// from every queue it might be sitting in. Called from a *different*
// thread's goroutine for tid != runningTid; the tid == 0 and
// tid == running_tid cases are handled by the API wrapper (api.go) since
// they change control flow rather than just scheduler state.
func (s *scheduler) terminate(tid int) *libraryError {
	if _, ok := s.table.get(tid); !ok {
		return userError("terminate: no thread with id %d", tid)
	}
	s.removeFromQueues(tid)
	s.table.remove(tid)
	s.trace.event("terminate", s.globalQuantum, tid)
	return nil
}

// removeFromQueues purges tid from every scheduler structure it might be
// sitting in: ready, blocked, sleeping. Safe to call unconditionally.
func (s *scheduler) removeFromQueues(tid int) {
	s.ready.remove(tid)
	delete(s.blocked, tid)
	s.sleeping.removeID(tid)
}

// block moves tid to BLOCKED for a target other than the caller itself;
// self-block additionally requires a context switch and is orchestrated
// by the API wrapper.
func (s *scheduler) block(tid int) (*thread, *libraryError) {
	if tid == 0 {
		return nil, userError("block: thread 0 cannot be blocked")
	}
	th, ok := s.table.get(tid)
	if !ok {
		return nil, userError("block: no thread with id %d", tid)
	}
	if th.state == stateBlocked {
		return nil, nil // already blocked: no-op
	}
	if th.state == stateReady {
		s.ready.remove(tid)
	}
	th.state = stateBlocked
	s.blocked[tid] = struct{}{}
	s.trace.event("block", s.globalQuantum, tid)
	return th, nil
}

// resume is a no-op unless tid is currently BLOCKED, in which case it
// becomes READY and is enqueued unless it is also asleep, in which case
// wakeExpired will enqueue it once its sleep elapses. This is the
// recommended resolution to the ambiguous case where a resumed thread's
// sleep has already expired: its sleeping entry has already been purged
// by that point, so there is nothing left to defer to and it is enqueued
// here instead.
func (s *scheduler) resume(tid int) *libraryError {
	th, ok := s.table.get(tid)
	if !ok {
		return userError("resume: no thread with id %d", tid)
	}
	if th.state != stateBlocked {
		return nil // no-op on RUNNING/READY
	}
	delete(s.blocked, tid)
	th.state = stateReady
	if !s.sleeping.has(tid) {
		s.ready.enqueue(tid)
	}
	s.trace.event("resume", s.globalQuantum, tid)
	return nil
}

// blockSelf moves th (which must be the running thread) to BLOCKED and
// switches away. cs must be held on entry; it is released inside
// switchAway. Pulled out of api.go's Block wrapper, mirroring
// terminateRunning above and sleepSelf below, so the same self-block path is reachable
// directly from tests without going through the public API's own
// checkpoint/critical-section handling.
func (s *scheduler) blockSelf(th *thread) {
	th.state = stateBlocked
	s.blocked[th.id] = struct{}{}
	s.trace.event("block", s.globalQuantum, th.id)
	s.switchAway(th)
}

// sleepSelf puts th (which must be the running thread) to sleep for
// numQuanta additional quanta beyond the current one, then switches away
// without re-enqueuing it.
func (s *scheduler) sleepSelf(th *thread, numQuanta int) {
	s.sleeping.put(th.id, s.globalQuantum+uint64(numQuanta)+1)
	// A sleeping-but-not-blocked thread is still considered READY - it is
	// merely absent from the ready queue until wakeExpired puts it back.
	th.state = stateReady
	s.trace.event("sleep", s.globalQuantum, th.id)
	s.switchAway(th)
}

func (s *scheduler) getTID() int { return s.runningTid }

func (s *scheduler) getTotalQuantums() uint64 { return s.globalQuantum }

func (s *scheduler) getQuantums(tid int) (int, *libraryError) {
	th, ok := s.table.get(tid)
	if !ok {
		return 0, userError("get_quantums: no thread with id %d", tid)
	}
	return th.quantumCount, nil
}
