package uthreads

import (
	"io"
	"sync"
)

// instMu and inst back the single process-wide scheduler instance: a
// value created by Init and looked up by every other public call.
// instMu only ever guards the pointer itself (construction and the nil
// check); once inst exists, all further synchronization is scheduler.cs.
var (
	instMu sync.Mutex
	inst   *scheduler
)

func current() (*scheduler, *libraryError) {
	instMu.Lock()
	s := inst
	instMu.Unlock()
	if s == nil {
		return nil, userError("uthreads: Init has not been called")
	}
	return s, nil
}

// Init installs the timer, creates thread 0 as the calling goroutine
// itself (RUNNING, quantum count 1) and sets the global quantum counter
// to 1. Must be called exactly once per process, before any other public
// function.
func Init(quantumUsecs int) int {
	if quantumUsecs <= 0 {
		return reportUserError(userError("Init: quantum_usecs must be positive, got %d", quantumUsecs))
	}

	instMu.Lock()
	if inst != nil {
		instMu.Unlock()
		return reportUserError(userError("Init: already initialized"))
	}
	s := newScheduler(int64(quantumUsecs))
	main := newMainThread()
	main.quantumCount = 1
	s.table.insert(main)
	s.runningTid = 0
	inst = s
	instMu.Unlock()

	if err := s.timer.start(); err != nil {
		reportSystemError(err)
		return -1 // unreachable, reportSystemError exits the process
	}
	s.trace.event("init", s.globalQuantum, 0)
	return 0
}

// Checkpoint gives the currently running thread a chance to be preempted.
// This is the only way a pending preemption tick (raised by the timer
// through scheduler.go's onPreemptSignal) is actually carried out - see
// scheduler.go's onPreemptSignal/checkpoint for why Go gives this package
// no way to switch threads asynchronously, from the signal handler
// itself, the way a native implementation would. A thread whose body
// never calls a public API function and never calls Checkpoint directly
// is never preempted: it starves every other thread until it does.
// Spawn, Terminate, Block, Resume, Sleep, GetTID, GetTotalQuantums and
// GetQuantums already run the same checkpoint on entry, so well-behaved
// cooperative callers rarely need it directly; a tight compute loop must
// call it explicitly.
func Checkpoint() {
	s, err := current()
	if err != nil {
		return
	}
	s.checkpoint()
}

// Spawn creates a new thread running entry and returns its id.
func Spawn(entry func()) int {
	s, err := current()
	if err != nil {
		return reportUserError(err)
	}
	s.checkpoint()
	defer s.cs.enter()()
	id, err := s.spawn(entry)
	if err != nil {
		return reportUserError(err)
	}
	return id
}

// Terminate destroys the thread with the given id. Terminating thread 0
// exits the whole process; terminating the calling thread switches away
// and never returns.
func Terminate(tid int) int {
	s, err := current()
	if err != nil {
		return reportUserError(err)
	}
	s.checkpoint()
	defer s.cs.enter()()

	if tid == 0 {
		s.cs.unblock()
		s.timer.close()
		instMu.Lock()
		inst = nil
		instMu.Unlock()
		osExit(0)
		return 0 // unreachable
	}

	if tid == s.runningTid {
		th, ok := s.table.get(tid)
		if !ok {
			return reportUserError(userError("Terminate: no thread with id %d", tid))
		}
		s.terminateRunning(th) // releases cs internally, does not return
		return 0
	}

	if err := s.terminate(tid); err != nil {
		return reportUserError(err)
	}
	return 0
}

// Block moves the thread with the given id to BLOCKED. Thread 0 can never
// be blocked; blocking the calling thread switches away.
func Block(tid int) int {
	s, err := current()
	if err != nil {
		return reportUserError(err)
	}
	s.checkpoint()
	defer s.cs.enter()()

	if tid == 0 {
		return reportUserError(userError("Block: thread 0 cannot be blocked"))
	}

	if tid == s.runningTid {
		th, ok := s.table.get(tid)
		if !ok {
			return reportUserError(userError("Block: no thread with id %d", tid))
		}
		s.blockSelf(th) // releases cs internally
		return 0
	}

	if _, err := s.block(tid); err != nil {
		return reportUserError(err)
	}
	return 0
}

// Resume moves a BLOCKED thread back to READY. A no-op on any other
// state.
func Resume(tid int) int {
	s, err := current()
	if err != nil {
		return reportUserError(err)
	}
	s.checkpoint()
	defer s.cs.enter()()
	if rerr := s.resume(tid); rerr != nil {
		return reportUserError(rerr)
	}
	return 0
}

// Sleep blocks the calling thread for numQuanta additional quanta. Only
// valid for a non-main thread sleeping itself.
func Sleep(numQuanta int) int {
	s, err := current()
	if err != nil {
		return reportUserError(err)
	}
	s.checkpoint()
	defer s.cs.enter()()

	if s.runningTid == 0 {
		return reportUserError(userError("Sleep: the main thread cannot sleep"))
	}
	if numQuanta <= 0 {
		return reportUserError(userError("Sleep: num_quanta must be positive, got %d", numQuanta))
	}

	th, ok := s.table.get(s.runningTid)
	if !ok {
		return reportUserError(userError("Sleep: running thread vanished"))
	}
	s.sleepSelf(th, numQuanta) // releases cs internally
	return 0
}

// GetTID returns the id of the currently running thread.
func GetTID() int {
	s, err := current()
	if err != nil {
		return reportUserError(err)
	}
	s.checkpoint()
	defer s.cs.enter()()
	return s.getTID()
}

// GetTotalQuantums returns the number of quanta elapsed since Init,
// counting the one currently in progress.
func GetTotalQuantums() int {
	s, err := current()
	if err != nil {
		return reportUserError(err)
	}
	s.checkpoint()
	defer s.cs.enter()()
	return int(s.getTotalQuantums())
}

// GetQuantums returns the total number of quanta the given thread has
// run, including any quantum it is currently running.
func GetQuantums(tid int) int {
	s, err := current()
	if err != nil {
		return reportUserError(err)
	}
	s.checkpoint()
	defer s.cs.enter()()
	n, qerr := s.getQuantums(tid)
	if qerr != nil {
		return reportUserError(qerr)
	}
	return n
}

// SetTraceWriter points the scheduler's structured tracer at w - see
// trace.go. Intended for tests and diagnostic tooling, not part of the
// scheduler's core operations.
func SetTraceWriter(w io.Writer) int {
	s, err := current()
	if err != nil {
		return reportUserError(err)
	}
	s.trace.setWriter(w)
	return 0
}
