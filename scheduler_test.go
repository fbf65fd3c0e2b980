package uthreads

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// yieldMain simulates the preemption tick scheduler.checkpoint performs,
// without depending on the real timer: it moves the calling (running)
// thread to ready and switches away, exactly like checkpoint does once
// its atomic flag is set.
func yieldMain(s *scheduler, running *thread) {
	running.state = stateReady
	s.ready.enqueue(running.id)
	s.switchAway(running)
}

// newTestScheduler mirrors what Init does in api.go: a real vtimer is
// armed and watched exactly as production code would, since an armed but
// un-watched ITIMER_VIRTUAL would otherwise terminate the test process
// outright the moment SIGVTALRM is delivered with its default
// disposition.
func newTestScheduler(t *testing.T) (*scheduler, *thread) {
	s := newScheduler(100000)
	main := newMainThread()
	main.quantumCount = 1
	s.table.insert(main)
	s.runningTid = 0

	require.Nil(t, s.timer.start())
	t.Cleanup(s.timer.close)
	return s, main
}

// newUndispatchedScheduler builds a scheduler with thread 0 registered
// but never arms its timer, for tests that only exercise state
// transitions (block/resume/terminate/sleeping bookkeeping) without ever
// dispatching a thread - pickNext, the only caller of timer.rearm, is
// never reached.
func newUndispatchedScheduler() (*scheduler, *thread) {
	s := newScheduler(100000)
	main := newMainThread()
	main.quantumCount = 1
	s.table.insert(main)
	s.runningTid = 0
	return s, main
}

func TestSpawnRoundRobinsInFIFOOrder(t *testing.T) {
	s, main := newTestScheduler(t)

	var mu sync.Mutex
	var order []int
	record := func(id int) {
		mu.Lock()
		order = append(order, id)
		mu.Unlock()
	}

	var wg sync.WaitGroup
	wg.Add(2)
	id1, err := s.spawn(func() { record(1); wg.Done() })
	require.Nil(t, err)
	id2, err := s.spawn(func() { record(2); wg.Done() })
	require.Nil(t, err)

	// Hand control to thread 1, which runs to completion and
	// self-terminates, dispatching thread 2 in turn; thread 2 does the
	// same and dispatches the main thread back.
	yieldMain(s, main)

	wg.Wait()
	s.cs.block()
	assert.Equal(t, []int{id1, id2}, order)
	assert.Equal(t, 0, s.runningTid)
	s.cs.unblock()
}

func TestBlockRemovesFromReadyAndResumeRestores(t *testing.T) {
	s, _ := newUndispatchedScheduler()

	started := make(chan struct{})
	resumed := make(chan struct{})
	id, err := s.spawn(func() {
		close(started)
		<-resumed
	})
	require.Nil(t, err)

	s.cs.block()
	th, berr := s.block(id)
	require.Nil(t, berr)
	assert.Equal(t, stateBlocked, th.state)
	assert.False(t, s.ready.remove(id), "already removed from ready by block")
	s.cs.unblock()

	// The spawned goroutine never actually started running yet (nothing
	// has dispatched it), so it is safe to resume without it having
	// observed the block.
	s.cs.block()
	rerr := s.resume(id)
	require.Nil(t, rerr)
	th2, _ := s.table.get(id)
	assert.Equal(t, stateReady, th2.state)
	s.cs.unblock()
}

func TestResumeOnNonBlockedIsNoOp(t *testing.T) {
	s, _ := newUndispatchedScheduler()
	id, err := s.spawn(func() {})
	require.Nil(t, err)

	s.cs.block()
	defer s.cs.unblock()
	rerr := s.resume(id) // thread is READY, not BLOCKED
	assert.Nil(t, rerr)
}

func TestBlockThreadZeroIsUserError(t *testing.T) {
	s, _ := newUndispatchedScheduler()
	s.cs.block()
	defer s.cs.unblock()
	_, err := s.block(0)
	require.NotNil(t, err)
	assert.Equal(t, categoryUserInput, err.category)
}

func TestWakeExpiredRespectsBlockedState(t *testing.T) {
	s, _ := newUndispatchedScheduler()
	id, err := s.spawn(func() {})
	require.Nil(t, err)

	s.cs.block()
	s.ready.remove(id)
	s.blocked[id] = struct{}{}
	th, _ := s.table.get(id)
	th.state = stateBlocked
	s.sleeping.put(id, s.globalQuantum)

	s.wakeExpired()
	assert.False(t, s.sleeping.has(id))
	assert.False(t, s.ready.remove(id), "blocked thread must not be re-enqueued")
	s.cs.unblock()
}

func TestTerminateReclaimsID(t *testing.T) {
	s, _ := newUndispatchedScheduler()
	id, err := s.spawn(func() {})
	require.Nil(t, err)

	s.cs.block()
	terr := s.terminate(id)
	require.Nil(t, terr)
	_, ok := s.table.get(id)
	assert.False(t, ok)
	s.cs.unblock()

	newID, ok := s.table.allocID()
	require.True(t, ok)
	assert.Equal(t, id, newID)
}

func TestSpawnRejectsNilEntry(t *testing.T) {
	s, _ := newUndispatchedScheduler()
	_, err := s.spawn(nil)
	require.NotNil(t, err)
	assert.Equal(t, categoryUserInput, err.category)
}

func TestSpawnRejectsOverCapacity(t *testing.T) {
	// No thread here is ever dispatched, so the scheduler's timer is
	// never armed and does not need to be started for this test.
	s := newScheduler(100000)
	s.table = newThreadTable(2) // room for thread 0 plus one spawn
	s.table.insert(newMainThread())

	_, err := s.spawn(func() {})
	require.Nil(t, err)
	_, err = s.spawn(func() {})
	require.NotNil(t, err)
	assert.Equal(t, categoryUserInput, err.category)
}
