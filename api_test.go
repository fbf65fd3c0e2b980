package uthreads

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initForTest calls Init and arranges for the process-wide singleton to
// be torn down at the end of the test via Terminate(0), with osExit
// stubbed so the test binary survives the call - Init may only be
// called once per live singleton, so every test that needs the public
// API must clean up after itself this way.
func initForTest(t *testing.T, quantumUsecs int) {
	require.Nil(t, inst, "a previous test left the singleton initialized")
	require.Equal(t, 0, Init(quantumUsecs))

	t.Cleanup(func() {
		origExit := osExit
		osExit = func(int) {}
		defer func() { osExit = origExit }()
		Terminate(0)
	})
}

func TestInitRejectsNonPositiveQuantum(t *testing.T) {
	require.Nil(t, inst)
	assert.Equal(t, -1, Init(0))
	assert.Equal(t, -1, Init(-5))
	assert.Nil(t, inst, "a rejected Init must not install a singleton")
}

func TestPublicAPIBeforeInitReturnsUserError(t *testing.T) {
	require.Nil(t, inst)
	assert.Equal(t, -1, Spawn(func() {}))
	assert.Equal(t, -1, GetTID())
	assert.Equal(t, -1, Block(1))
}

func TestInitTwiceIsUserError(t *testing.T) {
	initForTest(t, 10000)
	assert.Equal(t, -1, Init(10000))
}

func TestSpawnAndSelfTerminateAdvanceQuantum(t *testing.T) {
	initForTest(t, 10000)
	before := GetTotalQuantums()

	tid := Spawn(func() {})
	require.GreaterOrEqual(t, tid, 1)

	// A thread's entry function returning self-terminates it; its id
	// stops resolving once that finishes, which GetQuantums surfaces as
	// a user error.
	for GetQuantums(tid) != -1 {
		Checkpoint()
	}
	assert.Greater(t, GetTotalQuantums(), before)
}

func TestSleepDefersAndMainCannotSleep(t *testing.T) {
	initForTest(t, 10000)
	assert.Equal(t, -1, Sleep(1), "the main thread must never be allowed to sleep")

	var woke atomic.Bool
	Spawn(func() {
		Sleep(2)
		woke.Store(true)
	})
	for !woke.Load() {
		Checkpoint()
	}
}

func TestBlockAndResumeRoundTrip(t *testing.T) {
	initForTest(t, 10000)

	var started, resumed, finished atomic.Bool
	tid := Spawn(func() {
		started.Store(true)
		for !resumed.Load() {
			Checkpoint()
		}
		finished.Store(true)
	})

	// The main thread must keep checkpointing itself - a native blocking
	// wait here would never give the spawned thread a turn to run.
	for !started.Load() {
		Checkpoint()
	}
	require.Equal(t, 0, Block(tid))
	require.Equal(t, 0, Resume(tid))
	resumed.Store(true)

	for !finished.Load() {
		Checkpoint()
	}
}

func TestBlockThreadZeroAndUnknownTidAreUserErrors(t *testing.T) {
	initForTest(t, 10000)
	assert.Equal(t, -1, Block(0))
	assert.Equal(t, -1, Terminate(999))
	assert.Equal(t, -1, Resume(999))
}

func TestGetTotalQuantumsNeverDecreases(t *testing.T) {
	initForTest(t, 10000)
	first := GetTotalQuantums()
	assert.GreaterOrEqual(t, first, 1)
	second := GetTotalQuantums()
	assert.GreaterOrEqual(t, second, first)
}
