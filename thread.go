package uthreads

// state is one of the three states a thread can be in. Sleeping is
// deliberately not a fourth state - it is tracked as an orthogonal
// attribute on the scheduler's sleeping map, since a thread can be both
// BLOCKED and asleep at once.
type state uint8

const (
	stateReady state = iota
	stateRunning
	stateBlocked
)

func (s state) String() string {
	switch s {
	case stateReady:
		return "READY"
	case stateRunning:
		return "RUNNING"
	case stateBlocked:
		return "BLOCKED"
	default:
		return "UNKNOWN"
	}
}

// thread is one logical thread's record: its id, scheduling state, the
// context used to park and resume it, how many quanta it has run, and the
// entry function its goroutine executes. id 0 is always the main thread:
// it never owns a stack buffer of its own (it runs on the goroutine that
// called Init) and StackSize is reported as 0 for it even though every
// other field behaves identically.
type thread struct {
	id           int
	state        state
	context      *context
	quantumCount int
	stackSize    int // bookkeeping only, see DESIGN.md; 0 for thread 0
	entry        func()
}

func newMainThread() *thread {
	return &thread{
		id:      0,
		state:   stateRunning,
		context: newContext(),
	}
}

func newThread(id int, entry func(), stackSize int) *thread {
	return &thread{
		id:        id,
		state:     stateReady,
		context:   newContext(),
		entry:     entry,
		stackSize: stackSize,
	}
}
