package uthreads

// threadTable is the id -> *thread lookup plus smallest-free id
// allocation. Re-use after termination is immediate, so terminating ids
// {3,7,9} and spawning three more threads must hand back 3, then 7, then
// 9, in that order.
//
// A fixed-size bitmap is used instead of, say, a container/heap of free
// ids: a heap is the right structure when free slots need priority
// ordering by some other key (the sleep queue's wake time, for instance),
// but "smallest unused integer in a bounded range" doesn't need one, and
// MaxThreads is small (100 by default) so a linear scan over a bitmap is
// both simpler and cheaper than maintaining heap invariants here.
type threadTable struct {
	threads map[int]*thread
	used    []bool
}

func newThreadTable(maxThreads int) *threadTable {
	return &threadTable{
		threads: make(map[int]*thread, maxThreads),
		used:    make([]bool, maxThreads),
	}
}

// allocID returns the smallest integer in [0, len(used)) not currently in
// use, or ok=false if every id is taken.
func (t *threadTable) allocID() (id int, ok bool) {
	for i, u := range t.used {
		if !u {
			return i, true
		}
	}
	return 0, false
}

func (t *threadTable) insert(th *thread) {
	t.used[th.id] = true
	t.threads[th.id] = th
}

func (t *threadTable) get(id int) (*thread, bool) {
	th, ok := t.threads[id]
	return th, ok
}

// remove evicts id from the table, freeing it for immediate re-use by a
// later allocID call.
func (t *threadTable) remove(id int) {
	delete(t.threads, id)
	if id >= 0 && id < len(t.used) {
		t.used[id] = false
	}
}

func (t *threadTable) len() int { return len(t.threads) }
