package uthreads

import "container/heap"

// sleepEntry is one thread's pending wake-up: a thread id paired with
// the quantum at which it should return to ready.
type sleepEntry struct {
	id    int
	wake  uint64
	index int // position in the heap slice, kept in sync by Swap
}

// sleepQueue is a min-heap of sleepEntry ordered by wake quantum,
// addressable by thread id so a terminated or woken thread can be pulled
// out of the middle in O(log n) instead of a linear scan. Built on
// container/heap rather than a sorted slice or a third-party priority
// queue; see DESIGN.md for why.
type sleepQueue struct {
	items []*sleepEntry
	index map[int]*sleepEntry
}

func newSleepQueue() *sleepQueue {
	return &sleepQueue{index: make(map[int]*sleepEntry)}
}

func (q *sleepQueue) Len() int { return len(q.items) }

func (q *sleepQueue) Less(i, j int) bool { return q.items[i].wake < q.items[j].wake }

func (q *sleepQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.items[i].index = i
	q.items[j].index = j
}

func (q *sleepQueue) Push(x any) {
	e := x.(*sleepEntry)
	e.index = len(q.items)
	q.items = append(q.items, e)
}

func (q *sleepQueue) Pop() any {
	old := q.items
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	q.items = old[:n-1]
	return e
}

// put schedules id to wake at wakeQuantum, replacing any existing entry
// for id.
func (q *sleepQueue) put(id int, wakeQuantum uint64) {
	q.removeID(id)
	e := &sleepEntry{id: id, wake: wakeQuantum}
	heap.Push(q, e)
	q.index[id] = e
}

// has reports whether id has a pending sleep entry.
func (q *sleepQueue) has(id int) bool {
	_, ok := q.index[id]
	return ok
}

// removeID removes id's sleep entry, if any, and reports whether one was
// present.
func (q *sleepQueue) removeID(id int) bool {
	e, ok := q.index[id]
	if !ok {
		return false
	}
	heap.Remove(q, e.index)
	delete(q.index, id)
	return true
}

// popExpired removes and returns every entry whose wake quantum is
// <= globalQuantum.
func (q *sleepQueue) popExpired(globalQuantum uint64) []int {
	var woken []int
	for q.Len() > 0 && q.items[0].wake <= globalQuantum {
		e := heap.Pop(q).(*sleepEntry)
		delete(q.index, e.id)
		woken = append(woken, e.id)
	}
	return woken
}
