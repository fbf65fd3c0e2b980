package uthreads

import "sync/atomic"

// readyQueue is the ordered, FIFO sequence of runnable thread ids. It is
// a Michael-Scott lock-free queue, narrowed from a generic pointer
// payload down to a plain thread id and linked with typed
// atomic.Pointer[T] nodes rather than raw unsafe.Pointer.
//
// Every access to this queue already happens with criticalSection held -
// scheduler.go never touches ready outside of cs - so the lock-free
// property this algorithm buys is not load-bearing here the way it would
// be for a genuine multi-writer structure. It is kept anyway as a direct,
// type-safe queue implementation rather than a hand-rolled slice-based
// one; see DESIGN.md for the full rationale.
type readyQueue struct {
	head atomic.Pointer[readyNode]
	tail atomic.Pointer[readyNode]
}

type readyNode struct {
	id   int
	next atomic.Pointer[readyNode]
}

func newReadyQueue() *readyQueue {
	sentinel := &readyNode{}
	q := &readyQueue{}
	q.head.Store(sentinel)
	q.tail.Store(sentinel)
	return q
}

// enqueue appends id to the tail of the queue.
func (q *readyQueue) enqueue(id int) {
	n := &readyNode{id: id}
	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		if tail == q.tail.Load() { // tail and next still consistent?
			if next == nil {
				if tail.next.CompareAndSwap(next, n) {
					q.tail.CompareAndSwap(tail, n)
					return
				}
			} else {
				q.tail.CompareAndSwap(tail, next)
			}
		}
	}
}

// dequeue removes and returns the id at the head of the queue.
// ok is false if the queue is empty.
func (q *readyQueue) dequeue() (id int, ok bool) {
	for {
		head := q.head.Load()
		tail := q.tail.Load()
		next := head.next.Load()
		if head == q.head.Load() {
			if head == tail {
				if next == nil {
					return 0, false
				}
				q.tail.CompareAndSwap(tail, next)
			} else {
				id = next.id
				if q.head.CompareAndSwap(head, next) {
					return id, true
				}
			}
		}
	}
}

// remove deletes the first node carrying id, if present, and reports
// whether one was found. The underlying algorithm has no native support
// for removing from the middle of the queue (a preempted-then-blocked
// thread, say), so this drains and rebuilds the chain; MaxThreads is
// small (100 by default) and this path only runs under cs, so the O(n)
// cost is immaterial.
func (q *readyQueue) remove(id int) bool {
	var kept []int
	found := false
	for {
		v, ok := q.dequeue()
		if !ok {
			break
		}
		if v == id && !found {
			found = true
			continue
		}
		kept = append(kept, v)
	}
	for _, v := range kept {
		q.enqueue(v)
	}
	return found
}

func (q *readyQueue) empty() bool {
	head := q.head.Load()
	return head == q.tail.Load() && head.next.Load() == nil
}
