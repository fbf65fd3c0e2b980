// Package uthreads implements a user-space cooperative/preemptive thread
// library: many logical threads multiplexed onto a single OS thread,
// driven by a virtual-time quantum.
//
// A process links the library by calling Init once, then Spawn,
// Terminate, Block, Resume and Sleep to manage logical threads. The
// library decides which thread runs next using strict FIFO round-robin
// and performs the switch by parking the outgoing thread's goroutine and
// waking the incoming one - see context.go for how that stands in for the
// saved/restored machine state a native implementation would use.
//
// Known limitations:
//
//  1. All logical threads share one logical core; there is no
//     multi-CPU parallelism between them.
//  2. Scheduling is strict FIFO round-robin; there is no priority.
//  3. There is no thread-local storage and no mutex/condvar primitive.
//  4. Preemption is cooperative, not asynchronous: a quantum boundary is
//     only acted on the next time the running thread calls a public
//     function or Checkpoint. A thread that runs a tight loop calling
//     neither is never preempted and starves the others; see
//     scheduler.go's onPreemptSignal for why Go gives this package no
//     supported way to interrupt an arbitrary running goroutine from the
//     outside the way a native signal handler would.
//  5. On Linux, a quantum is real CPU time, via SIGVTALRM/ITIMER_VIRTUAL.
//     On other Unix-like platforms, golang.org/x/sys/unix does not wrap
//     setitimer or pthread_sigmask, so a quantum there is wall-clock time
//     instead (timer_portable.go).
package uthreads
