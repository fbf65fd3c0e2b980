//go:build unix && !linux

package uthreads

import "time"

// vtimer on non-Linux Unix platforms falls back to a wall-clock periodic
// timer instead of a true CPU-time-only virtual timer. golang.org/x/sys/unix
// does not wrap setitimer or pthread_sigmask outside Linux - its generated
// per-platform syscall tables still list Setitimer as unimplemented for
// darwin, freebsd, netbsd and openbsd - and the Go standard library has no
// portable equivalent either, so there is no ITIMER_VIRTUAL-backed
// implementation available to this package on these platforms without
// reaching for cgo. A quantum here is therefore wall-clock time actually
// elapsed, not CPU time actually consumed by the process: a thread that
// blocks on I/O still burns through its quantum. See DESIGN.md and doc.go
// for the disclosed consequence.
type vtimer struct {
	quantumUsecs int64
	onTick       func()

	timer *time.Timer
	tick  chan struct{}
	stop  chan struct{}
	done  chan struct{}
}

func newVTimer(quantumUsecs int64, onTick func()) *vtimer {
	return &vtimer{
		quantumUsecs: quantumUsecs,
		onTick:       onTick,
		tick:         make(chan struct{}, 1),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

func (v *vtimer) start() *libraryError {
	go v.watch()
	return v.arm()
}

func (v *vtimer) watch() {
	defer close(v.done)
	for {
		select {
		case <-v.stop:
			return
		case <-v.tick:
			v.onTick()
		}
	}
}

// arm (re)programs the fallback timer with a fresh full interval. Unlike
// the Linux path there is no signal to mask: the timer fires by sending on
// a buffered channel this goroutine itself created, so there is nothing
// else racing to observe it half-armed.
func (v *vtimer) arm() *libraryError {
	d := time.Duration(v.quantumUsecs) * time.Microsecond
	if v.timer == nil {
		v.timer = time.AfterFunc(d, func() {
			select {
			case v.tick <- struct{}{}:
			default:
			}
		})
		return nil
	}
	v.timer.Reset(d)
	return nil
}

func (v *vtimer) rearm() *libraryError {
	return v.arm()
}

func (v *vtimer) close() {
	close(v.stop)
	v.timer.Stop()
	<-v.done
}
