//go:build linux

package uthreads

import (
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"golang.org/x/sys/unix"
)

// vtimer starts and rearms a virtual-time interval timer that delivers
// SIGVTALRM once per quantum, and runs a dedicated watcher goroutine that
// turns each delivery into a call to onTick.
//
// golang.org/x/sys/unix.Setitimer with unix.ITIMER_VIRTUAL is a real
// CPU-time-consumed-only timer, distinct from wall-clock time - a
// time.Timer/time.Ticker would fire on a wall-clock schedule regardless
// of whether this process is actually running, which is not what a
// quantum is meant to measure. This exact primitive is Linux-only; see
// timer_portable.go for the other Unix platforms and why they cannot get
// the same guarantee from this dependency stack.
type vtimer struct {
	quantumUsecs int64
	onTick       func()

	sigCh chan os.Signal
	stop  chan struct{}
	done  chan struct{}
}

func newVTimer(quantumUsecs int64, onTick func()) *vtimer {
	return &vtimer{
		quantumUsecs: quantumUsecs,
		onTick:       onTick,
		sigCh:        make(chan os.Signal, 1),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// start installs the SIGVTALRM handler, locks the watcher goroutine to
// its OS thread (so the PthreadSigmask calls below are meaningful - Go
// only associates a signal mask with an OS thread, never a goroutine) and
// arms the initial interval.
func (v *vtimer) start() *libraryError {
	signal.Notify(v.sigCh, syscall.SIGVTALRM)

	ready := make(chan *libraryError, 1)
	go v.watch(ready)
	if err := <-ready; err != nil {
		return err
	}
	return nil
}

func (v *vtimer) watch(ready chan<- *libraryError) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(v.done)

	if err := v.arm(); err != nil {
		ready <- err
		return
	}
	ready <- nil

	for {
		select {
		case <-v.stop:
			return
		case <-v.sigCh:
			v.onTick()
		}
	}
}

// arm (re)programs ITIMER_VIRTUAL with both the initial and recurring
// interval equal to the configured quantum. It masks SIGVTALRM on its
// own OS thread for the duration of the syscall so a timer that was
// already near expiry cannot deliver before this call returns.
func (v *vtimer) arm() *libraryError {
	var mask unix.Sigset_t
	sigsetAdd(&mask, syscall.SIGVTALRM)
	if err := unix.PthreadSigmask(unix.SIG_BLOCK, &mask, nil); err != nil {
		return systemError(err, "failed to mask SIGVTALRM: %v", err)
	}
	defer unix.PthreadSigmask(unix.SIG_UNBLOCK, &mask, nil)

	seconds := v.quantumUsecs / secondInUsecs
	usecs := v.quantumUsecs % secondInUsecs
	it := unix.Itimerval{
		Interval: unix.Timeval{Sec: seconds, Usec: usecs},
		Value:    unix.Timeval{Sec: seconds, Usec: usecs},
	}
	if _, err := unix.Setitimer(unix.ItimerVirtual, it); err != nil {
		return systemError(err, "failed to arm virtual timer: %v", err)
	}
	return nil
}

// rearm resets the countdown to a fresh full quantum. Called after every
// context switch so the newly-dispatched thread always gets a whole
// quantum, even if the outgoing thread yielded long before its own
// interval would have naturally expired.
func (v *vtimer) rearm() *libraryError {
	return v.arm()
}

func (v *vtimer) close() {
	close(v.stop)
	signal.Stop(v.sigCh)
	<-v.done
}
