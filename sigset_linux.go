//go:build linux

package uthreads

import (
	"syscall"

	"golang.org/x/sys/unix"
)

const secondInUsecs = 1_000_000

// sigsetAdd sets the bit for sig in a Linux kernel sigset_t. x/sys/unix
// does not export a portable sigaddset helper, so this mirrors the bit
// arithmetic the kernel itself uses (word = (sig-1)/64, bit = (sig-1)%64),
// the same pattern other platforms' raw signal-mask bindings use for
// their own per-platform signal masks.
func sigsetAdd(set *unix.Sigset_t, sig syscall.Signal) {
	s := uint(sig) - 1
	set.Val[s/64] |= 1 << (s % 64)
}
