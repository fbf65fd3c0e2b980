package uthreads

import (
	"fmt"
	"os"
)

// errorCategory distinguishes the outcomes a failed library call can have:
// a caller mistake that leaves state untouched, or a system failure that
// is always fatal.
type errorCategory uint8

const (
	// categoryUserInput covers bad ids, nil entry points, q <= 0, and
	// other caller mistakes: the API call returns -1 and state is
	// unchanged.
	categoryUserInput errorCategory = iota
	// categorySystem covers a failed signal mask, timer, or signal
	// handler install: fatal, the process exits with code 1.
	categorySystem
)

// libraryError is the sentinel error type behind every "thread library
// error" / "system error" line. Call sites that need to distinguish
// causes use errors.Is/errors.As instead of matching stderr text; the
// stderr text itself is never templated beyond the two literal prefixes
// below.
type libraryError struct {
	category errorCategory
	msg      string
	cause    error
}

func (e *libraryError) Error() string { return e.msg }

func (e *libraryError) Unwrap() error { return e.cause }

func userError(format string, args ...any) *libraryError {
	return &libraryError{category: categoryUserInput, msg: fmt.Sprintf(format, args...)}
}

func systemError(cause error, format string, args ...any) *libraryError {
	return &libraryError{category: categorySystem, msg: fmt.Sprintf(format, args...), cause: cause}
}

// reportUserError prints a "thread library error: <msg>" line to stderr
// and returns -1, the contract every user-input failure must follow.
func reportUserError(err *libraryError) int {
	fmt.Fprintf(os.Stderr, "thread library error: %s\n", err.msg)
	return -1
}

// reportSystemError prints a "system error: <msg>" line and terminates
// the process with exit code 1.
func reportSystemError(err *libraryError) {
	fmt.Fprintf(os.Stderr, "system error: %s\n", err.msg)
	osExit(1)
}

// osExit is a var so tests can intercept a fatal system error without
// tearing down the test binary.
var osExit = os.Exit
