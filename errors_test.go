package uthreads

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserErrorCategory(t *testing.T) {
	err := userError("bad id %d", 42)
	assert.Equal(t, categoryUserInput, err.category)
	assert.Equal(t, "bad id 42", err.Error())
}

func TestSystemErrorWrapsCause(t *testing.T) {
	cause := errors.New("setitimer failed")
	err := systemError(cause, "failed to arm timer: %v", cause)

	assert.Equal(t, categorySystem, err.category)
	assert.ErrorIs(t, err, cause)
}

func TestReportUserErrorReturnsNegativeOne(t *testing.T) {
	got := reportUserError(userError("whatever"))
	assert.Equal(t, -1, got)
}

func TestReportSystemErrorExits(t *testing.T) {
	var exitCode int
	origExit := osExit
	osExit = func(code int) { exitCode = code }
	defer func() { osExit = origExit }()

	reportSystemError(systemError(errors.New("boom"), "boom"))
	assert.Equal(t, 1, exitCode)
}
