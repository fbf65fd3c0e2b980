package uthreads

import (
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// tracer wraps the scheduler's optional zerolog sink. It defaults to a
// logger writing to io.Discard so the hot dispatch/preempt path costs
// nothing when nobody has opted in - zerolog's disabled-level path does
// not allocate, which matters on the preemption checkpoint path where no
// heap allocation should be forced onto a thread that never asked for
// tracing.
type tracer struct {
	mu  sync.RWMutex
	log zerolog.Logger
}

func newTracer() *tracer {
	return &tracer{log: zerolog.New(io.Discard)}
}

func (t *tracer) setWriter(w io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.log = zerolog.New(w).With().Timestamp().Logger()
}

func (t *tracer) event(kind string, globalQuantum uint64, tid int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	t.log.Info().
		Str("event", kind).
		Uint64("quantum", globalQuantum).
		Int("tid", tid).
		Msg(kind)
}
