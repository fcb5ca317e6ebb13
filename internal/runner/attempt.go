package runner

import (
	"context"

	"sorahub/internal/job"
)

// Attempt owns the single cancellation token for one submitted job. The
// token is created at submission, aborts the attempt's in-flight network
// operation and pending poll timer when cancelled, and is released when the
// job completes or its owner is torn down.
type Attempt struct {
	machine *job.Machine
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewAttempt derives the attempt's context from the caller's.
func NewAttempt(parent context.Context, m *job.Machine) *Attempt {
	ctx, cancel := context.WithCancel(parent)
	return &Attempt{machine: m, ctx: ctx, cancel: cancel}
}

// Context carries the cancellation signal into every network primitive the
// attempt issues.
func (a *Attempt) Context() context.Context {
	return a.ctx
}

// Cancel aborts the in-flight request or chunked read, stops a pending poll
// timer, and forces the running job back to idle with the cancellation
// notice. It is safe at any point in the lifecycle: before submission
// completes, repeatedly, or after a terminal state (a no-op then, since the
// machine discards transitions out of terminal states).
func (a *Attempt) Cancel() {
	a.cancel()
	a.machine.Cancel()
}

// Release discards the token after natural completion without touching the
// job state. Always call it on the exit path so the derived context is not
// leaked.
func (a *Attempt) Release() {
	a.cancel()
}
