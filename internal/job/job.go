package job

import "sorahub/internal/stream"

// Kind identifies the generation surface a job belongs to.
type Kind string

const (
	KindChat      Kind = "chat"
	KindImage     Kind = "image"
	KindVideo     Kind = "video"
	KindCharacter Kind = "character"
)

// State is the lifecycle position of one generation attempt.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Terminal reports whether no further events may mutate the job.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Snapshot is an observable copy of one job's state. The machine hands out
// copies only; callers never share its mutable fields.
type Snapshot struct {
	ID       string
	Kind     Kind
	State    State
	Progress int
	// Answer carries the chat reply, complete once succeeded and partial
	// (delta accumulation so far) while running.
	Answer string
	Result stream.Result
	// Trace retains transcript events for an optional trace panel.
	Trace []string

	ErrorCategory Category
	ErrorMessage  string
	ErrorDetail   string
	// Note carries the informational cancellation message. It is not an
	// error and never populates the error fields.
	Note string
}
