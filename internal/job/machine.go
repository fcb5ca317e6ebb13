package job

import (
	"errors"
	"strings"
	"sync"

	"sorahub/internal/stream"
)

// ErrJobRunning is returned when a reset or a second submission is requested
// while an attempt is still in flight.
var ErrJobRunning = errors.New("job is running")

// Machine is the authoritative lifecycle for one submitted job. Exactly one
// transport feeds it normalized events; terminal states are sticky until an
// explicit reset.
type Machine struct {
	mu      sync.Mutex
	notices Notices
	snap    Snapshot
	answer  strings.Builder
}

// NewMachine creates an idle machine for one generation surface. The locale
// selects the catalog used for user-facing failure notices.
func NewMachine(kind Kind, locale string) *Machine {
	return &Machine{
		notices: NoticesFor(locale),
		snap:    Snapshot{Kind: kind, State: StateIdle},
	}
}

// Begin records a successful submission and moves idle to running.
func (m *Machine) Begin(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snap.State != StateIdle {
		return ErrJobRunning
	}
	kind := m.snap.Kind
	m.snap = Snapshot{ID: id, Kind: kind, State: StateRunning}
	m.answer.Reset()
	return nil
}

// Apply consumes one normalized event. Events delivered outside the running
// state are discarded; transports stop forwarding once terminal, and the
// machine enforces the same rule defensively.
func (m *Machine) Apply(ev stream.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snap.State != StateRunning {
		return
	}

	switch ev.Type {
	case stream.EventAccepted:
		if m.snap.ID == "" {
			m.snap.ID = ev.AcceptedID
		}
	case stream.EventTranscript:
		m.snap.Trace = append(m.snap.Trace, ev.Transcript)
	case stream.EventDelta:
		m.answer.WriteString(ev.Delta)
	case stream.EventStatus:
		m.bumpProgress(ev.Progress)
		switch ev.Status {
		case "succeeded":
			m.succeed(ev.Result)
		case "failed":
			m.fail(m.notices.Classify(ev.FailureReason, ev.ErrorDetail))
		}
	case stream.EventResult:
		m.bumpProgress(ev.Progress)
		m.succeed(ev.Result)
	case stream.EventFailure:
		m.snap.ErrorDetail = ev.ErrorDetail
		m.fail(m.notices.Classify(ev.FailureReason, ev.ErrorDetail))
	}
}

// Fail records a transport-level failure (network error, non-success status,
// or a stream that ended without a terminal event).
func (m *Machine) Fail(cat Category, detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snap.State != StateRunning {
		return
	}
	m.snap.ErrorDetail = detail
	m.fail(cat, m.notices.Message(cat, detail))
}

// Cancel is the user-initiated stop: it forces running back to idle with an
// informational note rather than an error. Invoking it when idle or already
// terminal is a no-op, so double cancellation is safe.
func (m *Machine) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snap.State != StateRunning {
		return
	}
	kind := m.snap.Kind
	m.snap = Snapshot{
		Kind:  kind,
		State: StateIdle,
		Note:  m.notices.Message(CategoryNetworkAborted, ""),
	}
	m.answer.Reset()
}

// Reset returns a finished job to idle, clearing progress, result and error
// fields. It is rejected while the attempt is still running.
func (m *Machine) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snap.State == StateRunning {
		return ErrJobRunning
	}
	kind := m.snap.Kind
	m.snap = Snapshot{Kind: kind, State: StateIdle}
	m.answer.Reset()
	return nil
}

// Snapshot returns an observable copy of the job.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snap
	snap.Trace = append([]string(nil), m.snap.Trace...)
	if snap.Answer == "" {
		snap.Answer = m.answer.String()
	}
	return snap
}

// State reports the current lifecycle position.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.State
}

// Terminal reports whether the machine reached succeeded or failed.
func (m *Machine) Terminal() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.State.Terminal()
}

// bumpProgress applies a monotonic, clamped progress update. The parser has
// already clamped to [0,100]; -1 marks an event without progress.
func (m *Machine) bumpProgress(p int) {
	if p > m.snap.Progress {
		m.snap.Progress = p
	}
}

// succeed adopts the first success signal; duplicates are idempotent because
// the terminal check in Apply discards them.
func (m *Machine) succeed(res stream.Result) {
	answer := res.Answer
	if res.Streamed || answer == "" {
		// The answer was already delivered incrementally; keep the
		// accumulated text instead of re-emitting it.
		if acc := m.answer.String(); acc != "" {
			answer = acc
		}
	}
	m.snap.State = StateSucceeded
	m.snap.Answer = answer
	m.snap.Result = res
	m.snap.Result.Answer = answer
}

func (m *Machine) fail(cat Category, message string) {
	m.snap.State = StateFailed
	m.snap.ErrorCategory = cat
	m.snap.ErrorMessage = message
}
