package stream

import (
	"encoding/json"
	"math"
	"strings"
)

// EventType discriminates the normalized vocabulary consumed by the job
// state machine. Two historical wire envelopes (the chat stream and the
// video/character job stream) are both mapped onto these variants.
type EventType string

const (
	EventAccepted   EventType = "accepted"
	EventTranscript EventType = "transcript"
	EventDelta      EventType = "delta"
	EventStatus     EventType = "status"
	EventResult     EventType = "result"
	EventFailure    EventType = "failure"
)

// Result is the kind-dependent success payload extracted from an event.
type Result struct {
	URL         string
	Content     string
	PID         string
	CharacterID string
	Answer      string
	// Streamed marks a chat answer that was already delivered through
	// deltas and must not be re-emitted.
	Streamed bool
}

func (r Result) empty() bool {
	return r == Result{}
}

// Terminal reports whether the payload alone is a success signal. A bare
// pid rides along on progress updates and does not count.
func (r Result) Terminal() bool {
	return r.URL != "" || r.Content != "" || r.CharacterID != "" || r.Answer != ""
}

// Event is one normalized, transport-agnostic unit.
type Event struct {
	Type       EventType
	AcceptedID string
	JobID      string
	Delta      string
	Transcript string
	Trace      string
	Status     string
	// Progress is -1 when the event carries no progress information.
	Progress      int
	Result        Result
	FailureReason string
	ErrorDetail   string
}

// envelope is the permissive union of every observed wire shape. Unknown
// fields are ignored so either protocol generation parses.
type envelope struct {
	Type     string          `json:"type"`
	Delta    string          `json:"delta"`
	Answer   string          `json:"answer"`
	Trace    json.RawMessage `json:"trace"`
	Streamed bool            `json:"streamed"`
	Message  string          `json:"message"`

	Code *int `json:"code"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`

	ID            string       `json:"id"`
	Progress      *float64     `json:"progress"`
	Status        string       `json:"status"`
	Results       []resultItem `json:"results"`
	FailureReason string       `json:"failure_reason"`
	Error         string       `json:"error"`

	Result *struct {
		URL     string `json:"url"`
		Content string `json:"content"`
		PID     string `json:"pid"`
	} `json:"result"`
}

type resultItem struct {
	CharacterID   string `json:"character_id"`
	ResultURL     string `json:"result_url"`
	URL           string `json:"url"`
	PID           string `json:"pid"`
	ResultContent string `json:"result_content"`
}

// ParseLine attempts one sanitized line as a structured event. Malformed or
// non-object lines report false and must be dropped without aborting the
// stream.
func ParseLine(line string) (Event, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || trimmed[0] != '{' {
		return Event{}, false
	}
	var env envelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return Event{}, false
	}
	return normalize(env)
}

func normalize(env envelope) (Event, bool) {
	switch env.Type {
	case "transcript":
		return Event{Type: EventTranscript, Transcript: env.Message}, true
	case "delta":
		return Event{Type: EventDelta, Delta: env.Delta}, true
	case "final":
		return finalEvent(env), true
	}

	// Permissive chat fallback: an untyped object carrying an answer is a
	// terminal reply.
	if env.Type == "" && env.Answer != "" && env.Code == nil && env.Status == "" && env.Progress == nil {
		return finalEvent(env), true
	}

	// Task-accepted acknowledgment envelope.
	if env.Code != nil && *env.Code == 0 && env.Data.ID != "" {
		return Event{Type: EventAccepted, AcceptedID: env.Data.ID}, true
	}

	return flatEvent(env)
}

func finalEvent(env envelope) Event {
	ev := Event{
		Type:   EventResult,
		Status: "succeeded",
		Result: Result{Answer: env.Answer, Streamed: env.Streamed},
	}
	if len(env.Trace) > 0 {
		ev.Trace = string(env.Trace)
	}
	return ev
}

// flatEvent normalizes the job-stream shape: any subset of id, progress,
// status, results, failure_reason and error on one flat object.
func flatEvent(env envelope) (Event, bool) {
	ev := Event{
		JobID:         env.ID,
		Status:        env.Status,
		Progress:      -1,
		FailureReason: env.FailureReason,
		ErrorDetail:   env.Error,
	}
	if env.Progress != nil {
		ev.Progress = clampProgress(*env.Progress)
	}
	ev.Result = extractResult(env)

	switch {
	// An extractable result always wins: a backend that already produced
	// output is not reported as failed, even on a contradictory status.
	case ev.Result.Terminal():
		ev.Type = EventResult
		ev.Status = "succeeded"
	case env.Status == "failed" || ev.FailureReason != "" || ev.ErrorDetail != "":
		ev.Type = EventFailure
		ev.Status = "failed"
	case env.Status != "" || env.Progress != nil || env.ID != "" || !ev.Result.empty():
		ev.Type = EventStatus
	default:
		return Event{}, false
	}
	return ev, true
}

func extractResult(env envelope) Result {
	var res Result
	if len(env.Results) > 0 {
		first := env.Results[0]
		res.CharacterID = strings.TrimSpace(first.CharacterID)
		res.URL = strings.TrimSpace(first.ResultURL)
		if res.URL == "" {
			res.URL = strings.TrimSpace(first.URL)
		}
		res.PID = strings.TrimSpace(first.PID)
		res.Content = strings.TrimSpace(first.ResultContent)
	}
	if env.Result != nil {
		if res.URL == "" {
			res.URL = strings.TrimSpace(env.Result.URL)
		}
		if res.Content == "" {
			res.Content = strings.TrimSpace(env.Result.Content)
		}
		if res.PID == "" {
			res.PID = strings.TrimSpace(env.Result.PID)
		}
	}
	return res
}

// clampProgress rounds and clamps a reported progress value into [0,100].
func clampProgress(v float64) int {
	p := int(math.Round(v))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
