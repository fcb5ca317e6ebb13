package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"sorahub/internal/job"
)

// ErrNotFound is returned when no job exists for a request id.
var ErrNotFound = errors.New("store: job not found")

// Record is one persisted generation job, keyed by the request id handed to
// the submitting client.
type Record struct {
	RequestID string
	Kind      job.Kind
	CreatedAt time.Time
	Prompt    string
	// Params holds the kind-specific submission parameters (mode, aspect
	// ratio, duration, model, ...) as they were accepted.
	Params map[string]any

	Status        string
	Progress      int
	ResultURL     string
	ResultContent string
	PID           string
	FailureReason string
	ErrorDetail   string
}

// Update carries a partial mutation; nil fields are left untouched.
type Update struct {
	Status        *string
	Progress      *int
	ResultURL     *string
	ResultContent *string
	PID           *string
	FailureReason *string
	ErrorDetail   *string
}

// JobStore persists generation jobs so the polling endpoint can answer
// after the submitting request has returned.
type JobStore interface {
	Insert(ctx context.Context, rec Record) error
	Update(ctx context.Context, requestID string, upd Update) error
	Fetch(ctx context.Context, requestID string) (*Record, error)
}

// String returns a pointer for optional update fields.
func String(v string) *string { return &v }

// Int returns a pointer for optional update fields.
func Int(v int) *int { return &v }

func marshalParams(params map[string]any) ([]byte, error) {
	if params == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(params)
}
