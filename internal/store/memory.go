package store

import (
	"context"
	"fmt"
	"sync"
)

// Memory is the in-process JobStore used when no database is configured and
// in tests. Records are copied on the way in and out; callers never observe
// shared mutable state.
type Memory struct {
	mu   sync.RWMutex
	jobs map[string]Record
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{jobs: make(map[string]Record)}
}

func (s *Memory) Insert(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[rec.RequestID]; exists {
		return fmt.Errorf("store: duplicate request id %s", rec.RequestID)
	}
	s.jobs[rec.RequestID] = copyRecord(rec)
	return nil
}

func (s *Memory) Update(ctx context.Context, requestID string, upd Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[requestID]
	if !ok {
		return ErrNotFound
	}
	applyUpdate(&rec, upd)
	s.jobs[requestID] = rec
	return nil
}

func (s *Memory) Fetch(ctx context.Context, requestID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.jobs[requestID]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyRecord(rec)
	return &out, nil
}

func copyRecord(rec Record) Record {
	out := rec
	if rec.Params != nil {
		out.Params = make(map[string]any, len(rec.Params))
		for k, v := range rec.Params {
			out.Params[k] = v
		}
	}
	return out
}

func applyUpdate(rec *Record, upd Update) {
	if upd.Status != nil {
		rec.Status = *upd.Status
	}
	if upd.Progress != nil {
		rec.Progress = *upd.Progress
	}
	if upd.ResultURL != nil {
		rec.ResultURL = *upd.ResultURL
	}
	if upd.ResultContent != nil {
		rec.ResultContent = *upd.ResultContent
	}
	if upd.PID != nil {
		rec.PID = *upd.PID
	}
	if upd.FailureReason != nil {
		rec.FailureReason = *upd.FailureReason
	}
	if upd.ErrorDetail != nil {
		rec.ErrorDetail = *upd.ErrorDetail
	}
}

var _ JobStore = (*Memory)(nil)
