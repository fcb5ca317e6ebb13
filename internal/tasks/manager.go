// Package tasks runs submitted generation jobs in the background and keeps
// their persisted records current while the upstream stream progresses.
package tasks

import (
	"context"
	"fmt"
	"io"
	"time"

	"sorahub/internal/infra"
	"sorahub/internal/job"
	"sorahub/internal/store"
	"sorahub/internal/stream"
)

// StatusSubmitted is recorded when a job is accepted, before its upstream
// stream is opened.
const StatusSubmitted = "submitted"

// OpenStream starts the upstream generation call and returns its NDJSON
// body. It is invoked once per Run.
type OpenStream func(ctx context.Context) (io.ReadCloser, error)

// Manager creates job records and drives them to a terminal status by
// consuming the upstream stream. One manager serves one job kind because
// the persisted result fields differ between video and image jobs.
type Manager struct {
	store store.JobStore
	kind  job.Kind
	log   infra.Logger
}

// NewManager builds a manager persisting into st for jobs of the given kind.
func NewManager(st store.JobStore, kind job.Kind, log infra.Logger) *Manager {
	return &Manager{store: st, kind: kind, log: log}
}

// Create records a freshly accepted job as submitted with zero progress.
func (m *Manager) Create(ctx context.Context, requestID, prompt string, params map[string]any) error {
	rec := store.Record{
		RequestID: requestID,
		Kind:      m.kind,
		CreatedAt: time.Now().UTC(),
		Prompt:    prompt,
		Params:    params,
		Status:    StatusSubmitted,
		Progress:  0,
	}
	if err := m.store.Insert(ctx, rec); err != nil {
		return fmt.Errorf("tasks: create job: %w", err)
	}
	return nil
}

// Run opens the upstream stream and applies each decoded event to the job
// record until the stream ends. Transport and upstream errors mark the job
// failed; they are not returned because Run executes detached from the
// submitting request.
func (m *Manager) Run(ctx context.Context, requestID string, open OpenStream) {
	m.update(ctx, requestID, store.Update{Status: store.String(string(job.StateRunning))})

	body, err := open(ctx)
	if err != nil {
		m.log.Warn().Err(err).Str("request_id", requestID).Msg("upstream call failed")
		m.update(ctx, requestID, store.Update{
			Status:      store.String(string(job.StateFailed)),
			ErrorDetail: store.String(err.Error()),
		})
		return
	}
	defer body.Close()

	if err := m.consume(ctx, requestID, body); err != nil {
		m.log.Warn().Err(err).Str("request_id", requestID).Msg("job stream failed")
		m.update(ctx, requestID, store.Update{
			Status:      store.String(string(job.StateFailed)),
			ErrorDetail: store.String(err.Error()),
		})
		return
	}
	m.completeIfNeeded(ctx, requestID)
}

func (m *Manager) consume(ctx context.Context, requestID string, body io.Reader) error {
	var dec stream.Decoder
	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := body.Read(buf)
		if n > 0 {
			for _, line := range dec.Feed(buf[:n]) {
				m.applyLine(ctx, requestID, line)
			}
		}
		if err == io.EOF {
			if line, ok := dec.Flush(); ok {
				m.applyLine(ctx, requestID, line)
			}
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (m *Manager) applyLine(ctx context.Context, requestID, line string) {
	ev, ok := stream.ParseLine(line)
	if !ok {
		m.log.Debug().Str("request_id", requestID).Msg("dropping undecodable stream line")
		return
	}
	upd := m.eventUpdate(ev)
	if upd == (store.Update{}) {
		return
	}
	m.update(ctx, requestID, upd)
}

// eventUpdate maps one stream event onto the persisted columns. Video jobs
// keep the permanent id alongside the result url; image jobs keep inline
// content instead.
func (m *Manager) eventUpdate(ev stream.Event) store.Update {
	var upd store.Update
	if ev.Status != "" {
		upd.Status = store.String(ev.Status)
	}
	if ev.Progress >= 0 {
		upd.Progress = store.Int(ev.Progress)
	}
	if ev.FailureReason != "" {
		upd.FailureReason = store.String(ev.FailureReason)
	}
	if ev.ErrorDetail != "" {
		upd.ErrorDetail = store.String(ev.ErrorDetail)
	}
	if ev.Result.URL != "" {
		upd.ResultURL = store.String(ev.Result.URL)
	}
	switch m.kind {
	case job.KindVideo:
		if ev.Result.PID != "" {
			upd.PID = store.String(ev.Result.PID)
		}
	case job.KindImage:
		if ev.Result.Content != "" {
			upd.ResultContent = store.String(ev.Result.Content)
		}
	}
	return upd
}

// completeIfNeeded promotes a job whose stream ended with a result url but
// no terminal status.
func (m *Manager) completeIfNeeded(ctx context.Context, requestID string) {
	rec, err := m.store.Fetch(ctx, requestID)
	if err != nil {
		m.log.Warn().Err(err).Str("request_id", requestID).Msg("fetch after stream end failed")
		return
	}
	if rec.ResultURL == "" {
		return
	}
	if rec.Status == string(job.StateSucceeded) || rec.Status == string(job.StateFailed) {
		return
	}
	m.update(ctx, requestID, store.Update{Status: store.String(string(job.StateSucceeded))})
}

func (m *Manager) update(ctx context.Context, requestID string, upd store.Update) {
	if err := m.store.Update(ctx, requestID, upd); err != nil {
		m.log.Warn().Err(err).Str("request_id", requestID).Msg("job update failed")
	}
}
