package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sorahub/internal/job"
	"sorahub/internal/store"
)

type taskResult struct {
	URL     string `json:"url"`
	PID     string `json:"pid,omitempty"`
	Content string `json:"content,omitempty"`
}

type taskResponse struct {
	ID            string     `json:"id"`
	Type          string     `json:"type"`
	Status        string     `json:"status"`
	Progress      int        `json:"progress"`
	Result        taskResult `json:"result"`
	FailureReason string     `json:"failure_reason"`
	Error         string     `json:"error"`
}

// TaskStatus reports the current state of a submitted job. Clients poll it
// when they cannot hold the stream open.
func (a *App) TaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	if taskID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "task_id required")
		return
	}

	rec, err := a.Jobs.Fetch(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "task not found")
			return
		}
		a.Log.Error().Err(err).Str("task_id", taskID).Msg("task lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load task")
		return
	}

	resp := taskResponse{
		ID:            rec.RequestID,
		Type:          string(rec.Kind),
		Status:        rec.Status,
		Progress:      rec.Progress,
		FailureReason: rec.FailureReason,
		Error:         rec.ErrorDetail,
	}
	resp.Result.URL = rec.ResultURL
	switch rec.Kind {
	case job.KindVideo:
		resp.Result.PID = rec.PID
	case job.KindImage:
		resp.Result.Content = rec.ResultContent
	}
	a.json(w, http.StatusOK, resp)
}
