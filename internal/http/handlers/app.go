// Package handlers implements the HTTP surface of the generation proxy:
// job submission, task polling, character creation relays and the chat
// relay.
package handlers

import (
	"encoding/json"
	"net/http"

	"sorahub/internal/infra"
	"sorahub/internal/job"
	"sorahub/internal/sora"
	"sorahub/internal/storage"
	"sorahub/internal/store"
	"sorahub/internal/tasks"
)

type App struct {
	Cfg     *infra.Config
	Log     infra.Logger
	Sora    *sora.Client
	Jobs    store.JobStore
	Uploads *storage.UploadStore

	VideoJobs *tasks.Manager
	ImageJobs *tasks.Manager

	// ChatClient performs the chat relay; defaults to http.DefaultClient.
	ChatClient *http.Client
}

func NewApp(cfg *infra.Config, log infra.Logger, client *sora.Client, jobs store.JobStore, uploads *storage.UploadStore) *App {
	return &App{
		Cfg:        cfg,
		Log:        log,
		Sora:       client,
		Jobs:       jobs,
		Uploads:    uploads,
		VideoJobs:  tasks.NewManager(jobs, job.KindVideo, log),
		ImageJobs:  tasks.NewManager(jobs, job.KindImage, log),
		ChatClient: http.DefaultClient,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, tag, detail string) {
	a.json(w, code, map[string]string{"error": tag, "detail": detail})
}

// composePrompt prepends the configured system prompt for the job kind.
func (a *App) composePrompt(kind job.Kind, prompt string) string {
	if !a.Cfg.SystemPromptEnabled {
		return prompt
	}
	system := a.Cfg.VideoSystemPrompt
	if kind == job.KindImage {
		system = a.Cfg.ImageSystemPrompt
	}
	if system == "" {
		return prompt
	}
	return system + "\n\nUser prompt:\n" + prompt
}
