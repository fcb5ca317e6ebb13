package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"sorahub/internal/http/handlers"
	"sorahub/internal/middleware"
)

// NewRouter wires the proxy API. Submission endpoints are rate limited
// when a limit is configured; everything else is open.
func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Log),
	)
	if len(app.Cfg.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(app.Cfg.AllowedOrigins))
	}

	r.Get("/api/healthz", app.Health)
	r.Get("/api/tasks/{task_id}", app.TaskStatus)
	r.Post("/api/chat", app.ChatRelay)

	r.Group(func(r chi.Router) {
		if app.Cfg.SubmitRateLimit > 0 {
			r.Use(middleware.RateLimit(app.Cfg.SubmitRateLimit, time.Minute))
		}
		r.Post("/api/video/sora", app.VideoGenerate)
		r.Post("/api/video/sora-character", app.CharacterUpload)
		r.Post("/api/video/sora-character-from-pid", app.CharacterFromPID)
		r.Post("/api/image/nano-banana", app.ImageGenerate)
	})

	// Stored uploads are served back for preview during review.
	uploads := http.StripPrefix("/uploads/", http.FileServer(http.Dir(app.Uploads.BasePath())))
	r.Handle("/uploads/*", uploads)

	return r
}
