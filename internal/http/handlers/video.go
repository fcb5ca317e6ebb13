package handlers

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"sorahub/internal/job"
	"sorahub/internal/sora"
)

const maxUploadBytes = 64 << 20

// VideoGenerate accepts a sora video submission, records the job and
// answers immediately with the request id while the stream is consumed in
// the background.
func (a *App) VideoGenerate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
		return
	}

	prompt := strings.TrimSpace(r.FormValue("prompt"))
	if prompt == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}

	mode := "text"
	if strings.EqualFold(strings.TrimSpace(r.FormValue("mode")), "image") {
		mode = "image"
	}
	aspectRatio := normalizeAspectRatio(formText(r, "aspectRatio", "aspect_ratio"))
	duration := normalizeDuration(r.FormValue("duration"))
	size := normalizeSize(r.FormValue("size"))
	remixTargetID := strings.TrimSpace(formText(r, "remixTargetId", "remix_target_id"))

	var uploadURL string
	if mode == "image" {
		imageURL := strings.TrimSpace(formText(r, "imageUrl", "image_url"))
		switch {
		case imageURL != "":
			uploadURL = imageURL
		default:
			files := formFiles(r.MultipartForm, "image")
			if len(files) == 0 {
				a.error(w, http.StatusBadRequest, "bad_request", "image is required for image mode")
				return
			}
			if !contentTypeIs(files[0], "image/") {
				a.error(w, http.StatusBadRequest, "bad_request", "only image uploads are supported")
				return
			}
			_, data, err := a.saveUpload(r.Context(), files[0])
			if err != nil {
				a.Log.Error().Err(err).Msg("saving image upload failed")
				a.error(w, http.StatusInternalServerError, "internal", "failed to save uploaded file")
				return
			}
			uploadURL = base64.StdEncoding.EncodeToString(data)
		}
	}

	requestID := uuid.NewString()
	params := map[string]any{
		"prompt":          prompt,
		"mode":            mode,
		"aspect_ratio":    aspectRatio,
		"duration":        duration,
		"size":            size,
		"remix_target_id": remixTargetID,
	}
	if err := a.VideoJobs.Create(r.Context(), requestID, prompt, params); err != nil {
		a.Log.Error().Err(err).Msg("creating video job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to record job")
		return
	}

	payload := sora.VideoRequest{
		Model:         "sora-2",
		Prompt:        a.composePrompt(job.KindVideo, prompt),
		AspectRatio:   aspectRatio,
		Duration:      duration,
		Size:          size,
		URL:           uploadURL,
		RemixTargetID: remixTargetID,
	}
	go a.VideoJobs.Run(context.Background(), requestID, func(ctx context.Context) (io.ReadCloser, error) {
		return a.Sora.GenerateVideo(ctx, payload)
	})

	a.json(w, http.StatusOK, map[string]string{"request_id": requestID})
}

// CharacterUpload extracts a character from an uploaded video clip and
// relays the upstream progress stream directly to the client.
func (a *App) CharacterUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
		return
	}

	files := formFiles(r.MultipartForm, "video")
	if len(files) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "video file is required")
		return
	}
	if !contentTypeIs(files[0], "video/") {
		a.error(w, http.StatusBadRequest, "bad_request", "only video uploads are supported")
		return
	}
	timestampsRaw := strings.TrimSpace(r.FormValue("timestamps"))
	if timestampsRaw == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "timestamps are required")
		return
	}
	timestamps, err := normalizeTimestamps(timestampsRaw)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	_, data, err := a.saveUpload(r.Context(), files[0])
	if err != nil {
		a.Log.Error().Err(err).Msg("saving video upload failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to save uploaded file")
		return
	}

	body, err := a.Sora.UploadCharacter(r.Context(), sora.CharacterUploadRequest{
		URL:        base64.StdEncoding.EncodeToString(data),
		Timestamps: timestamps,
	})
	if err != nil {
		a.upstreamError(w, err)
		return
	}
	defer body.Close()
	a.relayNDJSON(w, body)
}

// CharacterFromPID creates a character from the permanent id of a finished
// generation and relays the upstream progress stream.
func (a *App) CharacterFromPID(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid form")
		return
	}
	pid := strings.TrimSpace(r.FormValue("pid"))
	if pid == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "pid is required")
		return
	}
	timestampsRaw := strings.TrimSpace(r.FormValue("timestamps"))
	if timestampsRaw == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "timestamps are required")
		return
	}
	timestamps, err := normalizeTimestamps(timestampsRaw)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	body, err := a.Sora.CreateCharacter(r.Context(), sora.CharacterFromPIDRequest{
		PID:        pid,
		Timestamps: timestamps,
	})
	if err != nil {
		a.upstreamError(w, err)
		return
	}
	defer body.Close()
	a.relayNDJSON(w, body)
}

func (a *App) upstreamError(w http.ResponseWriter, err error) {
	a.Log.Warn().Err(err).Msg("upstream call failed")
	a.json(w, http.StatusBadGateway, map[string]string{
		"error":   "upstream_error",
		"details": err.Error(),
	})
}
