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

// ImageGenerate accepts a nano-banana image submission with optional
// reference images and answers with the request id.
func (a *App) ImageGenerate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
		return
	}

	prompt := strings.TrimSpace(r.FormValue("prompt"))
	if prompt == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}
	model := normalizeImageModel(r.FormValue("model"))
	aspectRatio := normalizeImageAspectRatio(formText(r, "aspectRatio", "aspect_ratio"))
	imageSize := normalizeImageSize(formText(r, "imageSize", "image_size"))

	var urls []string
	for _, fh := range formFiles(r.MultipartForm, "images") {
		if !contentTypeIs(fh, "image/") {
			a.error(w, http.StatusBadRequest, "bad_request", "only image uploads are supported")
			return
		}
		_, data, err := a.saveUpload(r.Context(), fh)
		if err != nil {
			a.Log.Error().Err(err).Msg("saving image upload failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to save uploaded file")
			return
		}
		urls = append(urls, base64.StdEncoding.EncodeToString(data))
	}

	requestID := uuid.NewString()
	params := map[string]any{
		"prompt":       prompt,
		"model":        model,
		"aspect_ratio": aspectRatio,
		"image_size":   imageSize,
		"image_count":  len(urls),
	}
	if err := a.ImageJobs.Create(r.Context(), requestID, prompt, params); err != nil {
		a.Log.Error().Err(err).Msg("creating image job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to record job")
		return
	}

	payload := sora.ImageRequest{
		Model:       model,
		Prompt:      a.composePrompt(job.KindImage, prompt),
		AspectRatio: aspectRatio,
		ImageSize:   imageSize,
		URLs:        urls,
	}
	go a.ImageJobs.Run(context.Background(), requestID, func(ctx context.Context) (io.ReadCloser, error) {
		return a.Sora.GenerateImage(ctx, payload)
	})

	a.json(w, http.StatusOK, map[string]string{"request_id": requestID})
}
