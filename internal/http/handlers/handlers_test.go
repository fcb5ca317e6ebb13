package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"sorahub/internal/infra"
	"sorahub/internal/job"
	"sorahub/internal/sora"
	"sorahub/internal/storage"
	"sorahub/internal/store"
)

func newTestApp(t *testing.T, upstream string) (*App, *store.Memory) {
	t.Helper()
	client, err := sora.NewClient(sora.Options{APIKey: "test-key", BaseURL: upstream})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	cfg := &infra.Config{UploadDir: t.TempDir()}
	uploads, err := storage.NewUploadStore(cfg.UploadDir)
	if err != nil {
		t.Fatalf("NewUploadStore returned error: %v", err)
	}
	jobs := store.NewMemory()
	app := NewApp(cfg, zerolog.New(io.Discard), client, jobs, uploads)
	return app, jobs
}

func multipartBody(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			t.Fatalf("WriteField returned error: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func waitForStatus(t *testing.T, jobs *store.Memory, id string, want string) *store.Record {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := jobs.Fetch(context.Background(), id)
		if err == nil && rec.Status == want {
			return rec
		}
		time.Sleep(10 * time.Millisecond)
	}
	rec, _ := jobs.Fetch(context.Background(), id)
	t.Fatalf("job never reached %q, record = %#v", want, rec)
	return nil
}

func decodeRequestID(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		RequestID string `json:"request_id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.RequestID == "" {
		t.Fatalf("empty request id in %s", rr.Body.String())
	}
	return resp.RequestID
}

func TestVideoGenerateRequiresPrompt(t *testing.T) {
	app, _ := newTestApp(t, "http://unused")
	body, contentType := multipartBody(t, map[string]string{"aspectRatio": "16:9"})
	req := httptest.NewRequest(http.MethodPost, "/api/video/sora", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	app.VideoGenerate(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestVideoGenerateRunsJobToCompletion(t *testing.T) {
	var gotPayload sora.VideoRequest
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/video/sora-video" {
			t.Errorf("upstream path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decoding upstream payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		io.WriteString(w, `{"id":"job-1","status":"running","progress":40}`+"\n")
		io.WriteString(w, `{"status":"succeeded","progress":100,"results":[{"url":"https://cdn/v.mp4","pid":"pid-1"}]}`+"\n")
	}))
	defer upstream.Close()

	app, jobs := newTestApp(t, upstream.URL)
	body, contentType := multipartBody(t, map[string]string{
		"prompt":      "a drone shot over a fjord",
		"aspectRatio": "4:3",
		"duration":    "12",
		"size":        "large",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/video/sora", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	app.VideoGenerate(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	requestID := decodeRequestID(t, rr)

	rec := waitForStatus(t, jobs, requestID, "succeeded")
	if rec.ResultURL != "https://cdn/v.mp4" || rec.PID != "pid-1" {
		t.Fatalf("result url=%q pid=%q", rec.ResultURL, rec.PID)
	}
	// Out-of-range values are coerced, not rejected.
	if rec.Params["aspect_ratio"] != "9:16" || rec.Params["duration"] != 15 || rec.Params["size"] != "large" {
		t.Fatalf("params = %#v", rec.Params)
	}
	if gotPayload.Model != "sora-2" || gotPayload.AspectRatio != "9:16" || gotPayload.Duration != 15 {
		t.Fatalf("upstream payload = %#v", gotPayload)
	}
}

func TestImageGenerateRunsJobToCompletion(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/draw/nano-banana" {
			t.Errorf("upstream path = %q", r.URL.Path)
		}
		io.WriteString(w, `{"status":"succeeded","progress":100,"results":[{"url":"https://cdn/i.png","result_content":"inline"}]}`+"\n")
	}))
	defer upstream.Close()

	app, jobs := newTestApp(t, upstream.URL)
	body, contentType := multipartBody(t, map[string]string{"prompt": "a red fox"})
	req := httptest.NewRequest(http.MethodPost, "/api/image/nano-banana", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	app.ImageGenerate(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	requestID := decodeRequestID(t, rr)

	rec := waitForStatus(t, jobs, requestID, "succeeded")
	if rec.ResultURL != "https://cdn/i.png" || rec.ResultContent != "inline" {
		t.Fatalf("result url=%q content=%q", rec.ResultURL, rec.ResultContent)
	}
}

func taskRequest(id string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+id, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("task_id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestTaskStatusVideoShape(t *testing.T) {
	app, jobs := newTestApp(t, "http://unused")
	jobs.Insert(context.Background(), store.Record{
		RequestID: "req-1",
		Kind:      job.KindVideo,
		Status:    "running",
		Progress:  40,
		PID:       "pid-9",
	})

	rr := httptest.NewRecorder()
	app.TaskStatus(rr, taskRequest("req-1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp taskResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Type != "video" || resp.Status != "running" || resp.Progress != 40 {
		t.Fatalf("response = %#v", resp)
	}
	if resp.Result.PID != "pid-9" || resp.Result.Content != "" {
		t.Fatalf("result = %#v", resp.Result)
	}
}

func TestTaskStatusImageShape(t *testing.T) {
	app, jobs := newTestApp(t, "http://unused")
	jobs.Insert(context.Background(), store.Record{
		RequestID:     "req-2",
		Kind:          job.KindImage,
		Status:        "succeeded",
		Progress:      100,
		ResultURL:     "https://cdn/i.png",
		ResultContent: "inline",
	})

	rr := httptest.NewRecorder()
	app.TaskStatus(rr, taskRequest("req-2"))
	var resp taskResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Type != "image" || resp.Result.Content != "inline" || resp.Result.PID != "" {
		t.Fatalf("response = %#v", resp)
	}
}

func TestTaskStatusNotFound(t *testing.T) {
	app, _ := newTestApp(t, "http://unused")
	rr := httptest.NewRecorder()
	app.TaskStatus(rr, taskRequest("missing"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestCharacterFromPIDRelaysStream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/video/sora-create-character" {
			t.Errorf("upstream path = %q", r.URL.Path)
		}
		var payload sora.CharacterFromPIDRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decoding upstream payload: %v", err)
		}
		if payload.PID != "pid-1" || payload.Timestamps != "0.00,2.50" {
			t.Errorf("payload = %#v", payload)
		}
		io.WriteString(w, `{"status":"running","progress":50}`+"\n")
		io.WriteString(w, "\n")
		io.WriteString(w, `{"status":"succeeded","results":[{"character_id":"char-1"}]}`+"\n")
	}))
	defer upstream.Close()

	app, _ := newTestApp(t, upstream.URL)
	form := strings.NewReader("pid=pid-1&timestamps=0,2.5")
	req := httptest.NewRequest(http.MethodPost, "/api/video/sora-character-from-pid", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()

	app.CharacterFromPID(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Content-Type"); got != "application/x-ndjson" {
		t.Fatalf("content type = %q", got)
	}
	want := `{"status":"running","progress":50}` + "\n" +
		`{"status":"succeeded","results":[{"character_id":"char-1"}]}` + "\n"
	if rr.Body.String() != want {
		t.Fatalf("relayed body = %q", rr.Body.String())
	}
}

func TestCharacterFromPIDRejectsBadTimestamps(t *testing.T) {
	app, _ := newTestApp(t, "http://unused")
	form := strings.NewReader("pid=pid-1&timestamps=0,9")
	req := httptest.NewRequest(http.MethodPost, "/api/video/sora-character-from-pid", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()

	app.CharacterFromPID(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestChatRelayForwardsPrompt(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decoding relay payload: %v", err)
		}
		if payload["prompt"] != "hello" || payload["conversation_id"] != "default" {
			t.Errorf("payload = %#v", payload)
		}
		io.WriteString(w, `{"type":"final","status":"completed","answer":"hi"}`+"\n")
	}))
	defer upstream.Close()

	app, _ := newTestApp(t, "http://unused")
	app.Cfg.ChatUpstreamURL = upstream.URL

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"prompt":"hello"}`))
	rr := httptest.NewRecorder()
	app.ChatRelay(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"answer":"hi"`) {
		t.Fatalf("relayed body = %q", rr.Body.String())
	}
}

func TestChatRelayUnconfigured(t *testing.T) {
	app, _ := newTestApp(t, "http://unused")
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"prompt":"hello"}`))
	rr := httptest.NewRecorder()
	app.ChatRelay(rr, req)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
}
