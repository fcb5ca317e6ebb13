package sora

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sorahub/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("sora: api key is required")

// Options configures the upstream Sora generation client.
type Options struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the upstream Sora generation API. Generation
// endpoints answer with a chunked NDJSON body that the caller consumes
// through the stream decoder.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// VideoRequest is the payload for text- or image-conditioned video generation.
type VideoRequest struct {
	Model         string `json:"model"`
	Prompt        string `json:"prompt"`
	AspectRatio   string `json:"aspectRatio"`
	Duration      int    `json:"duration"`
	Size          string `json:"size"`
	URL           string `json:"url,omitempty"`
	RemixTargetID string `json:"remixTargetId,omitempty"`
}

// ImageRequest is the payload for image generation.
type ImageRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	AspectRatio string   `json:"aspectRatio"`
	ImageSize   string   `json:"imageSize"`
	URLs        []string `json:"urls,omitempty"`
}

// CharacterUploadRequest creates a character from an uploaded video clip.
type CharacterUploadRequest struct {
	URL        string `json:"url"`
	Timestamps string `json:"timestamps"`
}

// CharacterFromPIDRequest creates a character from a previous generation.
type CharacterFromPIDRequest struct {
	PID        string `json:"pid"`
	Timestamps string `json:"timestamps"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			// Generation streams stay open for minutes.
			timeout = 5 * time.Minute
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://grsai.dakka.com.cn"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// GenerateVideo starts a video generation and returns its NDJSON event stream.
func (c *Client) GenerateVideo(ctx context.Context, req VideoRequest) (io.ReadCloser, error) {
	return c.stream(ctx, "/v1/video/sora-video", req)
}

// GenerateImage starts an image generation and returns its NDJSON event stream.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (io.ReadCloser, error) {
	return c.stream(ctx, "/v1/draw/nano-banana", req)
}

// UploadCharacter creates a character from an uploaded clip, streaming updates.
func (c *Client) UploadCharacter(ctx context.Context, req CharacterUploadRequest) (io.ReadCloser, error) {
	return c.stream(ctx, "/v1/video/sora-upload-character", req)
}

// CreateCharacter creates a character from a prior generation id, streaming updates.
func (c *Client) CreateCharacter(ctx context.Context, req CharacterFromPIDRequest) (io.ReadCloser, error) {
	return c.stream(ctx, "/v1/video/sora-create-character", req)
}

// stream POSTs a JSON payload and hands back the chunked response body. A
// non-success status consumes the body and surfaces its detail as an error.
func (c *Client) stream(ctx context.Context, path string, payload any) (io.ReadCloser, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("sora: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sora: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sora: http request: %w", err)
	}
	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		c.logger.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("sora: upstream rejected request")
		return nil, fmt.Errorf("sora: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return resp.Body, nil
}
