package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
)

type chatRequest struct {
	Prompt           string `json:"prompt"`
	ConversationID   string `json:"conversation_id"`
	ConversationIDCC string `json:"conversationId"`
	Trace            bool   `json:"trace"`
	StreamDelta      bool   `json:"stream_delta"`
}

// ChatRelay forwards a chat prompt to the configured chat backend and
// relays its NDJSON event stream.
func (a *App) ChatRelay(w http.ResponseWriter, r *http.Request) {
	if a.Cfg.ChatUpstreamURL == "" {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "chat backend is not configured")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}
	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = req.ConversationIDCC
	}
	if conversationID == "" {
		conversationID = "default"
	}

	payload, _ := json.Marshal(map[string]any{
		"prompt":          req.Prompt,
		"conversation_id": conversationID,
		"trace":           req.Trace,
		"stream_delta":    req.StreamDelta,
	})
	upstream, err := http.NewRequestWithContext(r.Context(), http.MethodPost, a.Cfg.ChatUpstreamURL, bytes.NewReader(payload))
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to build upstream request")
		return
	}
	upstream.Header.Set("Content-Type", "application/json")

	resp, err := a.ChatClient.Do(upstream)
	if err != nil {
		a.upstreamError(w, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		a.Log.Warn().Int("status", resp.StatusCode).Msg("chat backend error")
		a.error(w, http.StatusBadGateway, "upstream_error", "chat backend rejected the request")
		return
	}
	a.relayNDJSON(w, resp.Body)
}
