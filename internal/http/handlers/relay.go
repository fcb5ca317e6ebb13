package handlers

import (
	"io"
	"net/http"

	"sorahub/internal/stream"
)

// relayNDJSON copies an upstream NDJSON body to the client line by line,
// flushing after each record so progress reaches the browser while the
// generation is still running. Heartbeats and SSE framing are stripped on
// the way through.
func (a *App) relayNDJSON(w http.ResponseWriter, body io.Reader) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	writeLine := func(line string) {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	var dec stream.Decoder
	buf := make([]byte, 4096)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			for _, line := range dec.Feed(buf[:n]) {
				writeLine(line)
			}
		}
		if err != nil {
			if err == io.EOF {
				if line, ok := dec.Flush(); ok {
					writeLine(line)
				}
			} else {
				a.Log.Warn().Err(err).Msg("relay interrupted")
			}
			return
		}
	}
}
