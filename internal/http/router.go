package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/obiente/translate/scribe/internal/pipeline"
)

const maxBodySize = 1 << 20

// Processor runs a job synchronously.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) pipeline.Result
}

// NewRouter serves the synchronous transcription endpoint and mounts jobs,
// the WebSocket handler, at /ws/jobs.
func NewRouter(proc Processor, jobs http.HandlerFunc) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	mux.HandleFunc("POST /v1/transcribe", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "failed to read body"})
			return
		}
		req, err := pipeline.ParseRequest(body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, proc.Process(r.Context(), req))
	})
	// Job progress WebSocket
	mux.HandleFunc("GET /ws/jobs", jobs)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("http: failed to write response")
	}
}
