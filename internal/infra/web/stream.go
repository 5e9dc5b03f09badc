package web

import (
	"encoding/json"
	"net/http"

	"saas-ai-orchestrator/internal/infra/logging"
	"saas-ai-orchestrator/internal/usecase"
)

// streamHandler serves the streaming path as Server-Sent Events. Resolution
// failures surface as a normal error response before any event is written;
// once streaming begins, failures arrive as a terminal error event instead.
func (s *Server) streamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body", Code: "validation_error"})
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "streaming unsupported", Code: "internal"})
			return
		}

		events, err := s.orchestrator.ProcessStreaming(ctx, req.toUseCase(logging.TenantID(ctx), logging.UserID(ctx)))
		if err != nil {
			writeError(w, logging.With(ctx, s.log), err)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		enc := json.NewEncoder(&sseWriter{w: w})
		for evt := range events {
			if err := enc.Encode(evt); err != nil {
				return
			}
			flusher.Flush()
			if evt.Type == usecase.StreamComplete || evt.Type == usecase.StreamError {
				return
			}
		}
	}
}

// sseWriter frames each encoded JSON value as one SSE data event. The
// encoder's trailing newline supplies the first of the two required
// terminators.
type sseWriter struct {
	w http.ResponseWriter
}

func (s *sseWriter) Write(p []byte) (int, error) {
	if _, err := s.w.Write([]byte("data: ")); err != nil {
		return 0, err
	}
	if _, err := s.w.Write(p); err != nil {
		return 0, err
	}
	if _, err := s.w.Write([]byte("\n")); err != nil {
		return 0, err
	}
	return len(p), nil
}
