package sse

import (
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
)

// Handler serves the SSE stream endpoint.
type Handler struct {
	manager *Manager
	logger  *slog.Logger
}

// NewHandler creates an SSE HTTP handler.
func NewHandler(manager *Manager, logger *slog.Logger) *Handler {
	return &Handler{manager: manager, logger: logger}
}

// ServeHTTP streams events until the client disconnects. The optional
// "book" query parameter limits the stream to one book's events.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	client, err := h.manager.Subscribe(r.URL.Query().Get("book"))
	if err != nil {
		http.Error(w, "failed to subscribe", http.StatusInternalServerError)
		return
	}
	defer h.manager.Unsubscribe(client.ID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case event := <-client.EventChan:
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("failed to encode SSE event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()

		case <-client.Done:
			return

		case <-r.Context().Done():
			return
		}
	}
}
