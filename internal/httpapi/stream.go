package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"dcpr.org/internal/stream"
)

// Stream serves the live activity feed over Server-Sent Events. Each
// committed management activity becomes one named "activity" event whose id
// is the activity id, so clients can resume with Last-Event-ID semantics
// against the activity trail.
func (a *API) Stream(w http.ResponseWriter, r *http.Request) {
	if a.stream == nil {
		http.Error(w, "activity feed disabled", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch := a.stream.Subscribe(ctx)

	// Opening comment confirms the feed before any activity occurs.
	_, _ = io.WriteString(w, ": dcpr activity feed connected\n\n")
	flusher.Flush()

	for event := range ch {
		if err := writeActivityEvent(w, event); err != nil {
			return
		}
		flusher.Flush()
	}
}

func writeActivityEvent(w io.Writer, evt stream.ActivityEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: activity\ndata: %s\n\n", evt.ActivityID, payload)
	return err
}
