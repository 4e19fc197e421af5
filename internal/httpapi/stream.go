package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Stream serves platform events over Server-Sent Events so indexers and
// front ends can follow mints, verifications, listings and sales live. Each
// frame carries the domain event type as the SSE event name and the ULID as
// its id, so clients can resubscribe with Last-Event-ID semantics upstream.
func (a *API) Stream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := a.events.Subscribe(r.Context())

	_, _ = fmt.Fprintf(w, ": artledger event stream\n\n")
	flusher.Flush()

	for event := range ch {
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		_, _ = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Type, payload)
		flusher.Flush()
	}
}
