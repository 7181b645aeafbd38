package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// heartbeatInterval keeps idle SSE connections alive through proxies and
// lets dead clients surface as write errors.
const heartbeatInterval = 15 * time.Second

// handleEvents streams daemon events as server-sent events. Each event goes
// out as an "event:" line naming it and a "data:" line with the JSON
// payload; comment lines are heartbeats.
func handleEvents(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			httpError(w, http.StatusInternalServerError, "api_error", "streaming not supported")
			return
		}

		// Subscribe before the headers go out: once the client sees the
		// response start, no event can slip past it.
		sub := deps.Hub.Subscribe()
		defer deps.Hub.Unsubscribe(sub)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		flusher.Flush()

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case e, ok := <-sub:
				if !ok {
					return
				}
				data, err := json.Marshal(e.Payload)
				if err != nil {
					slog.Warn("dropping unmarshalable event", "event", e.Name, "error", err)
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Name, data)
				flusher.Flush()
			case <-heartbeat.C:
				fmt.Fprint(w, ": heartbeat\n\n")
				flusher.Flush()
			}
		}
	}
}
