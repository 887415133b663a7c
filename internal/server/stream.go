package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const (
	streamDefaultInterval = 1 * time.Second
	streamMinInterval     = 200 * time.Millisecond
)

func setStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store, max-age=0")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Connection", "keep-alive")
}

// HandleFeedStreamHead answers the SSE handshake probe: headers only.
func (h *Handlers) HandleFeedStreamHead(w http.ResponseWriter, _ *http.Request) {
	setStreamHeaders(w)
	w.WriteHeader(http.StatusOK)
}

// HandleFeedStream serves the live feed over Server-Sent Events. The
// generator polls the feed with a rolling since_id on a fixed cadence
// and exits when the client disconnects.
func (h *Handlers) HandleFeedStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	setStreamHeaders(w)
	w.WriteHeader(http.StatusOK)

	// Suggest a client reconnect delay before the first frame.
	fmt.Fprint(w, "retry: 1000\n\n")
	flusher.Flush()

	// Disable the server's WriteTimeout for this long-lived connection.
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	interval := parseStreamInterval(r.URL.Query().Get("interval"))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx := r.Context()
	var sinceID int64
	for {
		items, err := h.feedItems(r, sinceID)
		if err != nil {
			h.logger.Error("feed stream poll failed", "error", err)
		} else if len(items) > 0 {
			// feedItems returns newest first; advance the cursor to the
			// newest id delivered.
			if items[0].ID > sinceID {
				sinceID = items[0].ID
			}
			payload, err := json.Marshal(items)
			if err != nil {
				h.logger.Error("feed stream encode failed", "error", err)
			} else {
				fmt.Fprintf(w, "event: items\ndata: %s\n\n", payload)
				flusher.Flush()
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// parseStreamInterval parses the interval query parameter (seconds),
// clamping to the minimum cadence.
func parseStreamInterval(s string) time.Duration {
	if s == "" {
		return streamDefaultInterval
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil || secs <= 0 {
		return streamDefaultInterval
	}
	interval := time.Duration(secs * float64(time.Second))
	if interval < streamMinInterval {
		return streamMinInterval
	}
	return interval
}
