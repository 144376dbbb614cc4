package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rcng81/gighop/internal/events"
	"github.com/rcng81/gighop/internal/lifecycle"
	"github.com/rcng81/gighop/internal/notify"
)

// Streamer is the live-feed surface: change events by channel.
type Streamer interface {
	Subscribe(ctx context.Context, channels ...string) <-chan events.Message
}

// streamEvents forwards job, applicant and notification change events as
// server-sent events until the client disconnects.
func (h *Handler) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErrMsg(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	msgs := h.bus.Subscribe(r.Context(),
		lifecycle.EventJobChanged,
		lifecycle.EventApplicantChanged,
		notify.EventNotificationChanged,
	)
	for m := range msgs {
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", m.Channel, m.Payload)
		flusher.Flush()
	}
}
