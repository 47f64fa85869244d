package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/georgemunganga/prepick-backend/internal/gateway"
	"github.com/georgemunganga/prepick-backend/internal/logger"
)

const heartbeatEvery = 25 * time.Second

// Stream is one Server-Sent Events connection.
type Stream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewStream sets the event-stream headers. It returns nil, after writing a
// 500, when w cannot flush.
func NewStream(w http.ResponseWriter) *Stream {
	flusher, ok := w.(http.Flusher)
	if !ok {
		Respond(w, http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
		return nil
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &Stream{w: w, flusher: flusher}
}

// Send writes a named event with a JSON payload.
func (s *Stream) Send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("sse: marshal: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Comment writes a keepalive comment line.
func (s *Stream) Comment(msg string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", msg); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// StreamSnapshots relays every snapshot of sub as a "snapshot" event until
// the client goes away or the subscription ends. render turns a snapshot
// into the event payload.
func StreamSnapshots(w http.ResponseWriter, r *http.Request, sub *gateway.Subscription, render func(gateway.Snapshot) (any, error)) {
	defer sub.Close()
	stream := NewStream(w)
	if stream == nil {
		return
	}
	log := logger.FromCtx(r.Context())

	heartbeat := time.NewTicker(heartbeatEvery)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if err := stream.Comment("ping"); err != nil {
				return
			}
		case snap, ok := <-sub.Snapshots():
			if !ok {
				return
			}
			payload, err := render(snap)
			if err != nil {
				log.Error("render snapshot", "query", snap.Query.String(), "error", err)
				continue
			}
			if err := stream.Send("snapshot", payload); err != nil {
				return
			}
		}
	}
}
