package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fotescodev/claude-watch/internal/registry"
)

// sseKeepaliveInterval is how often keepalive comments are sent to
// prevent connection timeouts.
const sseKeepaliveInterval = 15 * time.Second

// sseConnBuffer bounds how far an SSE consumer may fall behind before
// it is treated as dead and evicted.
const sseConnBuffer = 64

var errSlowConsumer = errors.New("slow consumer")

// sseConn adapts a buffered channel to registry.Conn. A send to a full
// buffer fails, which makes the registry evict the connection instead
// of blocking broadcasts on it.
type sseConn struct {
	ch chan registry.Message
}

func newSSEConn() *sseConn {
	return &sseConn{ch: make(chan registry.Message, sseConnBuffer)}
}

func (c *sseConn) Send(m registry.Message) error {
	select {
	case c.ch <- m:
		return nil
	default:
		return errSlowConsumer
	}
}

// handleEventStream handles GET /v1/events/stream (SSE endpoint).
// The listener registers for one pairing and receives the state
// snapshot first, then live changes.
func (s *WatchServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	pairingID := r.URL.Query().Get("pairing_id")
	if pairingID == "" {
		writeError(w, http.StatusBadRequest, "pairing_id is required")
		return
	}

	conn := newSSEConn()
	s.registry.Register(pairingID, conn)
	defer s.registry.Unregister(pairingID, conn)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-conn.ch:
			writeSSEEvent(w, msg)
			flusher.Flush()
		case <-keepalive.C:
			// Send a comment line as keepalive.
			fmt.Fprintf(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes a single SSE event to the writer.
func writeSSEEvent(w http.ResponseWriter, msg registry.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event:%s\n", msg.Type)
	fmt.Fprintf(w, "data:%s\n\n", data)
}
