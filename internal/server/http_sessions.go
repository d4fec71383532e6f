package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fotescodev/claude-watch/internal/broker"
	"github.com/fotescodev/claude-watch/internal/model"
	"github.com/fotescodev/claude-watch/internal/notify"
)

// handleSessionStatus handles GET /v1/session/{pairing_id}.
func (s *WatchServer) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	sess, err := s.broker.SessionStatus(r.Context(), r.PathValue("pairing_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleSessionStart handles POST /v1/session/{pairing_id}/start.
func (s *WatchServer) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionID string `json:"session_id"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	sess, err := s.broker.StartSession(r.Context(), r.PathValue("pairing_id"), body.SessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start session")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleSessionEnd handles POST /v1/session/{pairing_id}/end.
func (s *WatchServer) handleSessionEnd(w http.ResponseWriter, r *http.Request) {
	sess, err := s.broker.EndSession(r.Context(), r.PathValue("pairing_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to end session")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleGetInterrupt handles GET /v1/session-interrupt/{pairing_id}.
// The relay polls this before opening a request.
func (s *WatchServer) handleGetInterrupt(w http.ResponseWriter, r *http.Request) {
	sess, err := s.broker.SessionStatus(r.Context(), r.PathValue("pairing_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"interrupted": sess.Interrupted,
		"action":      sess.Action,
	})
}

// handleSetInterrupt handles POST /v1/session-interrupt/{pairing_id}.
func (s *WatchServer) handleSetInterrupt(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Action model.InterruptAction `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sess, err := s.broker.Interrupt(r.Context(), r.PathValue("pairing_id"), body.Action)
	switch {
	case errors.Is(err, broker.ErrSessionInactive):
		writeError(w, http.StatusConflict, "session not active")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleNotify handles POST /v1/notify. Producers that debounce
// locally use this to push on their own schedule; the server gateway's
// window still applies as a second guard.
func (s *WatchServer) handleNotify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PairingID    string `json:"pairing_id"`
		RequestID    string `json:"request_id,omitempty"`
		Title        string `json:"title"`
		PendingCount int    `json:"pending_count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.PairingID == "" {
		writeError(w, http.StatusBadRequest, "pairing_id is required")
		return
	}
	if body.PendingCount < 1 {
		body.PendingCount = 1
	}
	if s.notifier != nil {
		s.notifier.Notify(notify.Build(body.PairingID, body.RequestID, body.Title, body.PendingCount))
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
