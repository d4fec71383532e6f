package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fotescodev/claude-watch/internal/broker"
	"github.com/fotescodev/claude-watch/internal/model"
	"github.com/fotescodev/claude-watch/internal/store"
)

// createRequestBody is the JSON body for POST /v1/requests.
type createRequestBody struct {
	PairingID   string         `json:"pairing_id"`
	Kind        model.Kind     `json:"kind"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	FilePath    string         `json:"file_path,omitempty"`
	Command     string         `json:"command,omitempty"`
	Options     []model.Option `json:"options,omitempty"`
	Recommended int            `json:"recommended"`
	// Notify defaults to true; producers that handle their own
	// debouncing (the hook relay) set it to false and POST /v1/notify
	// themselves.
	Notify *bool `json:"notify,omitempty"`
}

// handleCreateRequest handles POST /v1/requests.
func (s *WatchServer) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req := &model.Request{
		PairingID:   body.PairingID,
		Kind:        body.Kind,
		Title:       body.Title,
		Description: body.Description,
		FilePath:    body.FilePath,
		Command:     body.Command,
		Options:     body.Options,
		Recommended: body.Recommended,
	}
	sendPush := body.Notify == nil || *body.Notify

	created, err := s.broker.Open(r.Context(), req, sendPush)
	switch {
	case errors.Is(err, broker.ErrSessionInactive):
		writeError(w, http.StatusConflict, "session not active")
		return
	case errors.Is(err, broker.ErrSessionPaused):
		writeError(w, http.StatusConflict, "session paused")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleListRequests handles GET /v1/requests.
// Supports ?pairing_id= filtering and ?pending=true.
func (s *WatchServer) handleListRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pairingID := q.Get("pairing_id")

	var (
		reqs []*model.Request
		err  error
	)
	if q.Get("pending") == "true" {
		reqs, err = s.store.ListPending(r.Context(), pairingID)
	} else {
		reqs, err = s.store.ListAll(r.Context(), pairingID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list requests")
		return
	}
	if reqs == nil {
		reqs = []*model.Request{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": reqs, "count": len(reqs)})
}

// handleGetRequest handles GET /v1/requests/{id}.
func (s *WatchServer) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.store.GetRequest(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "request not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get request")
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// handleWaitRequest handles GET /v1/requests/{id}/wait. It blocks
// until the request reaches a terminal status, the decision window
// closes, or the client disconnects.
func (s *WatchServer) handleWaitRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.broker.Await(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "request not found")
		return
	}
	if err != nil {
		// Client went away; nothing useful to write.
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// resolveRequestBody is the JSON body for POST /v1/requests/{id}/resolve.
type resolveRequestBody struct {
	Approved   *bool  `json:"approved,omitempty"`
	Selected   *int   `json:"selected,omitempty"`
	ResolvedBy string `json:"resolved_by,omitempty"`
}

// handleResolveRequest handles POST /v1/requests/{id}/resolve.
// A resolution losing the first-decision race gets 409.
func (s *WatchServer) handleResolveRequest(w http.ResponseWriter, r *http.Request) {
	var body resolveRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resolved, err := s.broker.Resolve(r.Context(), r.PathValue("id"), &model.Decision{
		Approved: body.Approved,
		Selected: body.Selected,
		By:       body.ResolvedBy,
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "request not found")
		return
	case errors.Is(err, store.ErrAlreadyResolved):
		writeError(w, http.StatusConflict, "already resolved")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

// handleCancelRequest handles POST /v1/requests/{id}/cancel. Cancelling
// a request that was already decided is a no-op returning the decided
// record.
func (s *WatchServer) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.broker.Cancel(r.Context(), r.PathValue("id"), model.StatusSkipped)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "request not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to cancel request")
		return
	}
	writeJSON(w, http.StatusOK, req)
}
