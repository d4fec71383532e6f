package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must
// include a valid Authorization: Bearer <token> header.
func (s *WatchServer) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/requests", s.handleCreateRequest)
	mux.HandleFunc("GET /v1/requests", s.handleListRequests)
	mux.HandleFunc("GET /v1/requests/{id}", s.handleGetRequest)
	mux.HandleFunc("GET /v1/requests/{id}/wait", s.handleWaitRequest)
	mux.HandleFunc("POST /v1/requests/{id}/resolve", s.handleResolveRequest)
	mux.HandleFunc("POST /v1/requests/{id}/cancel", s.handleCancelRequest)
	mux.HandleFunc("GET /v1/session/{pairing_id}", s.handleSessionStatus)
	mux.HandleFunc("POST /v1/session/{pairing_id}/start", s.handleSessionStart)
	mux.HandleFunc("POST /v1/session/{pairing_id}/end", s.handleSessionEnd)
	mux.HandleFunc("GET /v1/session-interrupt/{pairing_id}", s.handleGetInterrupt)
	mux.HandleFunc("POST /v1/session-interrupt/{pairing_id}", s.handleSetInterrupt)
	mux.HandleFunc("POST /v1/notify", s.handleNotify)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	return AuthMiddleware(authToken, mux)
}

// handleHealth handles GET /v1/health.
func (s *WatchServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AuthMiddleware enforces bearer-token auth when a token is configured.
func AuthMiddleware(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Exempt health check.
		if r.Method == http.MethodGet && r.URL.Path == "/v1/health" {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}
		if !strings.HasPrefix(auth, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "invalid authorization scheme")
			return
		}
		provided := strings.TrimPrefix(auth, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
