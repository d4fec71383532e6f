// Package relay is the hook-side of the system: a short-lived process
// that opens a request on the server, polls for the decision, and maps
// the outcome to an allow-or-deny verdict for the agent.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fotescodev/claude-watch/internal/model"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Client talks to the approval server over HTTP/JSON.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	// longPoll has no client timeout; WaitRequest is bounded by its
	// context and the server's decision window instead.
	longPoll *http.Client
}

// NewClient creates a client targeting the given base URL
// (e.g. "http://localhost:8787"). When token is non-empty, an
// Authorization header is set on every request.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		longPoll:   &http.Client{},
	}
}

// CreateRequest opens a request on the server. sendPush controls the
// server-side notification; the relay passes false and notifies on its
// own debounce schedule.
func (c *Client) CreateRequest(ctx context.Context, r *model.Request, sendPush bool) (*model.Request, error) {
	body := map[string]any{
		"pairing_id":  r.PairingID,
		"kind":        r.Kind,
		"title":       r.Title,
		"description": r.Description,
		"file_path":   r.FilePath,
		"command":     r.Command,
		"options":     r.Options,
		"recommended": r.Recommended,
		"notify":      sendPush,
	}
	var created model.Request
	if err := c.doJSON(ctx, http.MethodPost, "/v1/requests", body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) GetRequest(ctx context.Context, id string) (*model.Request, error) {
	var r model.Request
	if err := c.doJSON(ctx, http.MethodGet, "/v1/requests/"+url.PathEscape(id), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// WaitRequest blocks on the server until the request reaches a terminal
// status, returning the decided record. The server enforces its own
// decision window; ctx bounds the client side.
func (c *Client) WaitRequest(ctx context.Context, id string) (*model.Request, error) {
	var r model.Request
	if err := c.do(ctx, c.longPoll, http.MethodGet, "/v1/requests/"+url.PathEscape(id)+"/wait", nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) ListPending(ctx context.Context, pairingID string) ([]*model.Request, error) {
	return c.ListRequests(ctx, pairingID, true)
}

// ListRequests returns requests for a pairing, optionally restricted to
// pending ones. An empty pairingID lists across all pairings.
func (c *Client) ListRequests(ctx context.Context, pairingID string, pendingOnly bool) ([]*model.Request, error) {
	var resp struct {
		Requests []*model.Request `json:"requests"`
	}
	q := url.Values{}
	if pairingID != "" {
		q.Set("pairing_id", pairingID)
	}
	if pendingOnly {
		q.Set("pending", "true")
	}
	path := "/v1/requests"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Requests, nil
}

func (c *Client) Resolve(ctx context.Context, id string, d *model.Decision) (*model.Request, error) {
	body := map[string]any{"resolved_by": d.By}
	if d.Approved != nil {
		body["approved"] = *d.Approved
	}
	if d.Selected != nil {
		body["selected"] = *d.Selected
	}
	var r model.Request
	if err := c.doJSON(ctx, http.MethodPost, "/v1/requests/"+url.PathEscape(id)+"/resolve", body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) Cancel(ctx context.Context, id string) (*model.Request, error) {
	var r model.Request
	if err := c.doJSON(ctx, http.MethodPost, "/v1/requests/"+url.PathEscape(id)+"/cancel", nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Notify asks the server to push a notification now. The relay calls
// this only when its local debounce window has passed.
func (c *Client) Notify(ctx context.Context, pairingID, requestID, title string, pendingCount int) error {
	body := map[string]any{
		"pairing_id":    pairingID,
		"request_id":    requestID,
		"title":         title,
		"pending_count": pendingCount,
	}
	return c.doJSON(ctx, http.MethodPost, "/v1/notify", body, nil)
}

func (c *Client) SessionStatus(ctx context.Context, pairingID string) (*model.SessionState, error) {
	var s model.SessionState
	if err := c.doJSON(ctx, http.MethodGet, "/v1/session/"+url.PathEscape(pairingID), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) StartSession(ctx context.Context, pairingID, sessionID string) error {
	body := map[string]string{"session_id": sessionID}
	return c.doJSON(ctx, http.MethodPost, "/v1/session/"+url.PathEscape(pairingID)+"/start", body, nil)
}

func (c *Client) EndSession(ctx context.Context, pairingID string) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/session/"+url.PathEscape(pairingID)+"/end", nil, nil)
}

// GetInterrupt reports whether a stop or resume interrupt is pending.
func (c *Client) GetInterrupt(ctx context.Context, pairingID string) (bool, model.InterruptAction, error) {
	var resp struct {
		Interrupted bool                  `json:"interrupted"`
		Action      model.InterruptAction `json:"action"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/session-interrupt/"+url.PathEscape(pairingID), nil, &resp); err != nil {
		return false, "", err
	}
	return resp.Interrupted, resp.Action, nil
}

func (c *Client) SetInterrupt(ctx context.Context, pairingID string, action model.InterruptAction) error {
	body := map[string]any{"action": action}
	return c.doJSON(ctx, http.MethodPost, "/v1/session-interrupt/"+url.PathEscape(pairingID), body, nil)
}

func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/v1/health", nil, nil)
}

// doJSON performs an HTTP request with optional JSON body and decodes
// the JSON response. If result is nil, the response body is discarded.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any) error {
	return c.do(ctx, c.httpClient, method, path, body, result)
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
