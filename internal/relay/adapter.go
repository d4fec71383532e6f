package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fotescodev/claude-watch/internal/model"
)

// Outcome is the verdict the relay hands back to the agent.
type Outcome string

const (
	// OutcomeAllow lets the action proceed (approved).
	OutcomeAllow Outcome = "allow"
	// OutcomeDeny blocks the action (rejected or timed out).
	OutcomeDeny Outcome = "deny"
	// OutcomeAnswered carries a selected question option.
	OutcomeAnswered Outcome = "answered"
	// OutcomePaused means a stop interrupt is in effect.
	OutcomePaused Outcome = "paused"
	// OutcomeSessionEnded means the session terminated remotely.
	OutcomeSessionEnded Outcome = "session_ended"
	// OutcomeProceed means the server was unreachable; the relay fails
	// open so an offline device never wedges the agent.
	OutcomeProceed Outcome = "proceed"
)

// Allows reports whether the agent should run the action.
func (o Outcome) Allows() bool {
	return o == OutcomeAllow || o == OutcomeProceed
}

// Adapter drives one request through its full lifecycle on behalf of a
// hook process: pre-flight session checks, create, debounced notify,
// poll until terminal.
type Adapter struct {
	client    *Client
	pairingID string
	debounce  DebounceStore

	// Window is the minimum spacing between notifications.
	Window time.Duration
	// PollInterval is the decision polling cadence.
	PollInterval time.Duration
	// Timeout bounds the wait for a decision, measured from creation.
	Timeout time.Duration

	now func() time.Time
}

func NewAdapter(c *Client, pairingID string, db DebounceStore) *Adapter {
	return &Adapter{
		client:       c,
		pairingID:    pairingID,
		debounce:     db,
		Window:       3 * time.Second,
		PollInterval: time.Second,
		Timeout:      5 * time.Minute,
		now:          time.Now,
	}
}

// OpenAndWait opens the request and blocks until a verdict exists.
// Unreachable server fails open; an expired decision window fails
// closed. The returned request is nil for outcomes reached before the
// request was created.
func (a *Adapter) OpenAndWait(ctx context.Context, r *model.Request) (Outcome, *model.Request, error) {
	r.PairingID = a.pairingID

	// Pre-flight: a dead or paused session means the device owner
	// already spoke; don't open anything.
	sess, err := a.client.SessionStatus(ctx, a.pairingID)
	if err != nil {
		slog.Warn("session check failed, proceeding without approval", "error", err)
		return OutcomeProceed, nil, nil
	}
	if !sess.Active {
		return OutcomeSessionEnded, nil, nil
	}
	if sess.Paused() {
		return OutcomePaused, nil, nil
	}

	created, err := a.client.CreateRequest(ctx, r, false)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			// The session state changed between check and create.
			switch apiErr.Message {
			case "session not active":
				return OutcomeSessionEnded, nil, nil
			case "session paused":
				return OutcomePaused, nil, nil
			}
			return OutcomeProceed, nil, err
		}
		slog.Warn("create failed, proceeding without approval", "error", err)
		return OutcomeProceed, nil, nil
	}

	a.maybeNotify(ctx, created)
	return a.wait(ctx, created)
}

// maybeNotify pushes at most once per debounce window. The pending
// count is read at send time so the device badge reflects the backlog.
func (a *Adapter) maybeNotify(ctx context.Context, r *model.Request) {
	now := a.now()
	if last, ok := a.debounce.LastSent(a.pairingID); ok && now.Sub(last) < a.Window {
		return
	}
	count := 1
	if pending, err := a.client.ListPending(ctx, a.pairingID); err == nil && len(pending) > 0 {
		count = len(pending)
	}
	if err := a.client.Notify(ctx, a.pairingID, r.ID, r.Title, count); err != nil {
		slog.Warn("notify failed", "request_id", r.ID, "error", err)
		return
	}
	if err := a.debounce.MarkSent(a.pairingID, now); err != nil {
		slog.Warn("debounce state not persisted", "error", err)
	}
}

func (a *Adapter) wait(ctx context.Context, created *model.Request) (Outcome, *model.Request, error) {
	deadline := created.CreatedAt.Add(a.Timeout)
	ticker := time.NewTicker(a.PollInterval)
	defer ticker.Stop()

	last := created
	for {
		select {
		case <-ctx.Done():
			return OutcomeDeny, last, ctx.Err()
		case <-ticker.C:
		}

		r, err := a.client.GetRequest(ctx, created.ID)
		switch {
		case err == nil:
			last = r
			if r.Status.Terminal() {
				return outcomeFor(r), r, nil
			}
		case isNotFound(err):
			// The record vanished, e.g. the session was torn down.
			return OutcomeSessionEnded, last, nil
		default:
			// The request exists and a human may be mid-decision, so a
			// failed poll is retried, not failed open. The decision
			// window is the only exit.
			slog.Warn("poll failed, retrying", "request_id", created.ID, "error", err)
		}

		if a.now().After(deadline) {
			// No decision inside the window: deny. The broker's own
			// deadline timer records the timeout server-side.
			return OutcomeDeny, last, nil
		}
	}
}

func isNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}

func outcomeFor(r *model.Request) Outcome {
	switch r.Status {
	case model.StatusApproved:
		return OutcomeAllow
	case model.StatusAnswered:
		return OutcomeAnswered
	case model.StatusSkipped:
		return OutcomePaused
	case model.StatusSessionEnded:
		return OutcomeSessionEnded
	default:
		// Rejected and timed out both block the action.
		return OutcomeDeny
	}
}
