// Package notify delivers best-effort push notifications about newly
// opened requests, debounced so bursts reach the device as one nudge.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Notification is the payload handed to a Pusher.
type Notification struct {
	PairingID    string `json:"pairing_id"`
	Title        string `json:"title"`
	Body         string `json:"body"`
	RequestID    string `json:"request_id,omitempty"`
	PendingCount int    `json:"pending_count"`
}

// Pusher delivers a notification to the device. Implementations must
// not be relied on for correctness; every delivery is fire-and-forget.
type Pusher interface {
	Push(ctx context.Context, n Notification) error
}

const pushTimeout = 5 * time.Second

// Gateway debounces and dispatches notifications. Deliveries inside
// the debounce window after a successful dispatch are dropped; the
// device already has a fresh nudge and the pending count in it goes
// stale, not wrong, since it is computed at send time.
type Gateway struct {
	pusher   Pusher
	debounce time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time // pairingID -> last dispatch
}

func NewGateway(p Pusher, debounce time.Duration) *Gateway {
	return &Gateway{
		pusher:   p,
		debounce: debounce,
		now:      time.Now,
		lastSent: make(map[string]time.Time),
	}
}

// Notify dispatches asynchronously unless inside the debounce window.
// It never blocks request processing and never reports delivery
// failures to the caller; a failed push only logs.
func (g *Gateway) Notify(n Notification) {
	g.mu.Lock()
	now := g.now()
	if last, ok := g.lastSent[n.PairingID]; ok && now.Sub(last) < g.debounce {
		g.mu.Unlock()
		return
	}
	g.lastSent[n.PairingID] = now
	g.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		if err := g.pusher.Push(ctx, n); err != nil {
			slog.Warn("push notification failed", "pairing_id", n.PairingID, "error", err)
		}
	}()
}

// Build composes the notification text for a newly opened request.
// With more than one request outstanding the title switches to an
// aggregate so the badge reflects the backlog.
func Build(pairingID, requestID, title string, pendingCount int) Notification {
	n := Notification{
		PairingID:    pairingID,
		RequestID:    requestID,
		Title:        "Claude needs approval",
		Body:         title,
		PendingCount: pendingCount,
	}
	if pendingCount > 1 {
		n.Title = fmt.Sprintf("Claude: %d actions pending", pendingCount)
	}
	return n
}
