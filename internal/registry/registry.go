// Package registry tracks the set of live listener connections for a
// pairing and fans state changes out to them.
package registry

import (
	"log/slog"
	"sync"

	"github.com/fotescodev/claude-watch/internal/model"
)

// Message event types pushed to listeners.
const (
	TypeSnapshot = "state_sync"
	TypeCreated  = "request_created"
	TypeResolved = "request_resolved"
	TypeSession  = "session_changed"
)

// Message is a single unit delivered to a listener connection.
type Message struct {
	Type     string              `json:"type"`
	Request  *model.Request      `json:"request,omitempty"`
	Requests []*model.Request    `json:"requests,omitempty"`
	Session  *model.SessionState `json:"session,omitempty"`
}

// Conn is a single listener connection. Send must not block
// indefinitely; a failing connection is evicted from the registry.
type Conn interface {
	Send(Message) error
}

// Snapshot produces the current pending state pushed to a listener on
// register, so late joiners see requests opened while they were away.
type Snapshot func(pairingID string) (Message, error)

// Registry is the set of live connections per pairing. Register and
// Unregister are idempotent; double registration and removal of an
// absent connection are no-ops.
type Registry struct {
	mu       sync.RWMutex
	conns    map[string]map[Conn]struct{} // pairingID -> connections
	snapshot Snapshot
}

func New(snapshot Snapshot) *Registry {
	return &Registry{
		conns:    make(map[string]map[Conn]struct{}),
		snapshot: snapshot,
	}
}

// Register adds a connection for a pairing and pushes the current state
// snapshot to it. A snapshot failure only logs; the connection stays
// registered and will receive subsequent broadcasts.
func (r *Registry) Register(pairingID string, c Conn) {
	r.mu.Lock()
	set, ok := r.conns[pairingID]
	if !ok {
		set = make(map[Conn]struct{})
		r.conns[pairingID] = set
	}
	if _, dup := set[c]; dup {
		r.mu.Unlock()
		return
	}
	set[c] = struct{}{}
	r.mu.Unlock()

	if r.snapshot == nil {
		return
	}
	msg, err := r.snapshot(pairingID)
	if err != nil {
		slog.Warn("state snapshot failed", "pairing_id", pairingID, "error", err)
		return
	}
	if err := c.Send(msg); err != nil {
		r.Unregister(pairingID, c)
	}
}

// Unregister removes a connection. Unknown connections are ignored.
func (r *Registry) Unregister(pairingID string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[pairingID]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(r.conns, pairingID)
	}
}

// Broadcast delivers a message to every connection registered for the
// pairing. A failed send evicts that connection and never affects
// delivery to the others.
func (r *Registry) Broadcast(pairingID string, msg Message) {
	r.mu.RLock()
	set := r.conns[pairingID]
	conns := make([]Conn, 0, len(set))
	for c := range set {
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	for _, c := range conns {
		if err := c.Send(msg); err != nil {
			slog.Debug("evicting listener", "pairing_id", pairingID, "error", err)
			r.Unregister(pairingID, c)
		}
	}
}

// Count reports the number of live connections for a pairing.
func (r *Registry) Count(pairingID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[pairingID])
}
