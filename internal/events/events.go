// Package events defines the topics and payloads published to the
// event bus as requests and sessions change.
package events

import (
	"context"

	"github.com/fotescodev/claude-watch/internal/model"
)

// Event topic constants
const (
	TopicRequestCreated  = "watch.request.created"
	TopicRequestResolved = "watch.request.resolved"
	TopicRequestTimedOut = "watch.request.timed_out"

	// Session lifecycle events (emitted by hooks, consumed by listeners).
	TopicSessionStarted     = "watch.session.started"
	TopicSessionEnded       = "watch.session.ended"
	TopicSessionInterrupted = "watch.session.interrupted"
)

// Event types

type RequestCreated struct {
	Request *model.Request `json:"request"`
}

type RequestResolved struct {
	Request    *model.Request `json:"request"`
	ResolvedBy string         `json:"resolved_by,omitempty"`
}

type RequestTimedOut struct {
	RequestID string `json:"request_id"`
	PairingID string `json:"pairing_id"`
}

type SessionStarted struct {
	PairingID string `json:"pairing_id"`
	SessionID string `json:"session_id,omitempty"`
}

type SessionEnded struct {
	PairingID string `json:"pairing_id"`
	// Skipped lists pending requests cancelled by the session ending.
	Skipped []string `json:"skipped,omitempty"`
}

type SessionInterrupted struct {
	PairingID string                `json:"pairing_id"`
	Action    model.InterruptAction `json:"action"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
