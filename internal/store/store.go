// Package store defines the persistence interface for approval
// requests and session state.
package store

import (
	"context"
	"errors"

	"github.com/fotescodev/claude-watch/internal/model"
)

var (
	// ErrNotFound is returned when a request or session does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyResolved is returned when a resolution races a request
	// that already reached a terminal status.
	ErrAlreadyResolved = errors.New("already resolved")
)

// Store is the persistence interface for requests and sessions.
type Store interface {
	// Requests
	CreateRequest(ctx context.Context, r *model.Request) error
	GetRequest(ctx context.Context, id string) (*model.Request, error)
	ListPending(ctx context.Context, pairingID string) ([]*model.Request, error)
	ListAll(ctx context.Context, pairingID string) ([]*model.Request, error)

	// ResolveRequest transitions a pending request to a terminal status.
	// It is a compare-and-set: the update applies only while the stored
	// status is still pending, and ErrAlreadyResolved is returned when a
	// competing resolution got there first. decision carries the
	// verdict for approved/rejected/answered outcomes and is nil for
	// cancellations and timeouts.
	ResolveRequest(ctx context.Context, id string, status model.Status, decision *model.Decision) (*model.Request, error)

	// Sessions. A pairing with no recorded session is reported as the
	// default active state rather than ErrNotFound.
	GetSession(ctx context.Context, pairingID string) (*model.SessionState, error)
	PutSession(ctx context.Context, s *model.SessionState) error

	// Lifecycle
	Close() error
}
