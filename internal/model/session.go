package model

import "time"

// InterruptAction is the direction of a session interrupt.
type InterruptAction string

const (
	InterruptStop   InterruptAction = "stop"
	InterruptResume InterruptAction = "resume"
)

// SessionState is the per-pairing session record.
//
// State machine: running ⇄ interrupted(stop) via stop/resume; any state may
// transition to ended, which is terminal. The zero-observation default is
// active and not interrupted.
type SessionState struct {
	PairingID   string          `json:"pairing_id"`
	Active      bool            `json:"active"`
	Interrupted bool            `json:"interrupted"`
	Action      InterruptAction `json:"action,omitempty"`
	SessionID   string          `json:"session_id,omitempty"` // agent session identifier, if reported
	UpdatedAt   time.Time       `json:"updated_at"`
}

// DefaultSession returns the state assumed for a pairing with no record yet.
func DefaultSession(pairingID string) *SessionState {
	return &SessionState{
		PairingID: pairingID,
		Active:    true,
	}
}

// Paused reports whether the session is interrupted with a pending stop.
// A resume interrupt clears the pause without creating a new state value.
func (s *SessionState) Paused() bool {
	return s.Interrupted && s.Action == InterruptStop
}
