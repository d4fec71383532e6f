package model

import (
	"time"
)

// Kind classifies a decision request.
type Kind string

const (
	// KindApproval is a yes/no permission request for a tool action.
	KindApproval Kind = "approval"
	// KindQuestion is a single-choice question with an ordered option list.
	KindQuestion Kind = "question"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// IsValid checks whether the kind is a known value.
func (k Kind) IsValid() bool {
	switch k {
	case KindApproval, KindQuestion:
		return true
	}
	return false
}

// Status represents the current state of a request.
// Every status other than pending is terminal and never regresses.
type Status string

const (
	StatusPending      Status = "pending"
	StatusApproved     Status = "approved"
	StatusRejected     Status = "rejected"
	StatusAnswered     Status = "answered"
	StatusSkipped      Status = "skipped"
	StatusSessionEnded Status = "session_ended"
	StatusTimedOut     Status = "timed_out"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Terminal reports whether the status is final. A terminal status is
// immutable once set.
func (s Status) Terminal() bool {
	return s != "" && s != StatusPending
}

// IsValid checks whether the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusAnswered,
		StatusSkipped, StatusSessionEnded, StatusTimedOut:
		return true
	}
	return false
}

// Option is one selectable answer for a question request.
type Option struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// Request is the unit of a single pending decision. It is created by the
// broker (or, cross-process, by the relay adapter) and resolved at most once
// by a human-facing client.
type Request struct {
	ID          string `json:"id"`
	PairingID   string `json:"pairing_id"`
	Kind        Kind   `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	// Approval payload.
	FilePath string `json:"file_path,omitempty"`
	Command  string `json:"command,omitempty"`

	// Question payload. Recommended is an index into Options.
	Options     []Option `json:"options,omitempty"`
	Recommended int      `json:"recommended,omitempty"`

	Status Status `json:"status"`

	// Result, present only once the status is terminal.
	Approved *bool `json:"approved,omitempty"` // approvals
	Selected *int  `json:"selected,omitempty"` // questions

	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy string     `json:"resolved_by,omitempty"`
}

// Decision is the input a client supplies when resolving a request.
// Exactly one of Approved or Selected must be set, matching the request kind.
type Decision struct {
	Approved *bool  `json:"approved,omitempty"`
	Selected *int   `json:"selected,omitempty"`
	By       string `json:"resolved_by,omitempty"`
}

// StatusFor returns the terminal status a decision maps to for the given kind.
func (d *Decision) StatusFor(kind Kind) Status {
	if kind == KindQuestion {
		return StatusAnswered
	}
	if d.Approved != nil && *d.Approved {
		return StatusApproved
	}
	return StatusRejected
}
