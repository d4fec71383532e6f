package model

import (
	"fmt"
)

// Display string limits. Overlong values are truncated, never rejected:
// the watch screen is small and the caller should not fail because a
// command line was long.
const (
	MaxTitleLen       = 50
	MaxDescriptionLen = 200
)

// TruncateTitle trims a title to MaxTitleLen runes with an ellipsis.
func TruncateTitle(s string) string {
	return truncate(s, MaxTitleLen)
}

// TruncateDescription trims a description to MaxDescriptionLen runes.
func TruncateDescription(s string) string {
	return truncate(s, MaxDescriptionLen)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

// Normalize applies display limits and defaults to a request before storage.
func (r *Request) Normalize() {
	r.Title = TruncateTitle(r.Title)
	r.Description = TruncateDescription(r.Description)
	if r.Status == "" {
		r.Status = StatusPending
	}
}

// ValidateNew checks a request prior to creation.
func (r *Request) ValidateNew() error {
	if r.PairingID == "" {
		return fmt.Errorf("pairing_id is required")
	}
	if !r.Kind.IsValid() {
		return fmt.Errorf("unknown kind %q", r.Kind)
	}
	if r.Title == "" {
		return fmt.Errorf("title is required")
	}
	if r.Kind == KindQuestion {
		if len(r.Options) == 0 {
			return fmt.Errorf("question requires at least one option")
		}
		if r.Recommended < 0 || r.Recommended >= len(r.Options) {
			return fmt.Errorf("recommended index %d out of range (0..%d)", r.Recommended, len(r.Options)-1)
		}
	}
	return nil
}

// ValidateDecision checks a decision against the request it resolves.
// A malformed decision (wrong shape for the kind, or an option index out of
// range) is rejected here and does not terminate the record.
func (r *Request) ValidateDecision(d *Decision) error {
	if d == nil {
		return fmt.Errorf("decision is required")
	}
	switch r.Kind {
	case KindApproval:
		if d.Approved == nil {
			return fmt.Errorf("approval decision requires approved=true|false")
		}
	case KindQuestion:
		if d.Selected == nil {
			return fmt.Errorf("question decision requires a selected option")
		}
		if *d.Selected < 0 || *d.Selected >= len(r.Options) {
			return fmt.Errorf("selected option %d out of range (0..%d)", *d.Selected, len(r.Options)-1)
		}
	default:
		return fmt.Errorf("unknown kind %q", r.Kind)
	}
	return nil
}
