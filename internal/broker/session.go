package broker

import (
	"context"
	"fmt"

	"github.com/fotescodev/claude-watch/internal/events"
	"github.com/fotescodev/claude-watch/internal/model"
	"github.com/fotescodev/claude-watch/internal/registry"
)

// StartSession marks a pairing's session as running, clearing any
// leftover end or interrupt state from a previous session.
func (b *Broker) StartSession(ctx context.Context, pairingID, sessionID string) (*model.SessionState, error) {
	sess := model.DefaultSession(pairingID)
	sess.SessionID = sessionID
	sess.UpdatedAt = b.now().UTC()
	if err := b.store.PutSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	b.announce(ctx, pairingID, registry.Message{Type: registry.TypeSession, Session: sess},
		events.TopicSessionStarted, events.SessionStarted{PairingID: pairingID, SessionID: sessionID})
	return sess, nil
}

// SessionStatus reports the current session state. An unknown pairing
// reads as a fresh active session.
func (b *Broker) SessionStatus(ctx context.Context, pairingID string) (*model.SessionState, error) {
	return b.store.GetSession(ctx, pairingID)
}

// EndSession terminates the session and sweeps every pending request
// for the pairing to session_ended, so no producer is left blocked on
// a decision that can never come.
func (b *Broker) EndSession(ctx context.Context, pairingID string) (*model.SessionState, error) {
	sess, err := b.store.GetSession(ctx, pairingID)
	if err != nil {
		return nil, err
	}
	sess.Active = false
	sess.Interrupted = false
	sess.Action = ""
	sess.UpdatedAt = b.now().UTC()
	if err := b.store.PutSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	skipped, err := b.sweepPending(ctx, pairingID, model.StatusSessionEnded)
	if err != nil {
		return nil, err
	}
	b.announce(ctx, pairingID, registry.Message{Type: registry.TypeSession, Session: sess},
		events.TopicSessionEnded, events.SessionEnded{PairingID: pairingID, Skipped: skipped})
	return sess, nil
}

// Interrupt applies a stop or resume. Stop pauses the session and
// sweeps pending requests to skipped; resume only lifts the gate and
// has no retroactive effect on requests already swept.
func (b *Broker) Interrupt(ctx context.Context, pairingID string, action model.InterruptAction) (*model.SessionState, error) {
	if action != model.InterruptStop && action != model.InterruptResume {
		return nil, fmt.Errorf("unknown interrupt action %q", action)
	}
	sess, err := b.store.GetSession(ctx, pairingID)
	if err != nil {
		return nil, err
	}
	if !sess.Active {
		return nil, ErrSessionInactive
	}

	if action == model.InterruptStop {
		sess.Interrupted = true
		sess.Action = model.InterruptStop
	} else {
		sess.Interrupted = false
		sess.Action = model.InterruptResume
	}
	sess.UpdatedAt = b.now().UTC()
	if err := b.store.PutSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	if action == model.InterruptStop {
		if _, err := b.sweepPending(ctx, pairingID, model.StatusSkipped); err != nil {
			return nil, err
		}
	}
	b.announce(ctx, pairingID, registry.Message{Type: registry.TypeSession, Session: sess},
		events.TopicSessionInterrupted, events.SessionInterrupted{PairingID: pairingID, Action: action})
	return sess, nil
}

// sweepPending cancels every pending request for the pairing to the
// given terminal status, waking their waiters. Requests that get
// decided mid-sweep keep their decision.
func (b *Broker) sweepPending(ctx context.Context, pairingID string, status model.Status) ([]string, error) {
	pending, err := b.store.ListPending(ctx, pairingID)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	var swept []string
	for _, r := range pending {
		resolved, err := b.Cancel(ctx, r.ID, status)
		if err != nil {
			return nil, fmt.Errorf("sweep %s: %w", r.ID, err)
		}
		if resolved.Status == status {
			swept = append(swept, r.ID)
		}
	}
	return swept, nil
}
