// Package broker correlates opened approval requests with the
// decisions that resolve them. It owns the at-most-one-decision rule:
// whatever races — approve against reject, cancel against resolve, a
// timeout against a decision landing at the last instant — exactly one
// outcome is recorded and every later attempt is turned away.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fotescodev/claude-watch/internal/events"
	"github.com/fotescodev/claude-watch/internal/idgen"
	"github.com/fotescodev/claude-watch/internal/model"
	"github.com/fotescodev/claude-watch/internal/notify"
	"github.com/fotescodev/claude-watch/internal/registry"
	"github.com/fotescodev/claude-watch/internal/store"
)

var (
	// ErrSessionInactive rejects opens for a pairing whose session ended.
	ErrSessionInactive = errors.New("session not active")
	// ErrSessionPaused rejects opens while a stop interrupt is in effect.
	ErrSessionPaused = errors.New("session paused")
)

// Notifier receives fire-and-forget notifications about new requests.
type Notifier interface {
	Notify(notify.Notification)
}

// Broker is the correlation point between request producers (hooks)
// and decision makers (devices).
type Broker struct {
	store    store.Store
	registry *registry.Registry
	notifier Notifier
	pub      events.Publisher
	timeout  time.Duration

	mu      sync.Mutex
	waiters map[string]chan *model.Request

	now func() time.Time
}

func New(st store.Store, reg *registry.Registry, n Notifier, pub events.Publisher, timeout time.Duration) *Broker {
	return &Broker{
		store:    st,
		registry: reg,
		notifier: n,
		pub:      pub,
		timeout:  timeout,
		waiters:  make(map[string]chan *model.Request),
		now:      time.Now,
	}
}

// Open validates and records a new request, announces it to listeners,
// and optionally sends a push notification. The pairing's session must
// be active and not paused by a stop interrupt.
func (b *Broker) Open(ctx context.Context, r *model.Request, sendPush bool) (*model.Request, error) {
	sess, err := b.store.GetSession(ctx, r.PairingID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !sess.Active {
		return nil, ErrSessionInactive
	}
	if sess.Paused() {
		return nil, ErrSessionPaused
	}

	if r.ID == "" {
		id, err := idgen.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate id: %w", err)
		}
		r.ID = id
	}
	r.CreatedAt = b.now().UTC()
	r.Normalize()
	if err := r.ValidateNew(); err != nil {
		return nil, err
	}
	if err := b.store.CreateRequest(ctx, r); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	b.mu.Lock()
	b.waiters[r.ID] = make(chan *model.Request, 1)
	b.mu.Unlock()

	// Every request reaches a terminal status even when no one awaits
	// it (the relay polls over HTTP instead): at the deadline the
	// record is swept to timed out and its waiter entry dropped. A
	// decision landing first wins the CAS and the sweep is a no-op.
	id := r.ID
	time.AfterFunc(time.Until(r.CreatedAt.Add(b.timeout)), func() {
		if _, err := b.timeOut(context.Background(), id); err != nil && !errors.Is(err, store.ErrNotFound) {
			slog.Warn("timeout sweep failed", "request_id", id, "error", err)
		}
	})

	b.announce(ctx, r.PairingID, registry.Message{Type: registry.TypeCreated, Request: r},
		events.TopicRequestCreated, events.RequestCreated{Request: r})

	if sendPush && b.notifier != nil {
		pending, err := b.store.ListPending(ctx, r.PairingID)
		count := len(pending)
		if err != nil {
			slog.Warn("pending count unavailable", "pairing_id", r.PairingID, "error", err)
			count = 1
		}
		b.notifier.Notify(notify.Build(r.PairingID, r.ID, r.Title, count))
	}

	return r, nil
}

// Resolve records a decision. The first resolution wins; a loser gets
// store.ErrAlreadyResolved and the stored record keeps the winner's
// outcome untouched.
func (b *Broker) Resolve(ctx context.Context, id string, d *model.Decision) (*model.Request, error) {
	r, err := b.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.ValidateDecision(d); err != nil {
		return nil, err
	}
	resolved, err := b.store.ResolveRequest(ctx, id, d.StatusFor(r.Kind), d)
	if err != nil {
		return nil, err
	}
	b.wake(resolved)
	b.announce(ctx, resolved.PairingID, registry.Message{Type: registry.TypeResolved, Request: resolved},
		events.TopicRequestResolved, events.RequestResolved{Request: resolved, ResolvedBy: d.By})
	return resolved, nil
}

// Cancel force-terminates a pending request without a decision, e.g.
// when the producer gives up or the session ends. Losing the race to a
// decision is not an error: the decided record is returned as-is.
func (b *Broker) Cancel(ctx context.Context, id string, status model.Status) (*model.Request, error) {
	if !status.Terminal() {
		return nil, fmt.Errorf("cancel to non-terminal status %q", status)
	}
	resolved, err := b.store.ResolveRequest(ctx, id, status, nil)
	if errors.Is(err, store.ErrAlreadyResolved) {
		return b.store.GetRequest(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	b.wake(resolved)
	b.announce(ctx, resolved.PairingID, registry.Message{Type: registry.TypeResolved, Request: resolved},
		events.TopicRequestResolved, events.RequestResolved{Request: resolved})
	return resolved, nil
}

// Await blocks until the request reaches a terminal status or its
// deadline passes. The deadline is measured from the record's creation
// time, not from when Await is called, so a producer that reconnects
// late does not extend the window. On deadline the request is
// transitioned to timed out — unless a decision got there first, in
// which case that decision is returned.
func (b *Broker) Await(ctx context.Context, id string) (*model.Request, error) {
	b.mu.Lock()
	ch, ok := b.waiters[id]
	if !ok {
		ch = make(chan *model.Request, 1)
		b.waiters[id] = ch
	}
	b.mu.Unlock()

	// The waiter is registered before this read, so a resolution that
	// lands between the two is delivered on the channel, not lost.
	r, err := b.store.GetRequest(ctx, id)
	if err != nil {
		b.dropWaiter(id)
		return nil, err
	}
	if r.Status.Terminal() {
		b.dropWaiter(id)
		return r, nil
	}

	deadline := r.CreatedAt.Add(b.timeout)
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		b.dropWaiter(id)
		return nil, ctx.Err()
	case resolved := <-ch:
		b.dropWaiter(id)
		return resolved, nil
	case <-timer.C:
		b.dropWaiter(id)
		return b.timeOut(ctx, id)
	}
}

func (b *Broker) timeOut(ctx context.Context, id string) (*model.Request, error) {
	resolved, err := b.store.ResolveRequest(ctx, id, model.StatusTimedOut, nil)
	if errors.Is(err, store.ErrAlreadyResolved) {
		// A decision landed at the deadline. It wins.
		return b.store.GetRequest(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	b.wake(resolved)
	b.announce(ctx, resolved.PairingID, registry.Message{Type: registry.TypeResolved, Request: resolved},
		events.TopicRequestTimedOut, events.RequestTimedOut{RequestID: id, PairingID: resolved.PairingID})
	return resolved, nil
}

// Snapshot is the state pushed to a listener when it registers.
func (b *Broker) Snapshot(pairingID string) (registry.Message, error) {
	pending, err := b.store.ListPending(context.Background(), pairingID)
	if err != nil {
		return registry.Message{}, err
	}
	sess, err := b.store.GetSession(context.Background(), pairingID)
	if err != nil {
		return registry.Message{}, err
	}
	return registry.Message{Type: registry.TypeSnapshot, Requests: pending, Session: sess}, nil
}

func (b *Broker) wake(resolved *model.Request) {
	b.mu.Lock()
	ch, ok := b.waiters[resolved.ID]
	if ok {
		delete(b.waiters, resolved.ID)
	}
	b.mu.Unlock()
	if ok {
		// Buffered; the waiter may already be gone.
		select {
		case ch <- resolved:
		default:
		}
	}
}

func (b *Broker) dropWaiter(id string) {
	b.mu.Lock()
	delete(b.waiters, id)
	b.mu.Unlock()
}

// announce is best-effort: a failed event publish never fails the
// operation that triggered it.
func (b *Broker) announce(ctx context.Context, pairingID string, msg registry.Message, topic string, event any) {
	if b.registry != nil {
		b.registry.Broadcast(pairingID, msg)
	}
	if b.pub != nil {
		if err := b.pub.Publish(ctx, topic, event); err != nil {
			slog.Warn("event publish failed", "topic", topic, "error", err)
		}
	}
}
