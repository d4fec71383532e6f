package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fotescodev/claude-watch/internal/broker"
	"github.com/fotescodev/claude-watch/internal/model"
	"github.com/fotescodev/claude-watch/internal/registry"
	"github.com/fotescodev/claude-watch/internal/server"
	"github.com/fotescodev/claude-watch/internal/store"
)

func newRelayFixture(t *testing.T, timeout time.Duration) (*Adapter, *broker.Broker, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemory()
	reg := registry.New(nil)
	b := broker.New(st, reg, nil, nil, timeout)
	srv := httptest.NewServer(server.NewWatchServer(b, st, reg, nil).NewHTTPHandler(""))
	t.Cleanup(srv.Close)

	a := NewAdapter(NewClient(srv.URL, ""), "p1", newMemoryDebounce())
	a.PollInterval = 10 * time.Millisecond
	a.Timeout = timeout
	return a, b, st
}

func approvalRequest() *model.Request {
	return &model.Request{
		Kind:    model.KindApproval,
		Title:   "Run: make deploy",
		Command: "make deploy",
	}
}

func TestOpenAndWaitApproved(t *testing.T) {
	a, b, _ := newRelayFixture(t, time.Minute)

	type result struct {
		outcome Outcome
		req     *model.Request
	}
	done := make(chan result, 1)
	go func() {
		o, r, err := a.OpenAndWait(context.Background(), approvalRequest())
		if err != nil {
			t.Errorf("OpenAndWait: %v", err)
		}
		done <- result{o, r}
	}()

	// Wait for the request to appear, then approve it.
	var pending []*model.Request
	deadline := time.Now().Add(2 * time.Second)
	for len(pending) == 0 && time.Now().Before(deadline) {
		pending, _ = a.client.ListPending(context.Background(), "p1")
		time.Sleep(5 * time.Millisecond)
	}
	if len(pending) == 0 {
		t.Fatal("request never created")
	}
	approved := true
	if _, err := b.Resolve(context.Background(), pending[0].ID, &model.Decision{Approved: &approved, By: "phone"}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	select {
	case got := <-done:
		if got.outcome != OutcomeAllow || !got.outcome.Allows() {
			t.Errorf("outcome = %q", got.outcome)
		}
		if got.req.ResolvedBy != "phone" {
			t.Errorf("req = %+v", got.req)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("relay never returned")
	}
}

func TestOpenAndWaitDeniesOnTimeout(t *testing.T) {
	a, _, _ := newRelayFixture(t, 50*time.Millisecond)

	o, _, err := a.OpenAndWait(context.Background(), approvalRequest())
	if err != nil {
		t.Fatalf("OpenAndWait: %v", err)
	}
	if o != OutcomeDeny || o.Allows() {
		t.Errorf("outcome = %q, want deny on expired window", o)
	}
}

// newFlakyFixture wires a fixture whose HTTP front door fails the first
// failCount polls of a single request with a 500. failCount < 0 fails
// them all.
func newFlakyFixture(t *testing.T, timeout time.Duration, failCount int32) (*Adapter, *broker.Broker) {
	t.Helper()
	st := store.NewMemory()
	reg := registry.New(nil)
	b := broker.New(st, reg, nil, nil, timeout)
	inner := server.NewWatchServer(b, st, reg, nil).NewHTTPHandler("")

	var failures atomic.Int32
	failures.Store(failCount)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		isPoll := r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/requests/") &&
			!strings.HasSuffix(r.URL.Path, "/wait")
		if isPoll && (failCount < 0 || failures.Add(-1) >= 0) {
			http.Error(w, `{"error":"backend hiccup"}`, http.StatusInternalServerError)
			return
		}
		inner.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	a := NewAdapter(NewClient(srv.URL, ""), "p1", newMemoryDebounce())
	a.PollInterval = 10 * time.Millisecond
	a.Timeout = timeout
	return a, b
}

func TestWaitRetriesTransientPollErrors(t *testing.T) {
	a, b := newFlakyFixture(t, time.Minute, 1)

	done := make(chan Outcome, 1)
	go func() {
		o, _, err := a.OpenAndWait(context.Background(), approvalRequest())
		if err != nil {
			t.Errorf("OpenAndWait: %v", err)
		}
		done <- o
	}()

	// The first poll gets a 500; the request must stay live so this
	// approval still lands.
	var pending []*model.Request
	deadline := time.Now().Add(2 * time.Second)
	for len(pending) == 0 && time.Now().Before(deadline) {
		pending, _ = a.client.ListPending(context.Background(), "p1")
		time.Sleep(5 * time.Millisecond)
	}
	if len(pending) == 0 {
		t.Fatal("request never created")
	}
	time.Sleep(30 * time.Millisecond) // let the failing poll happen first
	approved := true
	if _, err := b.Resolve(context.Background(), pending[0].ID, &model.Decision{Approved: &approved}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	select {
	case o := <-done:
		if o != OutcomeAllow {
			t.Errorf("outcome = %q, want allow despite one failed poll", o)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("relay never returned")
	}
}

func TestWaitDeniesWhenPollsKeepFailing(t *testing.T) {
	a, _ := newFlakyFixture(t, 150*time.Millisecond, -1)

	// Every poll fails but the request was created: the safety net
	// exists, so the relay must ride out the window and fail closed.
	o, _, err := a.OpenAndWait(context.Background(), approvalRequest())
	if err != nil {
		t.Fatalf("OpenAndWait: %v", err)
	}
	if o != OutcomeDeny || o.Allows() {
		t.Errorf("outcome = %q, want deny after window of failed polls", o)
	}
}

func TestOpenAndWaitFailsOpenWhenUnreachable(t *testing.T) {
	a := NewAdapter(NewClient("http://127.0.0.1:1", ""), "p1", newMemoryDebounce())
	o, _, err := a.OpenAndWait(context.Background(), approvalRequest())
	if err != nil {
		t.Fatalf("OpenAndWait: %v", err)
	}
	if o != OutcomeProceed || !o.Allows() {
		t.Errorf("outcome = %q, want proceed (fail open)", o)
	}
}

func TestOpenAndWaitSessionEnded(t *testing.T) {
	a, b, _ := newRelayFixture(t, time.Minute)
	if _, err := b.EndSession(context.Background(), "p1"); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	o, _, err := a.OpenAndWait(context.Background(), approvalRequest())
	if err != nil {
		t.Fatalf("OpenAndWait: %v", err)
	}
	if o != OutcomeSessionEnded || o.Allows() {
		t.Errorf("outcome = %q, want session_ended", o)
	}
}

func TestOpenAndWaitPausedByInterrupt(t *testing.T) {
	a, b, _ := newRelayFixture(t, time.Minute)
	if _, err := b.Interrupt(context.Background(), "p1", model.InterruptStop); err != nil {
		t.Fatalf("Interrupt: %v", err)
	}

	o, _, err := a.OpenAndWait(context.Background(), approvalRequest())
	if err != nil {
		t.Fatalf("OpenAndWait: %v", err)
	}
	if o != OutcomePaused {
		t.Errorf("outcome = %q, want paused", o)
	}
}

func TestSessionEndedMidPoll(t *testing.T) {
	a, b, _ := newRelayFixture(t, time.Minute)

	done := make(chan Outcome, 1)
	go func() {
		o, _, _ := a.OpenAndWait(context.Background(), approvalRequest())
		done <- o
	}()

	var pending []*model.Request
	deadline := time.Now().Add(2 * time.Second)
	for len(pending) == 0 && time.Now().Before(deadline) {
		pending, _ = a.client.ListPending(context.Background(), "p1")
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := b.EndSession(context.Background(), "p1"); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	select {
	case o := <-done:
		if o != OutcomeSessionEnded {
			t.Errorf("outcome = %q, want session_ended", o)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("relay never returned")
	}
}

func TestMaybeNotifyDebounce(t *testing.T) {
	a, _, _ := newRelayFixture(t, time.Minute)
	base := time.Now()
	a.now = func() time.Time { return base }

	r := &model.Request{ID: "cw-1", Title: "Run: ls"}
	a.maybeNotify(context.Background(), r)
	last1, ok := a.debounce.LastSent("p1")
	if !ok {
		t.Fatal("first notify not recorded")
	}

	// Inside the window nothing is recorded again.
	a.now = func() time.Time { return base.Add(time.Second) }
	a.maybeNotify(context.Background(), r)
	last2, _ := a.debounce.LastSent("p1")
	if !last2.Equal(last1) {
		t.Error("notify sent inside debounce window")
	}

	// After the window it fires again.
	a.now = func() time.Time { return base.Add(4 * time.Second) }
	a.maybeNotify(context.Background(), r)
	last3, _ := a.debounce.LastSent("p1")
	if last3.Equal(last1) {
		t.Error("notify suppressed after window passed")
	}
}

func TestFileDebounceRoundTrip(t *testing.T) {
	f := &FileDebounce{dir: t.TempDir()}
	if _, ok := f.LastSent("p1"); ok {
		t.Fatal("unexpected timestamp before any send")
	}
	at := time.Now().Truncate(time.Second)
	if err := f.MarkSent("p1", at); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	got, ok := f.LastSent("p1")
	if !ok || !got.Equal(at) {
		t.Errorf("LastSent = %v, %v; want %v", got, ok, at)
	}
}
