package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type capturePusher struct {
	mu   sync.Mutex
	got  []Notification
	done chan struct{}
}

func newCapturePusher(n int) *capturePusher {
	return &capturePusher{done: make(chan struct{}, n)}
}

func (p *capturePusher) Push(_ context.Context, n Notification) error {
	p.mu.Lock()
	p.got = append(p.got, n)
	p.mu.Unlock()
	p.done <- struct{}{}
	return nil
}

func (p *capturePusher) wait(t *testing.T) {
	t.Helper()
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("push never dispatched")
	}
}

func TestGatewayDebouncesBurst(t *testing.T) {
	p := newCapturePusher(8)
	g := NewGateway(p, 3*time.Second)
	base := time.Now()
	g.now = func() time.Time { return base }

	// Five opens inside the window collapse to a single push.
	for i := 0; i < 5; i++ {
		g.Notify(Build("p1", "cw-1", "Run: ls", i+1))
	}
	p.wait(t)

	p.mu.Lock()
	count := len(p.got)
	first := p.got[0]
	p.mu.Unlock()
	if count != 1 {
		t.Fatalf("pushes = %d, want 1", count)
	}
	if first.PendingCount != 1 || first.Body != "Run: ls" {
		t.Errorf("notification = %+v", first)
	}
}

func TestGatewaySendsAfterWindow(t *testing.T) {
	p := newCapturePusher(8)
	g := NewGateway(p, 3*time.Second)
	base := time.Now()
	g.now = func() time.Time { return base }

	g.Notify(Build("p1", "cw-1", "Run: ls", 1))
	p.wait(t)

	g.now = func() time.Time { return base.Add(4 * time.Second) }
	g.Notify(Build("p1", "cw-2", "Edit: main.go", 2))
	p.wait(t)

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.got) != 2 {
		t.Fatalf("pushes = %d, want 2", len(p.got))
	}
	if p.got[1].Title != "Claude: 2 actions pending" {
		t.Errorf("aggregate title = %q", p.got[1].Title)
	}
}

func TestGatewayWindowPerPairing(t *testing.T) {
	p := newCapturePusher(8)
	g := NewGateway(p, 3*time.Second)
	base := time.Now()
	g.now = func() time.Time { return base }

	g.Notify(Build("p1", "cw-1", "Run: ls", 1))
	p.wait(t)
	g.Notify(Build("p2", "cw-2", "Run: pwd", 1))
	p.wait(t)

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.got) != 2 {
		t.Fatalf("pushes = %d, want 2 (independent pairings)", len(p.got))
	}
}

func TestWebhookPusher(t *testing.T) {
	var got Notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	p := NewWebhookPusher(srv.URL)
	n := Build("p1", "cw-1", "Run: make test", 3)
	if err := p.Push(context.Background(), n); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if got.PendingCount != 3 || got.Title != "Claude: 3 actions pending" {
		t.Errorf("received = %+v", got)
	}
}

func TestWebhookPusherErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewWebhookPusher(srv.URL)
	if err := p.Push(context.Background(), Notification{PairingID: "p1"}); err == nil {
		t.Fatal("expected error on 502")
	}
}
