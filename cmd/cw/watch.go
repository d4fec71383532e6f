package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fotescodev/claude-watch/internal/events"
	"github.com/fotescodev/claude-watch/internal/model"
	"github.com/fotescodev/claude-watch/internal/registry"
	"github.com/fotescodev/claude-watch/internal/ui"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Watch for request and session activity on a pairing",
	GroupID: "requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		pid := requirePairing()
		interval, _ := cmd.Flags().GetDuration("interval")
		once, _ := cmd.Flags().GetBool("once")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		seen := make(map[string]model.Status)

		// Initial query.
		if err := queryAndPrint(ctx, pid, seen); err != nil {
			return err
		}
		if once {
			return nil
		}

		// Event-driven when a bus is reachable, otherwise the server's
		// SSE stream, otherwise plain polling.
		if natsURL := os.Getenv("CW_NATS_URL"); natsURL != "" {
			return watchNATS(ctx, natsURL, pid, seen)
		}
		if err := watchStream(ctx, pid); err == nil || ctx.Err() != nil {
			return nil
		}
		return watchPoll(ctx, interval, pid, seen)
	},
}

// queryAndPrint lists pending requests and prints the ones not seen yet
// (or whose status changed since the last query).
func queryAndPrint(ctx context.Context, pid string, seen map[string]model.Status) error {
	requests, err := watchClient.ListPending(ctx, pid)
	if err != nil {
		return err
	}
	for _, r := range requests {
		if prev, ok := seen[r.ID]; ok && prev == r.Status {
			continue
		}
		seen[r.ID] = r.Status
		printEventLine("pending", r)
	}
	return nil
}

func printEventLine(kind string, r *model.Request) {
	ts := time.Now().Format("15:04:05")
	fmt.Printf("%s %s %s %s\n", ui.RenderMuted(ts), kind, ui.RenderAccent(r.ID), r.Title)
}

// watchNATS subscribes to bus events and re-queries on changes with debounce.
func watchNATS(ctx context.Context, natsURL, pid string, seen map[string]model.Status) error {
	// reconnectCh receives a signal when the NATS client reconnects
	// after a disconnect, so we can immediately re-query for missed
	// events.
	reconnectCh := make(chan struct{}, 1)

	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats: disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Printf("nats: reconnected")
			select {
			case reconnectCh <- struct{}{}:
			default:
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe("watch.>")
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancel()

	debounce := time.NewTimer(0)
	debounce.Stop()
	// Drain the timer channel in case it fired between NewTimer and Stop.
	select {
	case <-debounce.C:
	default:
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			debounce.Reset(200 * time.Millisecond)
		case <-reconnectCh:
			debounce.Reset(0) // immediate re-query
		case <-debounce.C:
			if err := queryAndPrint(ctx, pid, seen); err != nil {
				return err
			}
		}
	}
}

// watchStream consumes the server's SSE endpoint, printing each message
// as it arrives. Returns an error when the stream cannot be opened so
// the caller can fall back to polling.
func watchStream(ctx context.Context, pid string) error {
	url := strings.TrimRight(serverURL, "/") + "/v1/events/stream?pairing_id=" + pid
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream returned HTTP %d", resp.StatusCode)
	}

	var event string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			printStreamMessage(event, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	return scanner.Err()
}

func printStreamMessage(event, data string) {
	var msg registry.Message
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		return
	}
	switch {
	case msg.Request != nil:
		printEventLine(event, msg.Request)
	case msg.Session != nil:
		ts := time.Now().Format("15:04:05")
		state := "active"
		if !msg.Session.Active {
			state = "ended"
		} else if msg.Session.Paused() {
			state = "paused"
		}
		fmt.Printf("%s %s session %s\n", ui.RenderMuted(ts), event, state)
	case len(msg.Requests) > 0:
		for _, r := range msg.Requests {
			printEventLine(event, r)
		}
	}
}

// watchPoll polls for changes at the given interval.
func watchPoll(ctx context.Context, interval time.Duration, pid string, seen map[string]model.Status) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := queryAndPrint(ctx, pid, seen); err != nil {
				return err
			}
		}
	}
}

func init() {
	watchCmd.Flags().Duration("interval", 5*time.Second, "poll interval when no event source is available")
	watchCmd.Flags().Bool("once", false, "print the pending set once and exit")
}
