// Package sync periodically exports the decision history to external
// destinations (S3, git) as JSONL.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fotescodev/claude-watch/internal/store"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version      string    `json:"version"`
	Type         string    `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	RequestCount int       `json:"request_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes the decided request history as JSONL to w. Only
// terminal records are exported; in-flight requests have no durable
// outcome yet.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	all, err := s.ListAll(ctx, "")
	if err != nil {
		return fmt.Errorf("list requests: %w", err)
	}

	decided := all[:0:0]
	for _, r := range all {
		if r.Status.Terminal() {
			decided = append(decided, r)
		}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:      "1",
		Type:         "header",
		Timestamp:    time.Now().UTC(),
		RequestCount: len(decided),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, r := range decided {
		if err := enc.Encode(record{Type: "request", Data: r}); err != nil {
			return fmt.Errorf("encode request %s: %w", r.ID, err)
		}
	}
	return nil
}
