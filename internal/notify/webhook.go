package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookPusher POSTs notifications as JSON to a configured endpoint,
// typically an APNs/FCM relay in front of the device.
type WebhookPusher struct {
	url    string
	client *http.Client
}

func NewWebhookPusher(url string) *WebhookPusher {
	return &WebhookPusher{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *WebhookPusher) Push(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("push endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// NoopPusher drops every notification. Used when no push endpoint is
// configured.
type NoopPusher struct{}

func (NoopPusher) Push(context.Context, Notification) error { return nil }
