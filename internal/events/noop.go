package events

import "context"

// NoopPublisher drops lifecycle events. It stands in for NATS when
// CW_NATS_URL is not configured.
type NoopPublisher struct{}

func (n *NoopPublisher) Publish(ctx context.Context, topic string, event any) error {
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}
