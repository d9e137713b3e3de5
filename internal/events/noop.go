package events

import "context"

// NoopPublisher discards every event. The server falls back to it when no
// NATS URL is configured.
type NoopPublisher struct{}

var _ Publisher = (*NoopPublisher)(nil)

func (*NoopPublisher) Publish(context.Context, string, any) error { return nil }

func (*NoopPublisher) Close() error { return nil }
