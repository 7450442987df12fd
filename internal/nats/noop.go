package nats

import (
	"context"
	"log/slog"
)

// NoopEventBus logs events without sending them to NATS. Useful for local dev before wiring a broker.
type NoopEventBus struct{}

// NewNoopEventBus returns a new no-op event publisher.
func NewNoopEventBus() *NoopEventBus {
	return &NoopEventBus{}
}

func (n *NoopEventBus) PublishBookCreated(_ context.Context, bookID string) error {
	slog.Debug("event::book_created", "book_id", bookID)
	return nil
}

func (n *NoopEventBus) PublishBookArchived(_ context.Context, bookID string) error {
	slog.Debug("event::book_archived", "book_id", bookID)
	return nil
}
