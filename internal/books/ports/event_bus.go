package ports

import "context"

// EventBus defines the contract for publishing catalog lifecycle events.
type EventBus interface {
	PublishBookCreated(ctx context.Context, bookID string) error
	PublishBookArchived(ctx context.Context, bookID string) error
}
